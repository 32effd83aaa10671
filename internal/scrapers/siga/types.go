package siga

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Credentials are supplied per request and never stored.
type Credentials struct {
	User     string
	Password string
}

// Semester is the student's current cycle. A semester that could not be
// parsed is not-a-number: it marshals to null and IsNaN reports true.
type Semester struct {
	value int
	valid bool
}

// ParseSemester parses a non-negative integer, anything else is NaN.
func ParseSemester(text string) Semester {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return Semester{}
	}
	return Semester{value: n, valid: true}
}

func NewSemester(n int) Semester {
	if n < 0 {
		return Semester{}
	}
	return Semester{value: n, valid: true}
}

func (s Semester) IsNaN() bool {
	return !s.valid
}

// Int returns the semester and whether it is a number.
func (s Semester) Int() (int, bool) {
	return s.value, s.valid
}

func (s Semester) Equal(other Semester) bool {
	return s == other
}

func (s Semester) String() string {
	if !s.valid {
		return "NaN"
	}
	return strconv.Itoa(s.value)
}

func (s Semester) MarshalJSON() ([]byte, error) {
	if !s.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(s.value)), nil
}

func (s *Semester) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = Semester{}
		return nil
	}
	var n int
	err := json.Unmarshal(data, &n)
	if err != nil {
		return err
	}
	*s = NewSemester(n)
	return nil
}

type User struct {
	RA       string   `json:"RA"`
	Name     string   `json:"name"`
	Semester Semester `json:"semester"`
	Email    string   `json:"email"`
	Image    string   `json:"image"`
}

// AttendanceDetail is a single class session of a subject.
type AttendanceDetail struct {
	Date       string `json:"date"`
	Subject    string `json:"subject"`
	Attendance int    `json:"attendance"`
	Absences   int    `json:"absences"`
}

// AttendanceRecord is the attendance summary of one enrolled subject, Info is
// in the order the sessions appear on the portal.
type AttendanceRecord struct {
	ID         string             `json:"id"`
	Subject    string             `json:"subject"`
	Attendance int                `json:"attendance"`
	Absences   int                `json:"absences"`
	Info       []AttendanceDetail `json:"info"`
}

// GradeEntry is one assessment of a subject, a nil Date means the portal did
// not show one.
type GradeEntry struct {
	ID    string  `json:"id"`
	Date  *string `json:"date"`
	Grade float64 `json:"grade"`
}

type GradeSubject struct {
	ID           string       `json:"id"`
	Subject      string       `json:"subject"`
	AverageGrade float64      `json:"averageGrade"`
	Attendance   float64      `json:"attendance"`
	Frequency    float64      `json:"frequency"`
	Grades       []GradeEntry `json:"grades"`
}

// Report is everything scraped for a single student in one session.
type Report struct {
	User       User               `json:"userInfo"`
	Attendance []AttendanceRecord `json:"attendanceState"`
	Grades     []GradeSubject     `json:"grades"`
}
