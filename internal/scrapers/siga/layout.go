package siga

import (
	"math"
	"strconv"
	"strings"
)

// GradeLayout maps the lines of a subject block on the grades page to the
// fields of a GradeSubject. Lines are the rendered text of the block's rows,
// their segments are separated by tabs.
type GradeLayout struct {
	// HeaderLine holds the subject id in segment IDSegment and the subject
	// name in the first line of segment SubjectSegment.
	HeaderLine     int
	IDSegment      int
	SubjectSegment int

	AverageGradeLine int
	AttendanceLine   int
	FrequencyLine    int

	// Lines in [MetadataFrom, EntriesFrom) carry nothing and may be blank,
	// every line from EntriesFrom on is one grade entry.
	MetadataFrom int
	EntriesFrom  int

	EntryIDSegment    int
	EntryDateSegment  int
	EntryGradeSegment int
}

var DefaultGradeLayout = GradeLayout{
	HeaderLine:     0,
	IDSegment:      0,
	SubjectSegment: 1,

	AverageGradeLine: 1,
	AttendanceLine:   2,
	FrequencyLine:    3,

	MetadataFrom: 4,
	EntriesFrom:  7,

	EntryIDSegment:    0,
	EntryDateSegment:  1,
	EntryGradeSegment: 2,
}

// blankBelongsToBlock tells whether a blank row following n lines is one of
// the block's metadata lines instead of the start of the next block.
func (l GradeLayout) blankBelongsToBlock(n int) bool {
	return n >= l.MetadataFrom && n < l.EntriesFrom
}

// segmentBlocks splits the rows of the grades table into subject blocks. A
// blank row starts a new block unless it is the last row or falls on a
// metadata line. Blocks without lines are dropped.
func (l GradeLayout) segmentBlocks(lines []string) [][]string {
	blocks := [][]string{{}}
	for i, line := range lines {
		current := len(blocks) - 1
		if line == "" && i != len(lines)-1 && !l.blankBelongsToBlock(len(blocks[current])) {
			blocks = append(blocks, []string{})
			continue
		}
		blocks[current] = append(blocks[current], line)
	}

	result := make([][]string, 0, len(blocks))
	for _, b := range blocks {
		if len(b) > 0 {
			result = append(result, b)
		}
	}
	return result
}

// parseBlock reads a subject block. Missing lines and segments leave the
// field at its zero value, unparsable numbers are 0.
func (l GradeLayout) parseBlock(lines []string) GradeSubject {
	line := func(i int) string {
		if i < 0 || i >= len(lines) {
			return ""
		}
		return lines[i]
	}

	header := strings.Split(line(l.HeaderLine), "\t")
	subject := strings.Split(segment(header, l.SubjectSegment), "\n")[0]

	result := GradeSubject{
		ID:           segment(header, l.IDSegment),
		Subject:      subject,
		AverageGrade: parseSummaryDecimal(line(l.AverageGradeLine)),
		Attendance:   parseSummaryDecimal(line(l.AttendanceLine)),
		Frequency:    parseSummaryDecimal(line(l.FrequencyLine)),
		Grades:       []GradeEntry{},
	}
	for i := l.EntriesFrom; i < len(lines); i++ {
		result.Grades = append(result.Grades, l.parseEntry(lines[i]))
	}
	return result
}

func (l GradeLayout) parseEntry(line string) GradeEntry {
	segments := strings.Split(line, "\t")
	entry := GradeEntry{
		ID:    segment(segments, l.EntryIDSegment),
		Grade: ParseDecimal(segment(segments, l.EntryGradeSegment)),
	}
	if date := segment(segments, l.EntryDateSegment); date != "" {
		entry.Date = &date
	}
	return entry
}

func segment(segments []string, i int) string {
	if i < 0 || i >= len(segments) {
		return ""
	}
	return segments[i]
}

// ParseDecimal parses a number that may use a comma as decimal separator,
// anything that is not a finite number is 0.
func ParseDecimal(text string) float64 {
	text = strings.TrimSpace(strings.Replace(text, ",", ".", 1))
	if text == "" {
		return 0
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// parseSummaryDecimal parses the last non-blank segment of a summary line, so
// "8,5" and "Média\t8,5" both read 8.5.
func parseSummaryDecimal(line string) float64 {
	segments := strings.Split(line, "\t")
	for i := len(segments) - 1; i >= 0; i-- {
		if strings.TrimSpace(segments[i]) != "" {
			return ParseDecimal(segments[i])
		}
	}
	return 0
}
