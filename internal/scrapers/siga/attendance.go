package siga

import (
	"context"
	"strconv"
	"strings"
)

const report_attendance_extract = "attendance.extract"

var attendanceTable = TableSpec{
	Body:           "#Grid1ContainerTbl > tbody",
	Rows:           ".GridClearOdd",
	SkipRows:       1,
	Cells:          "td",
	NestedCell:     4,
	NestedRows:     "tr",
	NestedSkipRows: 1,
}

// ExtractAttendance opens the partial absences page and reads it with
// ReadAttendance.
func (s Scraper) ExtractAttendance(ctx context.Context, page Page) ([]AttendanceRecord, error) {
	ctx, span := tracer.Start(ctx, "ExtractAttendance")
	defer span.End()

	link := s.opts.pageUrl(attendance_page)
	err := page.Navigate(ctx, link)
	if err != nil {
		s.tel.ReportBroken(report_attendance_extract, err, link)
		return nil, transportError("navigate", link, err)
	}
	return s.ReadAttendance(ctx, page)
}

// ReadAttendance reads one AttendanceRecord per subject row of the current
// page. Malformed rows fail the whole read, there are no partial results.
func (s Scraper) ReadAttendance(ctx context.Context, page Page) ([]AttendanceRecord, error) {
	rows, err := readNestedTable(ctx, page, "attendance", attendanceTable, s.opts.WaitTimeout)
	if err != nil {
		s.tel.ReportBroken(report_attendance_extract, err, page.URL())
		return nil, err
	}
	records, err := attendanceFromRows(rows)
	if err != nil {
		s.tel.ReportBroken(report_attendance_extract, err, page.URL())
		return nil, err
	}
	s.tel.ReportDebug(report_attendance_extract, "records", len(records))
	return records, nil
}

// attendanceFromRows maps table rows to records: cells 0-3 of a row are
// id, subject, attendance and absences, and each sub-row is date, subject,
// attendance and absences of one class session.
func attendanceFromRows(rows []NestedRow) ([]AttendanceRecord, error) {
	records := make([]AttendanceRecord, 0, len(rows))

	for _, row := range rows {
		if len(row.Cells) < 4 {
			return nil, extractionError(
				"attendance", nil,
				"row %d: expected at least 4 cells, got %d",
				row.Index, len(row.Cells),
			)
		}

		info := make([]AttendanceDetail, 0, len(row.Nested))
		for j, sub := range row.Nested {
			if len(sub) < 4 {
				return nil, extractionError(
					"attendance", nil,
					"row %d: session %d: expected 4 cells, got %d",
					row.Index, j, len(sub),
				)
			}
			attendance, err := parseCount(sub[2])
			if err != nil {
				return nil, extractionError("attendance", err, "row %d: session %d: attendance", row.Index, j)
			}
			absences, err := parseCount(sub[3])
			if err != nil {
				return nil, extractionError("attendance", err, "row %d: session %d: absences", row.Index, j)
			}
			info = append(info, AttendanceDetail{
				Date:       sub[0],
				Subject:    sub[1],
				Attendance: attendance,
				Absences:   absences,
			})
		}

		attendance, err := parseCount(row.Cells[2])
		if err != nil {
			return nil, extractionError("attendance", err, "row %d: attendance", row.Index)
		}
		absences, err := parseCount(row.Cells[3])
		if err != nil {
			return nil, extractionError("attendance", err, "row %d: absences", row.Index)
		}

		records = append(records, AttendanceRecord{
			ID:         row.Cells[0],
			Subject:    row.Cells[1],
			Attendance: attendance,
			Absences:   absences,
			Info:       info,
		})
	}

	return records, nil
}

// parseCount parses a class count, an empty cell counts as 0.
func parseCount(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	return strconv.Atoi(text)
}
