package siga

import (
	"context"
)

const report_grades_extract = "grades.extract"

const (
	selector_grades_body = "#Grid4ContainerTbl > tbody"
	selector_grades_rows = "tr"
)

// ExtractGrades opens the partial grades page and reads it with ReadGrades.
func (s Scraper) ExtractGrades(ctx context.Context, page Page) ([]GradeSubject, error) {
	ctx, span := tracer.Start(ctx, "ExtractGrades")
	defer span.End()

	link := s.opts.pageUrl(grades_page)
	err := page.Navigate(ctx, link)
	if err != nil {
		s.tel.ReportBroken(report_grades_extract, err, link)
		return nil, transportError("navigate", link, err)
	}
	return s.ReadGrades(ctx, page)
}

// ReadGrades reads the grades table of the current page. The table is flat,
// subjects are told apart only by blank rows between them.
func (s Scraper) ReadGrades(ctx context.Context, page Page) ([]GradeSubject, error) {
	body, err := page.WaitFor(ctx, selector_grades_body, s.opts.WaitTimeout)
	if err != nil {
		s.tel.ReportBroken(report_grades_extract, err, page.URL())
		return nil, transportError("wait for "+selector_grades_body, page.URL(), err)
	}
	rows, err := page.QueryAll(ctx, body, selector_grades_rows)
	if err != nil {
		s.tel.ReportBroken(report_grades_extract, err, page.URL())
		return nil, extractionError("grades", err, "query rows")
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i], err = page.InnerText(ctx, row)
		if err != nil {
			s.tel.ReportBroken(report_grades_extract, err, page.URL())
			return nil, extractionError("grades", err, "row %d: read text", i)
		}
	}

	return parseGrades(s.opts.GradeLayout, lines), nil
}

func parseGrades(layout GradeLayout, lines []string) []GradeSubject {
	blocks := layout.segmentBlocks(lines)
	subjects := make([]GradeSubject, len(blocks))
	for i, block := range blocks {
		subjects[i] = layout.parseBlock(block)
	}
	return subjects
}
