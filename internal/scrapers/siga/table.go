package siga

import (
	"context"
	"time"
)

// TableSpec describes where a table is on the current page and which of its
// rows and cells carry data.
type TableSpec struct {
	// Body is the element the rows are queried under.
	Body string
	// Rows selects the rows under Body, the first SkipRows are headers.
	Rows     string
	SkipRows int
	// Cells selects the cells of a row.
	Cells string
	// NestedCell is the index of the cell holding a sub-table, -1 for none.
	// The first NestedSkipRows rows of the sub-table are headers.
	NestedCell     int
	NestedRows     string
	NestedSkipRows int
}

// NestedRow is a table row as trimmed cell text, with the rows of the
// sub-table in its nested cell.
type NestedRow struct {
	// Index is the position of the row among the rows matched by TableSpec.Rows.
	Index  int
	Cells  []string
	Nested [][]string
}

// readNestedTable reads the table described by spec into rows of trimmed cell
// text. Rows without cells are spacers and are left out. A row too short to
// have the nested cell is an error.
func readNestedTable(ctx context.Context, page Page, component string, spec TableSpec, timeout time.Duration) ([]NestedRow, error) {
	body, err := page.WaitFor(ctx, spec.Body, timeout)
	if err != nil {
		return nil, transportError("wait for "+spec.Body, page.URL(), err)
	}
	rows, err := page.QueryAll(ctx, body, spec.Rows)
	if err != nil {
		return nil, extractionError(component, err, "query rows %s", spec.Rows)
	}

	var result []NestedRow
	for i := spec.SkipRows; i < len(rows); i++ {
		cells, err := page.QueryAll(ctx, rows[i], spec.Cells)
		if err != nil {
			return nil, extractionError(component, err, "row %d: query cells", i)
		}
		if len(cells) == 0 {
			continue
		}

		texts, err := readTexts(ctx, page, cells)
		if err != nil {
			return nil, extractionError(component, err, "row %d: read cells", i)
		}
		row := NestedRow{Index: i, Cells: texts}

		if spec.NestedCell >= 0 {
			if spec.NestedCell >= len(cells) {
				return nil, extractionError(
					component, nil,
					"row %d: expected at least %d cells, got %d",
					i, spec.NestedCell+1, len(cells),
				)
			}
			row.Nested, err = readSubTable(ctx, page, cells[spec.NestedCell], spec)
			if err != nil {
				return nil, extractionError(component, err, "row %d: read nested table", i)
			}
		}

		result = append(result, row)
	}

	return result, nil
}

func readSubTable(ctx context.Context, page Page, cell Element, spec TableSpec) ([][]string, error) {
	subRows, err := page.QueryAll(ctx, cell, spec.NestedRows)
	if err != nil {
		return nil, err
	}
	var result [][]string
	for j := spec.NestedSkipRows; j < len(subRows); j++ {
		cells, err := page.QueryAll(ctx, subRows[j], spec.Cells)
		if err != nil {
			return nil, err
		}
		texts, err := readTexts(ctx, page, cells)
		if err != nil {
			return nil, err
		}
		result = append(result, texts)
	}
	return result, nil
}

func readTexts(ctx context.Context, page Page, elements []Element) ([]string, error) {
	texts := make([]string, len(elements))
	for i, el := range elements {
		text, err := page.Text(ctx, el)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}
	return texts, nil
}
