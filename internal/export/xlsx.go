// Package export writes analysis results to files people open outside
// the dashboard.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/tables"
)

const maxSheetName = 31

// WriteWorkbook writes one sheet per category holding that category's
// tables, each preceded by a title row and followed by a blank row.
// Report-style figures are written as numbers.
func WriteWorkbook(w io.Writer, doc *model.ParsedDocument, groups []model.CategoryTables) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	const defaultSheet = "Sheet1"
	written := 0
	for _, g := range groups {
		name := sheetName(string(g.Category))
		if idx, _ := f.GetSheetIndex(name); idx >= 0 {
			continue
		}
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeCategory(f, name, doc, g.Tables, bold); err != nil {
			return err
		}
		written++
	}

	if written == 0 {
		if err := f.SetCellValue(defaultSheet, "A1", "No statements were resolved"); err != nil {
			return fmt.Errorf("write placeholder: %w", err)
		}
	} else if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeCategory(f *excelize.File, sheet string, doc *model.ParsedDocument, indices []int, titleStyle int) error {
	row := 1
	for _, ti := range indices {
		if ti < 0 || ti >= len(doc.Tables) {
			continue
		}
		grid := tables.Rows(doc.Tables[ti])
		if len(grid) == 0 {
			continue
		}

		title := fmt.Sprintf("Table %d", ti)
		if pn, ok := doc.Tables[ti].FirstPageNumber(); ok {
			title = fmt.Sprintf("Table %d (page %d)", ti, pn)
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, titleStyle); err != nil {
			return fmt.Errorf("style %s!%s: %w", sheet, cell, err)
		}
		row++

		for r, values := range grid {
			for c, v := range values {
				cell, _ := excelize.CoordinatesToCellName(c+1, row)
				var value any = v
				if r > 0 {
					if n, ok := tables.ParseFigure(v); ok {
						value = n
					}
				}
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
				}
			}
			row++
		}
		row++
	}
	return nil
}

func sheetName(category string) string {
	if category == "" {
		category = "uncategorized"
	}
	if len(category) > maxSheetName {
		category = category[:maxSheetName]
	}
	return category
}
