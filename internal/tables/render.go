package tables

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/ppiankov/coinsight/internal/model"
)

const minColumnWidth = 3

// RenderTable renders t as a markdown pipe grid. The first row is the
// header; the header is widened to the widest row and every data row is
// padded to the header width. Cells land at their column index; missing
// cells are empty. A table with no cells renders as the empty string.
func RenderTable(t model.Table) string {
	rows := gridRows(t)
	if len(rows) == 0 {
		return ""
	}

	header, body := rows[0], rows[1:]
	cols := len(header)
	for _, r := range body {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return ""
	}
	header = pad(header, cols)
	for i := range body {
		body[i] = pad(body[i], cols)
	}

	widths := make([]int, cols)
	numeric := make([]bool, cols)
	for c := 0; c < cols; c++ {
		widths[c] = max(minColumnWidth, displayWidth(header[c]))
		filled, allNumeric := false, true
		for _, r := range body {
			widths[c] = max(widths[c], displayWidth(r[c]))
			if r[c] == "" {
				continue
			}
			filled = true
			if !looksNumeric(r[c]) {
				allNumeric = false
			}
		}
		numeric[c] = filled && allNumeric
	}

	var sb strings.Builder
	writeRow(&sb, header, widths, numeric)
	sb.WriteString("\n|")
	for c, w := range widths {
		if numeric[c] {
			sb.WriteString(strings.Repeat("-", w+1) + ":|")
		} else {
			sb.WriteString(":" + strings.Repeat("-", w+1) + "|")
		}
	}
	for _, r := range body {
		sb.WriteByte('\n')
		writeRow(&sb, r, widths, numeric)
	}
	return sb.String()
}

// gridRows groups cells by row index for rows 0..RowCount-1
func gridRows(t model.Table) [][]string {
	if t.RowCount <= 0 {
		return nil
	}
	rows := make([][]string, t.RowCount)
	for _, cell := range t.Cells {
		r, c := cell.RowIndex, cell.ColumnIndex
		if r < 0 || r >= t.RowCount || c < 0 {
			continue
		}
		rows[r] = pad(rows[r], c+1)
		text := cleanCell(cell.Content)
		if rows[r][c] != "" && text != "" {
			text = rows[r][c] + " " + text
		} else if text == "" {
			text = rows[r][c]
		}
		rows[r][c] = text
	}
	return rows
}

// Rows returns the table as a rectangular grid of plain cell text,
// header first, using the same placement as RenderTable
func Rows(t model.Table) [][]string {
	rows := gridRows(t)
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return nil
	}
	for i, r := range rows {
		r = pad(r, cols)
		for c := range r {
			r[c] = strings.ReplaceAll(r[c], `\|`, "|")
		}
		rows[i] = r
	}
	return rows
}

func pad(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

func writeRow(sb *strings.Builder, row []string, widths []int, numeric []bool) {
	sb.WriteByte('|')
	for c, cell := range row {
		gap := strings.Repeat(" ", widths[c]-displayWidth(cell))
		sb.WriteByte(' ')
		if numeric[c] {
			sb.WriteString(gap + cell)
		} else {
			sb.WriteString(cell + gap)
		}
		sb.WriteString(" |")
	}
}

func cleanCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// displayWidth counts East Asian wide and fullwidth runes as two columns
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// looksNumeric accepts report-style figures such as 1,234.5 or (56) or 12%,
// and a lone dash for nil
func looksNumeric(s string) bool {
	switch s {
	case "-", "–", "—":
		return true
	}
	_, ok := ParseFigure(s)
	return ok
}

// ParseFigure reads a report-style figure. Parenthesised values are
// negative, thousands separators are ignored and a trailing percent sign
// is dropped without scaling.
func ParseFigure(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
		negative = true
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// RenderTables renders the given table indices of doc, in order, as
// blank-line separated grids. Indices outside doc are skipped.
func RenderTables(doc *model.ParsedDocument, indices []int) string {
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(doc.Tables) {
			continue
		}
		if grid := RenderTable(doc.Tables[i]); grid != "" {
			parts = append(parts, grid)
		}
	}
	return strings.Join(parts, "\n\n")
}

// RenderCategories renders each category's tables, preserving category order
func RenderCategories(doc *model.ParsedDocument, groups []model.CategoryTables) model.RenderedContent {
	out := make(model.RenderedContent, 0, len(groups))
	for _, g := range groups {
		out = append(out, model.CategoryContent{
			Category: g.Category,
			Content:  RenderTables(doc, g.Tables),
		})
	}
	return out
}
