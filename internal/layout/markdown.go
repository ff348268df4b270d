package layout

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ppiankov/coinsight/internal/model"
)

var tableParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// markdownTables parses GFM pipe tables. The header row is row 0.
func markdownTables(src []byte) []model.Table {
	root := tableParser.Parser().Parse(text.NewReader(src))

	var tables []model.Table
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		tbl, ok := n.(*east.Table)
		if !ok {
			return ast.WalkContinue, nil
		}

		var t model.Table
		row := 0
		for r := tbl.FirstChild(); r != nil; r = r.NextSibling() {
			col := 0
			for c := r.FirstChild(); c != nil; c = c.NextSibling() {
				if _, isCell := c.(*east.TableCell); !isCell {
					continue
				}
				t.Cells = append(t.Cells, model.Cell{
					RowIndex:    row,
					ColumnIndex: col,
					Content:     inlineText(c, src),
				})
				col++
			}
			if col > t.ColumnCount {
				t.ColumnCount = col
			}
			row++
		}
		t.RowCount = row
		tables = append(tables, t)
		return ast.WalkSkipChildren, nil
	})
	return tables
}

// inlineText concatenates the literal text below n
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := child.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// markdownLines flattens a markdown page into text lines. Table rows
// keep their cell text; separator rows and markup are dropped.
func markdownLines(md string) []model.Line {
	var lines []model.Line
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || isTableSeparator(line) {
			continue
		}
		if strings.HasPrefix(line, "|") {
			cells := strings.Split(strings.Trim(line, "|"), "|")
			parts := make([]string, 0, len(cells))
			for _, c := range cells {
				if c = strings.TrimSpace(c); c != "" {
					parts = append(parts, c)
				}
			}
			line = strings.Join(parts, " ")
		} else {
			line = strings.TrimLeft(line, "#>*- ")
			line = strings.NewReplacer("**", "", "__", "").Replace(line)
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, model.Line{Content: line})
		}
	}
	return lines
}

func isTableSeparator(line string) bool {
	if !strings.HasPrefix(line, "|") {
		return false
	}
	return strings.Trim(line, "|-: ") == ""
}
