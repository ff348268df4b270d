package model

import "strings"

// ParsedDocument is the normalized output of layout extraction
// Rebuilt from scratch on every parse, never updated incrementally
type ParsedDocument struct {
	Pages  []Page  `json:"pages"`
	Tables []Table `json:"tables"`
}

// Page is one physical page of the source document
type Page struct {
	Index      int    `json:"index"`       // 0-based position in the document
	PageNumber int    `json:"page_number"` // Number as labeled by the layout service (not always Index+1)
	Lines      []Line `json:"lines"`
}

// Line is a single line of recognized text
type Line struct {
	Content string `json:"content"`
}

// Table is a table recognized by the layout service
type Table struct {
	RowCount        int              `json:"row_count"`
	ColumnCount     int              `json:"column_count,omitempty"`
	Cells           []Cell           `json:"cells"`
	BoundingRegions []BoundingRegion `json:"bounding_regions"`
}

// Cell is one table cell
type Cell struct {
	RowIndex    int    `json:"row_index"`
	ColumnIndex int    `json:"column_index"`
	Content     string `json:"content"`
}

// BoundingRegion claims a location for a table on a page
type BoundingRegion struct {
	PageNumber int `json:"page_number"`
}

// Text joins the page's lines with single spaces
func (p Page) Text() string {
	parts := make([]string, 0, len(p.Lines))
	for _, line := range p.Lines {
		parts = append(parts, line.Content)
	}
	return strings.Join(parts, " ")
}

// PrefixText joins the text of the first n pages (clamped to the page count)
func (d *ParsedDocument) PrefixText(n int) string {
	if n > len(d.Pages) {
		n = len(d.Pages)
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if text := d.Pages[i].Text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// FirstPageNumber returns the page number of the table's authoritative
// (first) bounding region, and false if the table has none
func (t Table) FirstPageNumber() (int, bool) {
	if len(t.BoundingRegions) == 0 {
		return 0, false
	}
	return t.BoundingRegions[0].PageNumber, true
}
