// Package tables maps statement page ranges onto the tables the layout
// service found, and renders those tables as markdown grids.
package tables

import (
	"errors"
	"fmt"

	"github.com/ppiankov/coinsight/internal/model"
)

var (
	// ErrInvalidRange is returned when a range starts after it ends
	ErrInvalidRange = errors.New("invalid page range")

	// ErrPageOutOfRange is returned for a page index outside the document
	ErrPageOutOfRange = errors.New("page index out of range")

	// ErrPageNumberNotFound is returned when no page carries a printed number
	ErrPageNumberNotFound = errors.New("page number not found in document")
)

// PageEntry is one row of the page index
type PageEntry struct {
	PageNumber int
	Tables     []int
}

// PageIndex maps each page index to its page number and the tables whose
// first bounding region names that page number. It is immutable once built.
type PageIndex struct {
	pages    []PageEntry
	byNumber map[int]int
}

// BuildPageIndex indexes doc. Tables without bounding regions are not
// placed on any page. Building twice from the same document yields
// identical indexes.
func BuildPageIndex(doc *model.ParsedDocument) *PageIndex {
	tablesByNumber := make(map[int][]int)
	for i, t := range doc.Tables {
		if pn, ok := t.FirstPageNumber(); ok {
			tablesByNumber[pn] = append(tablesByNumber[pn], i)
		}
	}

	ix := &PageIndex{
		pages:    make([]PageEntry, len(doc.Pages)),
		byNumber: make(map[int]int, len(doc.Pages)),
	}
	for i, p := range doc.Pages {
		ix.pages[i] = PageEntry{
			PageNumber: p.PageNumber,
			Tables:     append([]int(nil), tablesByNumber[p.PageNumber]...),
		}
		if _, seen := ix.byNumber[p.PageNumber]; !seen {
			ix.byNumber[p.PageNumber] = i
		}
	}
	return ix
}

// Len is the number of pages
func (ix *PageIndex) Len() int {
	return len(ix.pages)
}

// Entry returns the index row for a page index
func (ix *PageIndex) Entry(pageIndex int) (PageEntry, error) {
	if pageIndex < 0 || pageIndex >= len(ix.pages) {
		return PageEntry{}, fmt.Errorf("page %d of %d: %w", pageIndex, len(ix.pages), ErrPageOutOfRange)
	}
	e := ix.pages[pageIndex]
	e.Tables = append([]int(nil), e.Tables...)
	return e, nil
}

// IndexForPageNumber reconciles a printed page number (as listed on a
// contents page) with the structural page index. When several pages
// carry the same number the first wins.
func (ix *PageIndex) IndexForPageNumber(pageNumber int) (int, error) {
	i, ok := ix.byNumber[pageNumber]
	if !ok {
		return 0, fmt.Errorf("page number %d: %w", pageNumber, ErrPageNumberNotFound)
	}
	return i, nil
}

// Resolve returns the union of table indices over the inclusive page
// index range [start, end], deduplicated in first-seen order
func (ix *PageIndex) Resolve(start, end int) ([]int, error) {
	if start > end {
		return nil, fmt.Errorf("pages %d..%d: %w", start, end, ErrInvalidRange)
	}
	if start < 0 || end >= len(ix.pages) {
		return nil, fmt.Errorf("pages %d..%d of %d: %w", start, end, len(ix.pages), ErrPageOutOfRange)
	}

	seen := make(map[int]bool)
	result := []int{}
	for i := start; i <= end; i++ {
		for _, t := range ix.pages[i].Tables {
			if !seen[t] {
				seen[t] = true
				result = append(result, t)
			}
		}
	}
	return result, nil
}

// ResolveEntry resolves a located statement
func (ix *PageIndex) ResolveEntry(e model.StatementEntry) ([]int, error) {
	tables, err := ix.Resolve(e.StartPage, e.EndPage)
	if err != nil {
		return nil, fmt.Errorf("statement %q: %w", e.Name, err)
	}
	return tables, nil
}
