package tables

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/coinsight/internal/model"
)

// sampleDocument has front matter numbered differently from page positions
func sampleDocument() *model.ParsedDocument {
	return &model.ParsedDocument{
		Pages: []model.Page{
			{Index: 0, PageNumber: 1},
			{Index: 1, PageNumber: 2},
			{Index: 2, PageNumber: 3},
			{Index: 3, PageNumber: 4},
		},
		Tables: []model.Table{
			{RowCount: 1, BoundingRegions: []model.BoundingRegion{{PageNumber: 2}}},
			{RowCount: 1, BoundingRegions: []model.BoundingRegion{{PageNumber: 3}, {PageNumber: 4}}},
			{RowCount: 1, BoundingRegions: []model.BoundingRegion{{PageNumber: 3}}},
			{RowCount: 1},
			{RowCount: 1, BoundingRegions: []model.BoundingRegion{{PageNumber: 4}}},
		},
	}
}

func TestBuildPageIndex_Idempotent(t *testing.T) {
	doc := sampleDocument()
	a := BuildPageIndex(doc)
	b := BuildPageIndex(doc)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("rebuilding the index changed it")
	}

	e, err := a.Entry(2)
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if !reflect.DeepEqual(e.Tables, []int{1, 2}) {
		t.Errorf("expected tables [1 2] on page index 2, got %v", e.Tables)
	}

	// first bounding region is authoritative: table 1 is not on page 4
	e, _ = a.Entry(3)
	if !reflect.DeepEqual(e.Tables, []int{4}) {
		t.Errorf("expected tables [4] on page index 3, got %v", e.Tables)
	}

	// the returned slice is a copy
	e.Tables[0] = 99
	again, _ := a.Entry(3)
	if again.Tables[0] != 4 {
		t.Error("Entry exposed internal state")
	}
}

func TestResolve_Union(t *testing.T) {
	ix := BuildPageIndex(sampleDocument())

	all, err := ix.Resolve(0, 3)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(all, []int{0, 1, 2, 4}) {
		t.Errorf("unexpected union %v", all)
	}

	for i := 0; i < ix.Len(); i++ {
		single, err := ix.Resolve(i, i)
		if err != nil {
			t.Fatalf("Resolve(%d, %d): %v", i, i, err)
		}
		e, _ := ix.Entry(i)
		if !reflect.DeepEqual(single, e.Tables) && !(len(single) == 0 && len(e.Tables) == 0) {
			t.Errorf("Resolve(%d, %d) = %v, want %v", i, i, single, e.Tables)
		}
	}
}

func TestResolve_Preconditions(t *testing.T) {
	ix := BuildPageIndex(sampleDocument())

	if _, err := ix.Resolve(3, 2); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := ix.Resolve(2, 4); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("expected ErrPageOutOfRange, got %v", err)
	}
	if _, err := ix.Resolve(-1, 0); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("expected ErrPageOutOfRange, got %v", err)
	}
	_, err := ix.ResolveEntry(model.StatementEntry{Name: "Cash flows", StartPage: 10, EndPage: 10})
	if !errors.Is(err, ErrPageOutOfRange) || !strings.Contains(err.Error(), "Cash flows") {
		t.Errorf("expected named out-of-range error, got %v", err)
	}
}

func TestIndexForPageNumber(t *testing.T) {
	doc := &model.ParsedDocument{Pages: []model.Page{
		{Index: 0, PageNumber: 1},
		{Index: 1, PageNumber: 10},
		{Index: 2, PageNumber: 11},
	}}
	ix := BuildPageIndex(doc)

	i, err := ix.IndexForPageNumber(10)
	if err != nil || i != 1 {
		t.Errorf("IndexForPageNumber(10) = %d, %v", i, err)
	}
	if _, err := ix.IndexForPageNumber(2); !errors.Is(err, ErrPageNumberNotFound) {
		t.Errorf("expected ErrPageNumberNotFound, got %v", err)
	}
}

func parseGrid(t *testing.T, grid string) [][]string {
	t.Helper()
	var rows [][]string
	for i, line := range strings.Split(grid, "\n") {
		if i == 1 {
			continue // separator
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			t.Fatalf("line %d is not a pipe row: %q", i, line)
		}
		var cells []string
		for _, c := range strings.Split(strings.Trim(line, "|"), "|") {
			cells = append(cells, strings.TrimSpace(c))
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestRenderTable_SparseRow(t *testing.T) {
	tbl := model.Table{
		RowCount: 2,
		Cells: []model.Cell{
			{RowIndex: 0, ColumnIndex: 0, Content: "A"},
			{RowIndex: 0, ColumnIndex: 1, Content: "B"},
			{RowIndex: 1, ColumnIndex: 0, Content: "1"},
		},
	}

	grid := RenderTable(tbl)
	rows := parseGrid(t, grid)
	want := [][]string{{"A", "B"}, {"1", ""}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("unexpected grid %q, parsed %v", grid, rows)
	}
	if RenderTable(tbl) != grid {
		t.Error("rendering is not deterministic")
	}
}

func TestRenderTable_HeaderSeparatorBody(t *testing.T) {
	tbl := model.Table{
		RowCount: 2,
		Cells: []model.Cell{
			{RowIndex: 0, ColumnIndex: 0, Content: "A"},
			{RowIndex: 0, ColumnIndex: 1, Content: "B"},
			{RowIndex: 1, ColumnIndex: 0, Content: "1"},
		},
	}

	want := "|   A | B   |\n|----:|:----|\n|   1 |     |"
	if got := RenderTable(tbl); got != want {
		t.Errorf("RenderTable() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderTable_HeaderWidenedToWidestRow(t *testing.T) {
	tbl := model.Table{
		RowCount: 3,
		Cells: []model.Cell{
			{RowIndex: 0, ColumnIndex: 0, Content: "HK$ million"},
			{RowIndex: 1, ColumnIndex: 0, Content: "Revenue"},
			{RowIndex: 1, ColumnIndex: 1, Content: "56,982"},
			{RowIndex: 1, ColumnIndex: 2, Content: "47,202"},
			{RowIndex: 2, ColumnIndex: 0, Content: "Profit | loss"},
		},
	}

	rows := parseGrid(t, RenderTable(tbl))
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if len(r) != 3 && !(i == 2 && len(r) == 4) {
			t.Errorf("row %d has %d cells: %v", i, len(r), r)
		}
	}
	if rows[0][1] != "" || rows[0][2] != "" {
		t.Errorf("expected padded header, got %v", rows[0])
	}
}

func TestRenderTable_Total(t *testing.T) {
	cases := []model.Table{
		{},
		{RowCount: 3},
		{RowCount: 1, Cells: []model.Cell{{RowIndex: 5, ColumnIndex: 0, Content: "ignored"}}},
		{RowCount: 2, Cells: []model.Cell{{RowIndex: 1, ColumnIndex: 2, Content: "x"}}},
		{RowCount: 1, Cells: []model.Cell{{RowIndex: 0, ColumnIndex: -1, Content: "bad"}}},
	}
	for i, tbl := range cases {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("case %d panicked: %v", i, r)
				}
			}()
			_ = RenderTable(tbl)
		}()
	}

	if got := RenderTable(model.Table{}); got != "" {
		t.Errorf("expected empty grid for empty table, got %q", got)
	}
	rows := parseGrid(t, RenderTable(cases[3]))
	if !reflect.DeepEqual(rows, [][]string{{"", "", ""}, {"", "", "x"}}) {
		t.Errorf("unexpected sparse grid %v", rows)
	}
}

func TestRenderTable_WideRunes(t *testing.T) {
	tbl := model.Table{
		RowCount: 2,
		Cells: []model.Cell{
			{RowIndex: 0, ColumnIndex: 0, Content: "港鐵"},
			{RowIndex: 1, ColumnIndex: 0, Content: "MTRC"},
		},
	}
	lines := strings.Split(RenderTable(tbl), "\n")
	if displayWidth(lines[0]) != displayWidth(lines[2]) {
		t.Errorf("columns misaligned:\n%s", strings.Join(lines, "\n"))
	}
}

func TestLooksNumeric(t *testing.T) {
	for _, s := range []string{"1,234", "(56)", "12.5%", "-7", "—"} {
		if !looksNumeric(s) {
			t.Errorf("expected %q numeric", s)
		}
	}
	for _, s := range []string{"Revenue", "2023/24", ""} {
		if looksNumeric(s) {
			t.Errorf("expected %q non-numeric", s)
		}
	}
}

func TestRenderCategories(t *testing.T) {
	doc := &model.ParsedDocument{Tables: []model.Table{
		{RowCount: 1, Cells: []model.Cell{{Content: "first"}}},
		{RowCount: 1, Cells: []model.Cell{{Content: "second"}}},
	}}
	out := RenderCategories(doc, []model.CategoryTables{
		{Category: model.CategoryCashFlow, Tables: []int{1, 0, 7}},
		{Category: model.CategoryProfitOrLoss, Tables: nil},
	})

	if len(out) != 2 || out[0].Category != model.CategoryCashFlow {
		t.Fatalf("unexpected categories %+v", out)
	}
	if strings.Index(out[0].Content, "second") > strings.Index(out[0].Content, "first") {
		t.Errorf("tables not in discovery order: %q", out[0].Content)
	}
	if out[1].Content != "" {
		t.Errorf("expected empty content, got %q", out[1].Content)
	}
}

func TestParseFigure(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234", 1234, true},
		{"(56)", -56, true},
		{" 12.5% ", 12.5, true},
		{"-7", -7, true},
		{"()", 0, false},
		{"HK$m", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFigure(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseFigure(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRows(t *testing.T) {
	rows := Rows(model.Table{
		RowCount: 2,
		Cells: []model.Cell{
			{RowIndex: 0, ColumnIndex: 0, Content: "A|B"},
			{RowIndex: 0, ColumnIndex: 1, Content: "C"},
			{RowIndex: 1, ColumnIndex: 0, Content: "1"},
		},
	})
	if len(rows) != 2 || len(rows[1]) != 2 {
		t.Fatalf("expected a 2x2 grid, got %v", rows)
	}
	if rows[0][0] != "A|B" || rows[1][1] != "" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if Rows(model.Table{}) != nil {
		t.Error("expected nil rows for an empty table")
	}
}
