package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/coinsight/internal/model"
)

func testDocument() *model.ParsedDocument {
	return &model.ParsedDocument{Tables: []model.Table{
		{
			RowCount:        2,
			BoundingRegions: []model.BoundingRegion{{PageNumber: 120}},
			Cells: []model.Cell{
				{RowIndex: 0, ColumnIndex: 0, Content: "Item"},
				{RowIndex: 0, ColumnIndex: 1, Content: "2023"},
				{RowIndex: 1, ColumnIndex: 0, Content: "Revenue"},
				{RowIndex: 1, ColumnIndex: 1, Content: "(1,234)"},
			},
		},
		{
			RowCount: 1,
			Cells:    []model.Cell{{RowIndex: 0, ColumnIndex: 0, Content: "Cash"}},
		},
	}}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	err := WriteWorkbook(&buf, testDocument(), []model.CategoryTables{
		{Category: model.CategoryProfitOrLoss, Tables: []int{0}},
		{Category: model.CategoryCashFlow, Tables: []int{1, 7}},
	})
	if err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "profit_or_loss" || sheets[1] != "cash_flow" {
		t.Fatalf("Unexpected sheets: %v", sheets)
	}

	rows, err := f.GetRows("profit_or_loss")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "Table 0 (page 120)" {
		t.Fatalf("Unexpected rows: %v", rows)
	}
	if rows[1][0] != "Item" || rows[2][0] != "Revenue" || rows[2][1] != "-1234" {
		t.Errorf("Unexpected table rows: %v", rows)
	}

	rows, err = f.GetRows("cash_flow")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Table 1" || rows[1][0] != "Cash" {
		t.Errorf("Unexpected cash flow rows: %v", rows)
	}
}

func TestWriteWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, &model.ParsedDocument{}, nil); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	v, _ := f.GetCellValue("Sheet1", "A1")
	if v != "No statements were resolved" {
		t.Errorf("Unexpected placeholder %q", v)
	}
}

func TestWriteMarkdown(t *testing.T) {
	report := &model.AnalysisReport{
		RunID:      "run-1",
		ReportPath: "data/annual_report.pdf",
		LLM:        model.LLMInfo{Provider: "openai", Model: "gpt-4o-mini"},
		Entries: []model.StatementEntry{
			{Name: "CONSOLIDATED CASH FLOW STATEMENT", StartPage: 122, EndPage: 124},
		},
		Classified: map[string]string{"CONSOLIDATED CASH FLOW STATEMENT": "cash_flow"},
		Insight:    "[STATEMENT] CONSOLIDATED STATEMENT OF CASH FLOWS\n[5] Dividend paid: HK$ 8,000m",
		Rendered: model.RenderedContent{
			{Category: model.CategoryCashFlow, Content: "| Cash |\n| :--- |"},
			{Category: model.CategoryProfitOrLoss},
		},
	}

	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, report); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Annual Report Analysis",
		"- **Model:** gpt-4o-mini (openai)",
		"| CONSOLIDATED CASH FLOW STATEMENT | cash_flow | 122-124 |",
		"### CONSOLIDATED STATEMENT OF CASH FLOWS",
		"- **Dividend paid:** HK$ 8,000m",
		"### profit_or_loss\n\n_No tables found._",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
}
