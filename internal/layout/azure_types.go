package layout

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/coinsight/internal/model"
)

// azureOperation is the body of a finished analyze operation
type azureOperation struct {
	Status        string              `json:"status"`
	AnalyzeResult *azureAnalyzeResult `json:"analyzeResult"`
}

type azureAnalyzeResult struct {
	APIVersion string       `json:"apiVersion"`
	ModelID    string       `json:"modelId"`
	Pages      []azurePage  `json:"pages"`
	Tables     []azureTable `json:"tables"`
}

type azurePage struct {
	PageNumber int         `json:"pageNumber"`
	Lines      []azureLine `json:"lines"`
}

type azureLine struct {
	Content string `json:"content"`
}

type azureTable struct {
	RowCount        int                   `json:"rowCount"`
	ColumnCount     int                   `json:"columnCount"`
	Cells           []azureCell           `json:"cells"`
	BoundingRegions []azureBoundingRegion `json:"boundingRegions"`
}

type azureCell struct {
	Kind        string `json:"kind,omitempty"`
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

type azureBoundingRegion struct {
	PageNumber int `json:"pageNumber"`
}

type azureErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Normalize maps a Document Intelligence analyze response into a
// ParsedDocument. Page order and table order follow the response.
func Normalize(raw []byte) (*model.ParsedDocument, error) {
	var op azureOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("decode layout result: %w", err)
	}
	if op.AnalyzeResult == nil {
		return nil, fmt.Errorf("layout result has no analyzeResult (status %q)", op.Status)
	}
	res := op.AnalyzeResult

	doc := &model.ParsedDocument{
		Pages:  make([]model.Page, 0, len(res.Pages)),
		Tables: make([]model.Table, 0, len(res.Tables)),
	}

	for i, p := range res.Pages {
		page := model.Page{
			Index:      i,
			PageNumber: p.PageNumber,
			Lines:      make([]model.Line, 0, len(p.Lines)),
		}
		for _, l := range p.Lines {
			page.Lines = append(page.Lines, model.Line{Content: l.Content})
		}
		doc.Pages = append(doc.Pages, page)
	}

	for _, t := range res.Tables {
		table := model.Table{
			RowCount:        t.RowCount,
			ColumnCount:     t.ColumnCount,
			Cells:           make([]model.Cell, 0, len(t.Cells)),
			BoundingRegions: make([]model.BoundingRegion, 0, len(t.BoundingRegions)),
		}
		for _, c := range t.Cells {
			table.Cells = append(table.Cells, model.Cell{
				RowIndex:    c.RowIndex,
				ColumnIndex: c.ColumnIndex,
				Content:     c.Content,
			})
		}
		for _, br := range t.BoundingRegions {
			table.BoundingRegions = append(table.BoundingRegions, model.BoundingRegion{PageNumber: br.PageNumber})
		}
		doc.Tables = append(doc.Tables, table)
	}

	return doc, nil
}
