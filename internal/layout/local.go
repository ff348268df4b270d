package layout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/model"
)

// LocalExtractor reads the PDF text layer without any service. It finds
// no tables, so it is only useful for statement location and testing.
type LocalExtractor struct {
	logger *zap.Logger
}

// NewLocalExtractor returns an offline extractor
func NewLocalExtractor(o options) *LocalExtractor {
	return &LocalExtractor{logger: o.logger}
}

// Name returns the provider name
func (e *LocalExtractor) Name() string {
	return "local"
}

// Analyze extracts one Page per PDF page; page numbers are 1-based positions
func (e *LocalExtractor) Analyze(ctx context.Context, document io.Reader) (*Result, error) {
	content, err := io.ReadAll(document)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	doc := &model.ParsedDocument{}
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := model.Page{Index: i, PageNumber: i + 1}
		p := r.Page(i + 1)
		if !p.V.IsNull() {
			text, err := p.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("extract page %d: %w", i+1, err)
			}
			for _, l := range strings.Split(text, "\n") {
				if l = strings.TrimSpace(l); l != "" {
					page.Lines = append(page.Lines, model.Line{Content: l})
				}
			}
		}
		doc.Pages = append(doc.Pages, page)
	}

	e.logger.Info("local text extraction finished", zap.Int("pages", len(doc.Pages)))
	return &Result{Document: doc}, nil
}
