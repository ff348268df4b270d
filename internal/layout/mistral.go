package layout

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/model"
)

const (
	mistralBaseURL = "https://api.mistral.ai/v1"
	mistralModel   = "mistral-ocr-latest"
)

// MistralExtractor uses Mistral OCR, which returns one markdown page per
// PDF page. Pipe tables in that markdown become document tables.
type MistralExtractor struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewMistralExtractor validates cfg and returns an extractor
func NewMistralExtractor(cfg model.LayoutConfig, o options) (*MistralExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Mistral API key is required")
	}

	e := &MistralExtractor{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.Endpoint, "/"),
		model:   cfg.Model,
		client:  o.client,
		logger:  o.logger,
	}
	if e.baseURL == "" {
		e.baseURL = mistralBaseURL
	}
	if e.model == "" || e.model == "prebuilt-layout" {
		e.model = mistralModel
	}
	if e.client == nil {
		e.client = http.DefaultClient
	}
	return e, nil
}

// Name returns the provider name
func (e *MistralExtractor) Name() string {
	return "mistral"
}

type mistralOCRRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralOCRResponse struct {
	Model string           `json:"model"`
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
}

// Analyze uploads the PDF inline as a data URL
func (e *MistralExtractor) Analyze(ctx context.Context, document io.Reader) (*Result, error) {
	pdf, err := io.ReadAll(document)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	body, err := json.Marshal(mistralOCRRequest{
		Model: e.model,
		Document: mistralDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Mistral OCR request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr mistralErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil {
			if msg := firstNonEmpty(apiErr.Error.Message, apiErr.Message); msg != "" {
				return nil, fmt.Errorf("Mistral OCR error (status %d): %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("Mistral OCR error (status %d): %s", resp.StatusCode, string(raw))
	}

	var ocr mistralOCRResponse
	if err := json.Unmarshal(raw, &ocr); err != nil {
		return nil, fmt.Errorf("decode Mistral OCR response: %w", err)
	}

	doc := &model.ParsedDocument{}
	for i, p := range ocr.Pages {
		page := model.Page{Index: i, PageNumber: p.Index + 1, Lines: markdownLines(p.Markdown)}
		doc.Pages = append(doc.Pages, page)

		for _, t := range markdownTables([]byte(p.Markdown)) {
			t.BoundingRegions = []model.BoundingRegion{{PageNumber: page.PageNumber}}
			doc.Tables = append(doc.Tables, t)
		}
	}

	e.logger.Info("layout analysis finished",
		zap.String("model", ocr.Model),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("tables", len(doc.Tables)))

	return &Result{Document: doc, Raw: raw}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
