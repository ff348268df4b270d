package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/model"
)

// AzureExtractor calls Azure AI Document Intelligence. Analysis is a
// long-running operation: the document is submitted, then the returned
// Operation-Location is polled until it succeeds or fails.
type AzureExtractor struct {
	endpoint     string
	apiKey       string
	model        string
	apiVersion   string
	locale       string
	pollInterval time.Duration
	timeout      time.Duration
	client       *http.Client
	logger       *zap.Logger
}

// NewAzureExtractor validates cfg and returns an extractor
func NewAzureExtractor(cfg model.LayoutConfig, o options) (*AzureExtractor, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("Azure Document Intelligence endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Azure Document Intelligence API key is required")
	}

	e := &AzureExtractor{
		endpoint:     strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		apiVersion:   cfg.APIVersion,
		locale:       cfg.Locale,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		client:       o.client,
		logger:       o.logger,
	}
	if e.model == "" {
		e.model = "prebuilt-layout"
	}
	if e.apiVersion == "" {
		e.apiVersion = "2023-07-31"
	}
	if e.pollInterval <= 0 {
		e.pollInterval = 2 * time.Second
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: 2 * time.Minute}
	}
	return e, nil
}

// Name returns the provider name
func (e *AzureExtractor) Name() string {
	return "azure"
}

// analyzeURL picks the route for the API generation. 2023 versions live
// under /formrecognizer, 2024 and later under /documentintelligence.
func (e *AzureExtractor) analyzeURL() string {
	prefix := "formrecognizer"
	if e.apiVersion >= "2024" {
		prefix = "documentintelligence"
	}

	q := url.Values{}
	q.Set("api-version", e.apiVersion)
	if e.locale != "" {
		q.Set("locale", e.locale)
	}
	return fmt.Sprintf("%s/%s/documentModels/%s:analyze?%s", e.endpoint, prefix, url.PathEscape(e.model), q.Encode())
}

// Analyze submits the document and waits for the result
func (e *AzureExtractor) Analyze(ctx context.Context, document io.Reader) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body, err := io.ReadAll(document)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	operation, err := e.submit(ctx, body)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("layout analysis submitted", zap.String("operation", operation), zap.Int("bytes", len(body)))

	raw, err := e.poll(ctx, operation)
	if err != nil {
		return nil, err
	}

	doc, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	e.logger.Info("layout analysis finished",
		zap.Int("pages", len(doc.Pages)),
		zap.Int("tables", len(doc.Tables)))

	return &Result{Document: doc, Raw: raw}, nil
}

func (e *AzureExtractor) submit(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.analyzeURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		return "", azureStatusError("submit", resp)
	}

	operation := resp.Header.Get("Operation-Location")
	if operation == "" {
		return "", fmt.Errorf("submit document: response has no Operation-Location header")
	}
	return operation, nil
}

func (e *AzureExtractor) poll(ctx context.Context, operation string) ([]byte, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		raw, status, err := e.check(ctx, operation)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(status) {
		case "succeeded":
			return raw, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("layout analysis %s: %s", status, azureFailureMessage(raw))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for layout analysis: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (e *AzureExtractor) check(ctx context.Context, operation string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operation, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("poll layout analysis: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", azureStatusError("poll", resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read poll response: %w", err)
	}

	var head struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, "", fmt.Errorf("decode poll response: %w", err)
	}
	return raw, head.Status, nil
}

func azureStatusError(step string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr azureErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("%s layout analysis: HTTP %d: %s: %s", step, resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
	}
	return fmt.Errorf("%s layout analysis: HTTP %d: %s", step, resp.StatusCode, strings.TrimSpace(string(body)))
}

func azureFailureMessage(raw []byte) string {
	var r azureErrorResponse
	if json.Unmarshal(raw, &r) == nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return "no error detail"
}
