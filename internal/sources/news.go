package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/model"
)

// ErrNoAPIKey is returned when the news API key is not configured
var ErrNoAPIKey = errors.New("news API key not configured")

// NewsClient queries the NewsAPI /v2/everything endpoint
type NewsClient struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

type newsResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsArticle `json:"articles"`
}

type newsArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// NewNewsClient creates a client. client may be nil.
func NewNewsClient(cfg model.NewsConfig, client *http.Client, logger *zap.Logger) *NewsClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://newsapi.org"
	}
	return &NewsClient{
		baseURL:    strings.TrimSuffix(base, "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		httpClient: client,
		logger:     logger,
		now:        time.Now,
	}
}

// Search returns a snapshot of the articles matching query
func (c *NewsClient) Search(ctx context.Context, query string) (*model.NewsSnapshot, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("q", query)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint := c.baseURL + "/v2/everything?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read news response: %w", err)
	}

	var parsed newsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{URL: c.baseURL + "/v2/everything", Code: resp.StatusCode, Status: resp.Status}
		}
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if parsed.Status != "ok" {
		return nil, fmt.Errorf("news search failed (%d %s): %s", resp.StatusCode, parsed.Code, parsed.Message)
	}

	results := make([]model.NewsArticle, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		results = append(results, model.NewsArticle{
			Source:      a.Source.Name,
			Author:      a.Author,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Content:     a.Content,
		})
	}

	c.logger.Info("news fetched",
		zap.String("query", query),
		zap.Int("articles", len(results)),
		zap.Int("total", parsed.TotalResults))

	return &model.NewsSnapshot{Date: model.DateStamp(c.now()), Results: results}, nil
}
