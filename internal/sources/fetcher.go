// Package sources fetches the raw material of an analysis: corporate
// homepage text, news articles and the latest annual report.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/cache"
	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/util"
	"github.com/ppiankov/coinsight/internal/worker"
)

var (
	// ErrDisallowed is returned when robots.txt forbids a URL
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrTooLarge is returned when a download exceeds its size limit
	ErrTooLarge = errors.New("response exceeds size limit")
)

// StatusError is a non-2xx response
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status: %s", e.URL, e.Status)
}

// Fetcher performs GET requests with browser-like headers, a per-host
// rate limit, an optional response cache and optional robots.txt checks
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// FetchResult contains a response body and metadata
type FetchResult struct {
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
	FinalURL    string `json:"final_url"`
	FromCache   bool   `json:"-"`
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithLimiter rate limits requests per host
func WithLimiter(l *worker.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithRobots checks robots.txt before every page fetch
func WithRobots(r *util.RobotsChecker) Option {
	return func(f *Fetcher) { f.robots = r }
}

// WithCache caches successful page bodies for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// NewFetcher creates a fetcher from the HTTP configuration
func NewFetcher(cfg model.HTTPConfig, opts ...Option) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy, ""),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client returns the underlying HTTP client
func (f *Fetcher) Client() *http.Client {
	return f.httpClient
}

// Fetch retrieves a page. Bodies beyond the configured limit are truncated.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.CacheKey(rawURL)
	if f.cache != nil {
		var cached FetchResult
		if cache.GetJSON(f.cache, key, &cached) {
			f.logger.Debug("cache hit", zap.String("url", rawURL))
			cached.FromCache = true
			return &cached, nil
		}
	}

	if f.robots != nil {
		decision, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("GET %s: %w", rawURL, ErrDisallowed)
		}
		if decision.CrawlDelay > 0 && f.limiter != nil {
			if host, err := hostOf(rawURL); err == nil {
				f.limiter.Slow(host, decision.CrawlDelay)
			}
		}
	}

	result, err := f.get(ctx, rawURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", f.maxBytes, false)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := cache.SetJSON(f.cache, key, result, f.cacheTTL); err != nil {
			f.logger.Warn("cache write failed", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return result, nil
}

// Download retrieves a binary resource in full. It fails with
// ErrTooLarge rather than truncating. Downloads are never cached.
func (f *Fetcher) Download(ctx context.Context, rawURL string, maxBytes int64) (*FetchResult, error) {
	return f.get(ctx, rawURL, "application/pdf,*/*;q=0.8", maxBytes, true)
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string, maxBytes int64, strict bool) (*FetchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.google.com/")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode, Status: resp.Status}
	}

	limit := maxBytes
	if strict && limit > 0 {
		limit++
	}
	var body []byte
	if limit > 0 {
		body, err = io.ReadAll(io.LimitReader(resp.Body, limit))
	} else {
		body, err = io.ReadAll(resp.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if strict && maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("GET %s: %w (%d bytes)", rawURL, ErrTooLarge, maxBytes)
	}

	f.logger.Debug("fetched",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}
