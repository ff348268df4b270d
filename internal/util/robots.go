package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// RobotsDecision is the outcome of a robots.txt lookup for one URL
type RobotsDecision struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker checks robots.txt compliance, caching rules per host
type RobotsChecker struct {
	rules      *gocache.Cache
	httpClient *http.Client
	userAgent  string
	agentToken string
}

// NewRobotsChecker creates a robots.txt checker. Rules are kept for ttl.
func NewRobotsChecker(userAgent string, client *http.Client, ttl time.Duration) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RobotsChecker{
		rules:      gocache.New(ttl, 2*ttl),
		httpClient: client,
		userAgent:  userAgent,
		agentToken: NormalizeUserAgent(userAgent),
	}
}

// Check reports whether rawURL may be fetched.
// An unreachable robots.txt allows everything.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsDecision, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RobotsDecision{}, fmt.Errorf("parse URL: %w", err)
	}

	data := r.rulesFor(ctx, parsed)
	if data == nil {
		return RobotsDecision{Allowed: true}, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	decision := RobotsDecision{Allowed: data.TestAgent(path, r.agentToken)}
	if group := data.FindGroup(r.agentToken); group != nil {
		decision.CrawlDelay = group.CrawlDelay
	}
	return decision, nil
}

// IsAllowed is a convenience method that returns only the allowed status
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	d, err := r.Check(ctx, rawURL)
	return err == nil && d.Allowed
}

func (r *RobotsChecker) rulesFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	if v, ok := r.rules.Get(u.Host); ok {
		data, _ := v.(*robotstxt.RobotsData)
		return data
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		// not cached: a later call may reach the host
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		data = nil
	}
	r.rules.SetDefault(u.Host, data)
	return data
}

// Clear drops all cached rules
func (r *RobotsChecker) Clear() {
	r.rules.Flush()
}

// NormalizeUserAgent extracts the product token used for robots.txt matching
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) > 0 {
		return strings.Split(parts[0], "/")[0]
	}
	return ua
}
