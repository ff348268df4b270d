package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements per-host rate limiting. A host may be slowed
// further when its robots.txt asks for a crawl delay.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's host is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// Slow lowers the rate for host to one request per delay.
// It never raises a rate that is already slower.
func (l *Limiter) Slow(host string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	limit := rate.Every(delay)

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.limiters[host]; ok {
		if existing.Limit() <= limit {
			return
		}
		existing.SetLimit(limit)
		existing.SetBurst(1)
		return
	}
	l.limiters[host] = rate.NewLimiter(limit, 1)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = limiter
	}
	return limiter
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL has no host: %s", rawURL)
	}
	return parsed.Host, nil
}
