package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/coinsight/internal/cache"
)

// CachedProvider memoizes completions keyed by the full request.
// Re-running an analysis on the same report does not re-bill the model.
type CachedProvider struct {
	inner Provider
	store cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps p. A nil cache returns p unchanged.
func NewCachedProvider(p Provider, c cache.Cache, ttl time.Duration) Provider {
	if p == nil || c == nil {
		return p
	}
	return &CachedProvider{inner: p, store: c, ttl: ttl}
}

// Name returns the wrapped provider's name
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// DefaultModel delegates to the wrapped provider
func (p *CachedProvider) DefaultModel() string {
	return EffectiveModel(p.inner, CompletionRequest{})
}

// IsAvailable delegates to the wrapped provider
func (p *CachedProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

// Complete returns a cached response when one exists
func (p *CachedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	key := requestKey(p.inner.Name(), EffectiveModel(p.inner, req), req)

	var cached CompletionResponse
	if cache.GetJSON(p.store, key, &cached) {
		cached.TokensUsed = 0
		return &cached, nil
	}

	resp, err := p.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = cache.SetJSON(p.store, key, resp, p.ttl)
	return resp, nil
}

func requestKey(provider, model string, req CompletionRequest) string {
	parts := []string{
		provider,
		model,
		fmt.Sprintf("%g|%g|%d|%g|%g", req.Temperature, req.TopP, req.MaxTokens, req.FrequencyPenalty, req.PresencePenalty),
	}
	for _, m := range req.Messages {
		parts = append(parts, string(m.Role), m.Content)
	}
	return cache.Key("llm", parts...)
}
