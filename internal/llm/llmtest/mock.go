// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ppiankov/coinsight/internal/llm"
)

// Responder computes a reply for one request
type Responder func(req llm.CompletionRequest) (string, error)

// Provider replies from a queue of canned responses, or from Respond
// when set. Every request is recorded.
type Provider struct {
	mu       sync.Mutex
	Replies  []string
	Respond  Responder
	Requests []llm.CompletionRequest
	Tokens   int
}

// New returns a provider that answers with replies in order
func New(replies ...string) *Provider {
	return &Provider{Replies: replies, Tokens: 10}
}

// Name returns "mock"
func (p *Provider) Name() string { return "mock" }

// IsAvailable is always true
func (p *Provider) IsAvailable(context.Context) bool { return true }

// Complete records req and returns the next reply
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)

	var text string
	switch {
	case p.Respond != nil:
		out, err := p.Respond(req)
		if err != nil {
			return nil, err
		}
		text = out
	case len(p.Replies) > 0:
		text = p.Replies[0]
		p.Replies = p.Replies[1:]
	default:
		return nil, fmt.Errorf("mock provider: no reply left for request %d", len(p.Requests))
	}

	return &llm.CompletionResponse{Text: strings.TrimSpace(text), Model: "mock-model", TokensUsed: p.Tokens}, nil
}

// Calls is the number of requests seen
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// LastUser returns the final user turn of request i
func (p *Provider) LastUser(i int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.Requests) {
		return ""
	}
	msgs := p.Requests[i].Messages
	for j := len(msgs) - 1; j >= 0; j-- {
		if msgs[j].Role == llm.RoleUser {
			return msgs[j].Content
		}
	}
	return ""
}
