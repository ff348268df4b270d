// Package insight turns rendered statements and scraped snapshots into
// analysis text.
package insight

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/llm"
	"github.com/ppiankov/coinsight/internal/model"
)

// Result is one generated text
type Result struct {
	Text       string
	Model      string
	TokensUsed int
}

// Option configures a Synthesizer or Background
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Synthesizer writes the line-itemised financial analysis
type Synthesizer struct {
	provider llm.Provider
	options
}

// NewSynthesizer returns a synthesizer backed by provider
func NewSynthesizer(provider llm.Provider, opts ...Option) *Synthesizer {
	return &Synthesizer{provider: provider, options: buildOptions(opts)}
}

// Synthesize asks for the fixed-format analysis of content. The reply is
// returned as is, minus any wrapping code fence.
func (s *Synthesizer) Synthesize(ctx context.Context, content model.RenderedContent) (*Result, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("synthesize insight: no text-generation provider configured")
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: llm.Conversation{}.
			System(analysisInstruction).
			User("Statements: " + Flatten(content)),
		Temperature: 0,
		TopP:        0.95,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize insight: %w", err)
	}

	s.logger.Info("insight synthesized",
		zap.Int("categories", len(content)),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed))

	return &Result{Text: CleanText(resp.Text), Model: resp.Model, TokensUsed: resp.TokensUsed}, nil
}

// Flatten renders content as "label grid label grid ..." in category order
func Flatten(content model.RenderedContent) string {
	parts := make([]string, 0, 2*len(content))
	for _, c := range content {
		parts = append(parts, string(c.Category))
		if c.Content != "" {
			parts = append(parts, "\n"+c.Content)
		}
	}
	return strings.Join(parts, " ")
}
