// Package statement finds the primary financial statements in a parsed
// annual report and assigns each one a category.
package statement

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/llm"
	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/tables"
)

// DefaultTOCPages is how many leading pages are searched for the contents page
const DefaultTOCPages = 5

// Option configures a Locator, Refiner or Classifier
type Option func(*settings)

type settings struct {
	logger   *zap.Logger
	tocPages int
	window   int
}

// WithLogger sets the logger; the default discards
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTOCPages overrides the contents search prefix
func WithTOCPages(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.tocPages = n
		}
	}
}

// WithWindow sets how many pages around the draft boundaries are shown
// to the model during refinement
func WithWindow(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.window = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: zap.NewNop(), tocPages: DefaultTOCPages, window: 5}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Locator asks the model to read the contents page
type Locator struct {
	provider llm.Provider
	settings
}

// NewLocator returns a locator backed by provider
func NewLocator(provider llm.Provider, opts ...Option) *Locator {
	return &Locator{provider: provider, settings: newSettings(opts)}
}

// Pairs returns the (name, printed page) pairs listed in the document's
// leading pages, in the order the model lists them
func (l *Locator) Pairs(ctx context.Context, doc *model.ParsedDocument) ([]model.StatementPair, int, error) {
	if l.provider == nil {
		return nil, 0, fmt.Errorf("locate statements: no text-generation provider configured")
	}

	content := doc.PrefixText(l.tocPages)
	resp, err := l.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    locateConversation(content),
		Temperature: 0.1,
		TopP:        0.95,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("locate statements: %w", err)
	}

	pairs, err := ParsePairs(resp.Text)
	if err != nil {
		return nil, resp.TokensUsed, fmt.Errorf("locate statements: %w", err)
	}
	l.logger.Debug("statements located", zap.Int("count", len(pairs)), zap.Int("tokens", resp.TokensUsed))
	return pairs, resp.TokensUsed, nil
}

var firstNumber = regexp.MustCompile(`\d+`)

// PrintedPage extracts the page number from a pair's page text
func PrintedPage(p model.StatementPair) (int, error) {
	m := firstNumber.FindString(p.Page)
	if m == "" {
		return 0, fmt.Errorf("statement %q has page %q: %w", p.Name, p.Page, ErrMalformedResponse)
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("statement %q has page %q: %w", p.Name, p.Page, ErrMalformedResponse)
	}
	return n, nil
}

// Entries turns pairs into single-page entries. The printed number is
// looked up in ix, so front matter numbering never shifts a statement.
func Entries(pairs []model.StatementPair, ix *tables.PageIndex) ([]model.StatementEntry, error) {
	entries := make([]model.StatementEntry, 0, len(pairs))
	for _, p := range pairs {
		printed, err := PrintedPage(p)
		if err != nil {
			return nil, err
		}
		idx, err := ix.IndexForPageNumber(printed)
		if err != nil {
			return nil, fmt.Errorf("statement %q: %w", p.Name, err)
		}
		entries = append(entries, model.StatementEntry{Name: p.Name, StartPage: idx, EndPage: idx})
	}
	return entries, nil
}
