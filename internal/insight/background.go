package insight

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/llm"
	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/store"
)

// homepageLimit caps how many scraped pages go into the overview prompt
const homepageLimit = 10

// Background writes a short company overview from the news and homepage
// snapshots
type Background struct {
	provider llm.Provider
	store    *store.Store
	options
}

// NewBackground returns a Background reading snapshots from st
func NewBackground(provider llm.Provider, st *store.Store, opts ...Option) *Background {
	return &Background{provider: provider, store: st, options: buildOptions(opts)}
}

// Overview is a generated company overview and the snapshot dates it read
type Overview struct {
	Result
	NewsDate     string
	HomepageDate string
}

// Overview loads both snapshots and asks for the overview. A missing
// snapshot is reported as store.ErrNotFound.
func (b *Background) Overview(ctx context.Context) (*Overview, error) {
	news, err := b.store.LoadNews()
	if err != nil {
		return nil, fmt.Errorf("company overview: %w", err)
	}
	homepage, err := b.store.LoadHomepage()
	if err != nil {
		return nil, fmt.Errorf("company overview: %w", err)
	}
	if b.provider == nil {
		return nil, fmt.Errorf("company overview: no text-generation provider configured")
	}

	content, err := backgroundContent(news, homepage)
	if err != nil {
		return nil, fmt.Errorf("company overview: %w", err)
	}

	resp, err := b.provider.Complete(ctx, llm.CompletionRequest{
		Messages: llm.Conversation{}.
			System(backgroundInstruction).
			User("Statements: " + content),
		Temperature: 0,
		TopP:        0.95,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("company overview: %w", err)
	}

	b.logger.Info("company overview generated",
		zap.Int("articles", len(news.Results)),
		zap.Int("pages", min(len(homepage.Results), homepageLimit)),
		zap.Int("tokens", resp.TokensUsed))

	return &Overview{
		Result:       Result{Text: CleanText(resp.Text), Model: resp.Model, TokensUsed: resp.TokensUsed},
		NewsDate:     news.Date,
		HomepageDate: homepage.Date,
	}, nil
}

// backgroundContent is the news snapshot JSON followed by the JSON list
// of the first homepage results
func backgroundContent(news *model.NewsSnapshot, homepage *model.HomepageSnapshot) (string, error) {
	newsJSON, err := json.Marshal(news)
	if err != nil {
		return "", fmt.Errorf("encode news: %w", err)
	}
	pages := homepage.Results
	if len(pages) > homepageLimit {
		pages = pages[:homepageLimit]
	}
	if pages == nil {
		pages = []model.HomepagePage{}
	}
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return "", fmt.Errorf("encode homepage: %w", err)
	}
	return string(newsJSON) + string(pagesJSON), nil
}
