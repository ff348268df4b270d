package statement

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/llm"
	"github.com/ppiankov/coinsight/internal/model"
)

// Classifier maps a free-text statement title onto the closed category set
type Classifier struct {
	provider llm.Provider
	settings
}

// NewClassifier returns a classifier. With a nil provider it falls back
// to keyword matching.
func NewClassifier(provider llm.Provider, opts ...Option) *Classifier {
	return &Classifier{provider: provider, settings: newSettings(opts)}
}

// Classify returns exactly one category for name. Replies outside the
// closed set become CategoryNotApplicable.
func (c *Classifier) Classify(ctx context.Context, name string) (model.StatementCategory, int, error) {
	if c.provider == nil {
		return GuessCategory(name), 0, nil
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    classifyConversation(name),
		Temperature: 0,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", 0, fmt.Errorf("classify %q: %w", name, err)
	}

	category := NormalizeLabel(resp.Text)
	if category == model.CategoryNotApplicable && !isNotApplicable(resp.Text) {
		c.logger.Warn("unrecognized category label",
			zap.String("statement", name),
			zap.String("reply", truncate(resp.Text, 80)))
	}
	return category, resp.TokensUsed, nil
}

var labelAliases = map[string]model.StatementCategory{
	"na":                  model.CategoryNotApplicable,
	"n/a":                 model.CategoryNotApplicable,
	"none":                model.CategoryNotApplicable,
	"not_applicable":      model.CategoryNotApplicable,
	"comprehensive_incom": model.CategoryComprehensiveIncome,
}

// NormalizeLabel validates a classifier reply against the closed set
func NormalizeLabel(reply string) model.StatementCategory {
	label := cleanLabel(reply)
	if c := model.StatementCategory(label); c.Valid() {
		return c
	}
	if c, ok := labelAliases[label]; ok {
		return c
	}

	// chatty replies such as "The category is cash_flow."
	for _, c := range model.Categories() {
		if c != model.CategoryNotApplicable && strings.Contains(label, string(c)) {
			return c
		}
	}
	if strings.Contains(label, "comprehensive_incom") {
		return model.CategoryComprehensiveIncome
	}
	return model.CategoryNotApplicable
}

func isNotApplicable(reply string) bool {
	label := cleanLabel(reply)
	c, ok := labelAliases[label]
	return ok && c == model.CategoryNotApplicable
}

func cleanLabel(reply string) string {
	s := strings.ToLower(strings.TrimSpace(reply))
	s = strings.TrimFunc(s, func(r rune) bool {
		return r != '_' && r != '/' && (unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r))
	})
	return strings.Join(strings.Fields(s), " ")
}

// GuessCategory classifies a title by keywords. Profit or loss is tested
// first because combined titles ("profit or loss and other comprehensive
// income") are income statements.
func GuessCategory(name string) model.StatementCategory {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "profit or loss"), strings.Contains(n, "profit and loss"),
		strings.Contains(n, "income statement"):
		return model.CategoryProfitOrLoss
	case strings.Contains(n, "comprehensive income"):
		return model.CategoryComprehensiveIncome
	case strings.Contains(n, "financial position"), strings.Contains(n, "balance sheet"):
		return model.CategoryFinancialPosition
	case strings.Contains(n, "changes in equity"), strings.Contains(n, "in consolidated equity"),
		strings.Contains(n, "changes in") && strings.Contains(n, "equity"):
		return model.CategoryChangesInEquity
	case strings.Contains(n, "cash flow"):
		return model.CategoryCashFlow
	default:
		return model.CategoryNotApplicable
	}
}
