package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/llm"
	"github.com/ppiankov/coinsight/internal/model"
)

// Refiner corrects draft statement boundaries by showing the model the
// pages around them. Each statement then runs until the page before the
// next one starts; the last statement spans three pages.
type Refiner struct {
	provider llm.Provider
	settings
}

// NewRefiner returns a refiner backed by provider
func NewRefiner(provider llm.Provider, opts ...Option) *Refiner {
	return &Refiner{provider: provider, settings: newSettings(opts)}
}

// Refine returns entries with corrected start pages and derived end pages.
// entries must be non-empty and hold valid page indices of doc.
func (r *Refiner) Refine(ctx context.Context, doc *model.ParsedDocument, entries []model.StatementEntry) ([]model.StatementEntry, int, error) {
	if len(entries) == 0 {
		return nil, 0, nil
	}
	if r.provider == nil {
		return nil, 0, fmt.Errorf("refine boundaries: no text-generation provider configured")
	}
	last := len(doc.Pages) - 1
	if last < 0 {
		return nil, 0, fmt.Errorf("refine boundaries: document has no pages")
	}

	lo, hi := entries[0].StartPage, entries[0].StartPage
	for _, e := range entries {
		lo = min(lo, e.StartPage)
		hi = max(hi, e.StartPage)
	}
	lo = clamp(lo-r.window, 0, last)
	hi = clamp(hi+r.window, 0, last)

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Messages: llm.Conversation{}.
			System(refineInstruction).
			User(refineContent(doc, entries, lo, hi)),
		Temperature: 0.1,
		TopP:        0.95,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("refine boundaries: %w", err)
	}

	starts, err := refinedStarts(resp.Text, len(entries))
	if err != nil {
		return nil, resp.TokensUsed, fmt.Errorf("refine boundaries: %w", err)
	}

	refined := make([]model.StatementEntry, len(entries))
	for i, e := range entries {
		refined[i] = model.StatementEntry{Name: e.Name, StartPage: clamp(starts[i], 0, last)}
	}
	for i := range refined {
		end := refined[i].StartPage + 2
		if i+1 < len(refined) {
			end = refined[i+1].StartPage - 1
		}
		refined[i].EndPage = clamp(end, refined[i].StartPage, last)
	}

	r.logger.Debug("boundaries refined",
		zap.Int("statements", len(refined)),
		zap.Int("window_start", lo),
		zap.Int("window_end", hi))
	return refined, resp.TokensUsed, nil
}

// refineContent renders "Drafted Statement: [...] Content: {idx: text, ...}"
// with page keys in ascending order
func refineContent(doc *model.ParsedDocument, entries []model.StatementEntry, lo, hi int) string {
	draft := make([][2]string, 0, len(entries))
	for _, e := range entries {
		draft = append(draft, [2]string{e.Name, strconv.Itoa(e.StartPage)})
	}
	draftJSON, _ := json.Marshal(draft)

	var sb strings.Builder
	sb.WriteString("Drafted Statement: ")
	sb.Write(draftJSON)
	sb.WriteString(" Content: {")
	for i := lo; i <= hi; i++ {
		if i > lo {
			sb.WriteString(", ")
		}
		text, _ := json.Marshal(doc.Pages[i].Text())
		fmt.Fprintf(&sb, "%d: %s", i, text)
	}
	sb.WriteString("}")
	return sb.String()
}

// refinedStarts reads one start page per statement. A well-formed list
// of pairs is preferred; otherwise the integers of the reply are taken
// in order.
func refinedStarts(reply string, want int) ([]int, error) {
	if pairs, err := ParsePairs(reply); err == nil && len(pairs) >= want {
		starts := make([]int, 0, want)
		for _, p := range pairs[:want] {
			n, err := PrintedPage(p)
			if err != nil {
				break
			}
			starts = append(starts, n)
		}
		if len(starts) == want {
			return starts, nil
		}
	}

	numbers := firstNumber.FindAllString(reply, -1)
	if len(numbers) < want {
		return nil, fmt.Errorf("reply has %d page numbers for %d statements: %w", len(numbers), want, ErrMalformedResponse)
	}
	starts := make([]int, want)
	for i := range starts {
		n, err := strconv.Atoi(numbers[i])
		if err != nil {
			return nil, fmt.Errorf("page %q: %w", numbers[i], ErrMalformedResponse)
		}
		starts[i] = n
	}
	return starts, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
