package insight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/coinsight/internal/llm/llmtest"
	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/store"
)

func TestFlatten(t *testing.T) {
	got := Flatten(model.RenderedContent{
		{Category: model.CategoryProfitOrLoss, Content: "| A |\n| :--- |"},
		{Category: model.CategoryCashFlow, Content: ""},
	})
	want := "profit_or_loss \n| A |\n| :--- | cash_flow"
	if got != want {
		t.Errorf("Flatten = %q, want %q", got, want)
	}
}

func TestSynthesizer_Synthesize(t *testing.T) {
	mock := llmtest.New("```markdown\n[STATEMENT] CONSOLIDATED STATEMENT OF CASH FLOWS\n[1] Cash flows from operating activities: 10\n```")
	s := NewSynthesizer(mock)

	res, err := s.Synthesize(context.Background(), model.RenderedContent{
		{Category: model.CategoryCashFlow, Content: "| Cash | 10 |"},
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if strings.HasPrefix(res.Text, "```") {
		t.Errorf("Expected fence to be stripped: %q", res.Text)
	}
	if !strings.HasPrefix(res.Text, "[STATEMENT]") {
		t.Errorf("Unexpected text: %q", res.Text)
	}
	if res.Model != "mock-model" || res.TokensUsed != 10 {
		t.Errorf("Unexpected metadata: %+v", res)
	}

	req := mock.Requests[0]
	if req.Temperature != 0 || req.TopP != 0.95 || req.MaxTokens != 2000 {
		t.Errorf("Unexpected sampling: %+v", req)
	}
	if got := mock.LastUser(0); got != "Statements: cash_flow \n| Cash | 10 |" {
		t.Errorf("Unexpected user turn: %q", got)
	}
	if !strings.Contains(req.Messages[0].Content, "[11] Deferred tax asset") {
		t.Error("Expected the fixed format in the system turn")
	}
}

func TestSynthesizer_NoProvider(t *testing.T) {
	if _, err := NewSynthesizer(nil).Synthesize(context.Background(), nil); err == nil {
		t.Fatal("Expected error without provider")
	}
}

func TestBackground_Overview(t *testing.T) {
	st := store.New(t.TempDir())

	mock := llmtest.New("MTR runs the railway.")
	b := NewBackground(mock, st)

	if _, err := b.Overview(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound without snapshots, got %v", err)
	}
	if mock.Calls() != 0 {
		t.Fatalf("Expected no model call, got %d", mock.Calls())
	}

	if err := st.SaveNews(&model.NewsSnapshot{
		Date:    "20240101",
		Results: []model.NewsArticle{{Title: "Fare review"}},
	}); err != nil {
		t.Fatal(err)
	}
	home := &model.HomepageSnapshot{Date: "20240102"}
	for i := 0; i < 12; i++ {
		home.Results = append(home.Results, model.HomepagePage{Link: "https://example.com/" + string(rune('a'+i)), Content: "text"})
	}
	if err := st.SaveHomepage(home); err != nil {
		t.Fatal(err)
	}

	ov, err := b.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if ov.Text != "MTR runs the railway." || ov.NewsDate != "20240101" || ov.HomepageDate != "20240102" {
		t.Errorf("Unexpected overview: %+v", ov)
	}

	user := mock.LastUser(0)
	if !strings.HasPrefix(user, `Statements: {"date":"20240101"`) {
		t.Errorf("Unexpected user turn prefix: %q", user)
	}
	if !strings.Contains(user, "https://example.com/j") || strings.Contains(user, "https://example.com/k") {
		t.Error("Expected only the first 10 homepage results")
	}
}

func TestCleanText(t *testing.T) {
	tests := map[string]string{
		"  plain  ":                   "plain",
		"```markdown\n# Title\n```":   "# Title",
		"```\nbody\n```":              "body",
		"```[STATEMENT] inline```":    "[STATEMENT] inline",
		"``` ``` keeps inner fences": "``` ``` keeps inner fences",
	}
	for in, want := range tests {
		if got := CleanText(in); got != want {
			t.Errorf("CleanText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSections(t *testing.T) {
	text := `Here is the analysis.
[STATEMENT] CONSOLIDATED STATEMENT OF PROFIT OR LOSS
[1] Profit before tax and interest expense: HK$ 10,000m
  up 5% year on year
[*] Unit of measurement: HK$ million

[STATEMENT] CONSOLIDATED STATEMENT OF CASH FLOWS
[5] Dividend paid: HK$ 8,000m`

	sections := Sections(text)
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	first := sections[0]
	if first.Title != "CONSOLIDATED STATEMENT OF PROFIT OR LOSS" || len(first.Items) != 2 {
		t.Fatalf("Unexpected first section: %+v", first)
	}
	if first.Items[0].Text != "HK$ 10,000m up 5% year on year" {
		t.Errorf("Expected continuation to be joined, got %q", first.Items[0].Text)
	}
	if first.Items[1].Key != "*" || first.Items[1].Label != "Unit of measurement" {
		t.Errorf("Unexpected unit item: %+v", first.Items[1])
	}
	if sections[1].Items[0].Key != "5" {
		t.Errorf("Unexpected cash flow item: %+v", sections[1].Items[0])
	}
}

func TestHTML(t *testing.T) {
	out := string(HTML("**bold**\n<script>alert(1)</script>"))
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("Expected rendered markdown, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("Expected raw HTML to be dropped, got %q", out)
	}
}
