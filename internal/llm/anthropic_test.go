package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicProvider_Complete_Success(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("Expected anthropic-version header 2023-06-01, got %s", r.Header.Get("anthropic-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		resp := anthropicResponse{
			ID:   "msg_123",
			Type: "message",
			Role: "assistant",
			Content: []anthropicContent{
				{Type: "text", Text: "cash_flow"},
			},
			Model: "claude-3-5-haiku-20241022",
			Usage: anthropicUsage{InputTokens: 10, OutputTokens: 20},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := CompletionRequest{
		Messages:  Conversation{}.System("classifier").Example("Statement of Cash Flows", "cash_flow").User("Cash flow statement"),
		MaxTokens: 1000,
	}
	resp, err := provider.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Text != "cash_flow" {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Expected 30 tokens used, got %d", resp.TokensUsed)
	}
	if got.System != "classifier" {
		t.Errorf("Expected system prompt lifted out, got %q", got.System)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("Expected 3 non-system messages, got %d", len(got.Messages))
	}
	if got.Messages[1].Role != "assistant" {
		t.Errorf("Expected assistant turn, got %s", got.Messages[1].Role)
	}
	if got.Temperature == nil || *got.Temperature != 0 {
		t.Errorf("Expected explicit zero temperature, got %v", got.Temperature)
	}
	if got.MaxTokens != 1000 {
		t.Errorf("Expected max_tokens 1000, got %d", got.MaxTokens)
	}
}

func TestAnthropicProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})

	_, err := provider.Complete(context.Background(), CompletionRequest{Messages: Conversation{}.User("x")})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "invalid_request_error") {
		t.Errorf("Expected error type in message, got %v", err)
	}
}

func TestAnthropicProvider_Complete_NoUserTurn(t *testing.T) {
	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"})

	_, err := provider.Complete(context.Background(), CompletionRequest{Messages: Conversation{}.System("only")})
	if err == nil {
		t.Fatal("Expected error for system-only conversation")
	}
}

func TestAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Fatal("Expected error without API key")
	}
}

func TestAnthropicProvider_Complete_TemperatureWinsOverTopP(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = nil
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{{Type: "text", Text: "ok"}}})
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})

	tests := []struct {
		temperature float32
		topP        float32
	}{
		{0, 0.95},
		{0.1, 0.95},
		{0, 0},
	}
	for _, tt := range tests {
		_, err := provider.Complete(context.Background(), CompletionRequest{
			Messages:    Conversation{}.User("x"),
			Temperature: tt.temperature,
			TopP:        tt.topP,
		})
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		temp, ok := got["temperature"].(float64)
		if !ok || float32(temp) != tt.temperature {
			t.Errorf("temperature %v: sent %v", tt.temperature, got["temperature"])
		}
		if _, ok := got["top_p"]; ok {
			t.Errorf("temperature %v: top_p sent alongside temperature", tt.temperature)
		}
	}
}

func TestAnthropicProvider_DefaultModel(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{{Type: "text", Text: "ok"}}})
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if _, err := provider.Complete(context.Background(), CompletionRequest{Messages: Conversation{}.User("x")}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Model != provider.DefaultModel() || !strings.HasPrefix(got.Model, "claude-") {
		t.Errorf("expected default claude model, got %q", got.Model)
	}
}
