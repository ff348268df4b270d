package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_Complete_Success(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		resp := ollamaChatResponse{
			Model:           "llama3.1",
			Message:         ollamaMessage{Role: "assistant", Content: "Overall revenue grew."},
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{
		BaseURL: server.URL,
		Model:   "llama3.1",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages:  Conversation{}.System("analyst").User("tables"),
		TopP:      0.95,
		MaxTokens: 2000,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Text != "Overall revenue grew." {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Expected 30 tokens, got %d", resp.TokensUsed)
	}
	if got.Stream {
		t.Error("Expected non-streaming request")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("Unexpected messages: %+v", got.Messages)
	}
	if got.Options.NumPredict != 2000 {
		t.Errorf("Expected num_predict 2000, got %d", got.Options.NumPredict)
	}
}

func TestOllamaProvider_Complete_EstimatesTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   "mistral",
			Message: ollamaMessage{Role: "assistant", Content: "12345678"},
			Done:    true,
		})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "mistral", Timeout: 5})

	resp, err := provider.Complete(context.Background(), CompletionRequest{Messages: Conversation{}.User("abcdefgh")})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.TokensUsed != 4 {
		t.Errorf("Expected estimated 4 tokens, got %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Complete_RequiresModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := provider.Complete(context.Background(), CompletionRequest{Messages: Conversation{}.User("x")})
	if err == nil || !strings.Contains(err.Error(), "model must be specified") {
		t.Fatalf("Expected model error, got %v", err)
	}
}

func TestOllamaProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "nope", Timeout: 5})

	_, err := provider.Complete(context.Background(), CompletionRequest{Messages: Conversation{}.User("x")})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("Expected not found error, got %v", err)
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}
}
