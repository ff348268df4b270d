package llm

import (
	"context"
	"strings"

	"github.com/ppiankov/coinsight/internal/model"
)

// Provider defines the interface for text-generation services
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one chat completion and returns the first choice
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ModelNamer is implemented by providers that can report the model used
// when a request leaves Model empty
type ModelNamer interface {
	DefaultModel() string
}

// EffectiveModel is req.Model, or p's default model when p reports one
func EffectiveModel(p Provider, req CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	if n, ok := p.(ModelNamer); ok {
		return n.DefaultModel()
	}
	return ""
}

// Role tags a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is an ordered conversation plus sampling parameters
type CompletionRequest struct {
	Messages []Message

	// Model overrides the configured model when set
	Model string

	Temperature      float32
	TopP             float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
}

// CompletionResponse contains the generated text
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "azure", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (deployment name for azure)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (Azure resource, Ollama host, test servers)
	BaseURL string

	// APIVersion is only used by azure
	APIVersion string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens caps responses when a request does not set its own
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   120,
		MaxTokens: 2000,
	}
}

// Conversation is a small builder for few-shot prompts
type Conversation []Message

// System appends a system turn
func (c Conversation) System(content string) Conversation {
	return append(c, Message{Role: RoleSystem, Content: content})
}

// User appends a user turn
func (c Conversation) User(content string) Conversation {
	return append(c, Message{Role: RoleUser, Content: content})
}

// Assistant appends an assistant turn
func (c Conversation) Assistant(content string) Conversation {
	return append(c, Message{Role: RoleAssistant, Content: content})
}

// Example appends a user/assistant pair
func (c Conversation) Example(user, assistant string) Conversation {
	return c.User(user).Assistant(assistant)
}

// splitSystem separates system turns (joined) from the rest
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

func resolveMaxTokens(req CompletionRequest, config Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return 1000
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig, httpConfig model.HTTPConfig) Config {
	return Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		APIVersion: modelConfig.APIVersion,
		Timeout:    modelConfig.Timeout,
		MaxTokens:  modelConfig.MaxTokens,
		HTTPProxy:  httpConfig.HTTPProxy,
		HTTPSProxy: httpConfig.HTTPSProxy,
	}
}
