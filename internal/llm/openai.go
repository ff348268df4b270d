package llm

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI and Azure OpenAI
type OpenAIProvider struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "openai",
	}, nil
}

// NewAzureOpenAIProvider creates a provider for an Azure OpenAI deployment.
// config.Model is the deployment (engine) name and is sent unchanged.
func NewAzureOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Azure OpenAI API key is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("Azure OpenAI endpoint (base URL) is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("Azure OpenAI deployment name (model) is required")
	}

	clientConfig := openai.DefaultAzureConfig(config.APIKey, config.BaseURL)
	if config.APIVersion != "" {
		clientConfig.APIVersion = config.APIVersion
	}
	clientConfig.AzureModelMapperFunc = func(model string) string {
		return model
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "azure",
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "OpenAI API check failed: %v\n", err)
		return false
	}
	return true
}

// DefaultModel is the configured model (the deployment on azure), or
// gpt-4o-mini
func (p *OpenAIProvider) DefaultModel() string {
	if p.config.Model != "" {
		return p.config.Model
	}
	return openai.GPT4oMini
}

// Complete runs a chat completion against the Chat Completions API
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:            model,
		Messages:         messages,
		MaxTokens:        resolveMaxTokens(req, p.config),
		Temperature:      nonZeroTemperature(req.Temperature),
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func openAIRole(r Role) string {
	switch r {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// nonZeroTemperature keeps an explicit 0 from being dropped by omitempty,
// which would make the API fall back to its default of 1
func nonZeroTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
