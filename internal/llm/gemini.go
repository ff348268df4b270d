package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google's Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a Gemini API client
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks if the provider is properly configured
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.Get(ctx, p.model(""), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gemini API check failed: %v\n", err)
		return false
	}
	return true
}

// Complete sends the conversation to generateContent
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	system, turns := splitSystem(req.Messages)
	if len(turns) == 0 {
		return nil, fmt.Errorf("gemini: conversation has no user turn")
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(resolveMaxTokens(req, p.config)),
	}
	if req.TopP > 0 {
		genConfig.TopP = genai.Ptr(req.TopP)
	}
	if req.FrequencyPenalty != 0 {
		genConfig.FrequencyPenalty = genai.Ptr(req.FrequencyPenalty)
	}
	if req.PresencePenalty != 0 {
		genConfig.PresencePenalty = genai.Ptr(req.PresencePenalty)
	}
	if system != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := p.model(req.Model)
	result, err := p.client.Models.GenerateContent(ctxWithTimeout, model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	tokens := 0
	if result.UsageMetadata != nil {
		tokens = int(result.UsageMetadata.TotalTokenCount)
	}
	if result.ModelVersion != "" {
		model = result.ModelVersion
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(result.Text()),
		Model:      model,
		TokensUsed: tokens,
	}, nil
}

// DefaultModel is the model sent when a request names none
func (p *GeminiProvider) DefaultModel() string {
	return p.model("")
}

func (p *GeminiProvider) model(requested string) string {
	if requested != "" {
		return requested
	}
	if p.config.Model != "" {
		return p.config.Model
	}
	return "gemini-2.0-flash"
}
