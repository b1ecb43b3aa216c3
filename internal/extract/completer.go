package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	openai "github.com/sashabaranov/go-openai"

	"github.com/octobees/payadvice/internal/config"
)

// Completer sends one system + user prompt pair and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAICompleter talks to any OpenAI compatible chat API; by default xAI.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAICompleter builds a completer for the given base URL and model.
func NewOpenAICompleter(apiKey, baseURL, model string, temperature float32) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, errors.New("XAI_API_KEY must be set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(cfg), model: model, temperature: temperature}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// VertexCompleter uses a Gemini model on Vertex AI.
type VertexCompleter struct {
	client *genai.Client
	model  string
	temp   float32
}

// NewVertexCompleter connects to Vertex AI in the given project and region.
func NewVertexCompleter(ctx context.Context, project, region, model string, temperature float32) (*VertexCompleter, error) {
	if project == "" {
		return nil, errors.New("VERTEX_PROJECT must be set")
	}
	client, err := genai.NewClient(ctx, project, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexCompleter{client: client, model: model, temp: temperature}, nil
}

func (c *VertexCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(c.temp),
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("vertex returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

// Close releases the Vertex client.
func (c *VertexCompleter) Close() error {
	return c.client.Close()
}

// NewCompleter picks the provider configured in cfg.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case "vertex":
		model := cfg.Model
		if strings.HasPrefix(model, "grok") {
			model = "gemini-2.5-flash"
		}
		return NewVertexCompleter(ctx, cfg.VertexProject, cfg.VertexRegion, model, cfg.Temperature)
	default:
		return NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature)
	}
}

var (
	_ Completer = (*OpenAICompleter)(nil)
	_ Completer = (*VertexCompleter)(nil)
)
