package backend

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Yates-Labs/storyteller/internal/config"
)

// ChatCompletions implements Backend for any service speaking the OpenAI chat
// completions API. OpenAI itself and Mistral both use it.
type ChatCompletions struct {
	kind     Kind
	client   openai.Client
	apiKey   string
	settings Settings
}

// NewOpenAI creates the OpenAI backend.
func NewOpenAI(cfg config.ModelConfig, maxTokens int, temperature float32) *ChatCompletions {
	return newChatCompletions(KindOpenAI, cfg, maxTokens, temperature)
}

// NewMistral creates the Mistral backend against its OpenAI-compatible endpoint.
func NewMistral(cfg config.ModelConfig, maxTokens int, temperature float32) *ChatCompletions {
	return newChatCompletions(KindMistral, cfg, maxTokens, temperature)
}

func newChatCompletions(kind Kind, cfg config.ModelConfig, maxTokens int, temperature float32) *ChatCompletions {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &ChatCompletions{
		kind:   kind,
		client: openai.NewClient(opts...),
		apiKey: cfg.APIKey,
		settings: Settings{
			Model:       cfg.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
	}
}

func (c *ChatCompletions) Kind() Kind { return c.kind }

// Available reports whether an API key is configured.
func (c *ChatCompletions) Available(ctx context.Context) bool {
	return c.apiKey != ""
}

// Generate sends the prompt as a single user message.
func (c *ChatCompletions) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", generationError(c.kind, "API key not configured")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.settings.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	if c.settings.Temperature > 0 {
		params.Temperature = openai.Float(float64(c.settings.Temperature))
	}
	if c.settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.settings.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", generationError(c.kind, "%v", err)
	}

	if len(completion.Choices) == 0 {
		return "", generationError(c.kind, "no response generated")
	}

	return storyText(c.kind, completion.Choices[0].Message.Content)
}
