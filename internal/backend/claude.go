package backend

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Yates-Labs/storyteller/internal/config"
)

// Claude calls the Anthropic messages API.
type Claude struct {
	client   anthropic.Client
	apiKey   string
	settings Settings
}

// NewClaude creates the Claude backend.
func NewClaude(cfg config.ModelConfig, maxTokens int) *Claude {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Claude{
		client: anthropic.NewClient(opts...),
		apiKey: cfg.APIKey,
		settings: Settings{
			Model:     cfg.Model,
			MaxTokens: maxTokens,
		},
	}
}

func (c *Claude) Kind() Kind { return KindClaude }

// Available reports whether an API key is configured.
func (c *Claude) Available(ctx context.Context) bool {
	return c.apiKey != ""
}

// Generate sends the prompt as a single user message and returns the
// concatenated text blocks of the reply.
func (c *Claude) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", generationError(KindClaude, "API key not configured")
	}

	maxTokens := c.settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.settings.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", generationError(KindClaude, "%v", err)
	}

	if len(message.Content) == 0 {
		return "", generationError(KindClaude, "no content in response")
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return storyText(KindClaude, b.String())
}
