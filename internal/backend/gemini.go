package backend

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Yates-Labs/storyteller/internal/config"
)

// Gemini calls the Google Gemini API.
type Gemini struct {
	client   *genai.Client
	settings Settings
}

// NewGemini creates the Gemini backend. Without an API key no client is
// created and the backend reports itself unavailable.
func NewGemini(ctx context.Context, cfg config.ModelConfig, maxTokens int, temperature float32) (*Gemini, error) {
	g := &Gemini{
		settings: Settings{
			Model:       cfg.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}
	g.client = client

	return g, nil
}

func (g *Gemini) Kind() Kind { return KindGemini }

// Available reports whether a client was created from an API key.
func (g *Gemini) Available(ctx context.Context) bool {
	return g.client != nil
}

// Generate sends the prompt and joins the text parts of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", generationError(KindGemini, "API key not configured")
	}

	model := g.client.GenerativeModel(g.settings.Model)
	if g.settings.Temperature > 0 {
		model.SetTemperature(g.settings.Temperature)
	}
	if g.settings.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.settings.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", generationError(KindGemini, "%v", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", generationError(KindGemini, "no content generated")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	return storyText(KindGemini, b.String())
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
