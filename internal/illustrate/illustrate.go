// Package illustrate generates story illustrations through an image API.
package illustrate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Yates-Labs/storyteller/internal/config"
)

var ErrImageFailed = errors.New("image generation failed")

// Illustrator turns a short scene description into an image.
type Illustrator interface {
	Available(ctx context.Context) bool
	Illustrate(ctx context.Context, description string) (*Image, error)
}

// Image is a generated illustration: a hosted URL, raw bytes, or both.
type Image struct {
	URL           string `json:"url,omitempty"`
	Data          []byte `json:"-"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// Src returns a value usable as an <img> src attribute.
func (i *Image) Src() string {
	if i == nil {
		return ""
	}
	if i.URL != "" {
		return i.URL
	}
	if len(i.Data) > 0 {
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString(i.Data)
	}
	return ""
}

// StylePrompt wraps a scene description in the children's book house style.
func StylePrompt(description string) string {
	return fmt.Sprintf("Children's book illustration style: %s. Soft, warm colors, gentle and magical atmosphere, perfect for bedtime.",
		strings.TrimSpace(description))
}

// OpenAIIllustrator implements Illustrator with the OpenAI Images API.
type OpenAIIllustrator struct {
	client openai.Client
	config config.ImageConfig
}

// NewOpenAIIllustrator creates an illustrator. Without an API key it reports
// itself unavailable.
func NewOpenAIIllustrator(cfg config.ImageConfig) *OpenAIIllustrator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIIllustrator{
		client: openai.NewClient(opts...),
		config: cfg,
	}
}

// Available reports whether an API key is configured.
func (o *OpenAIIllustrator) Available(ctx context.Context) bool {
	return o.config.APIKey != ""
}

// Illustrate requests a single image for the description.
func (o *OpenAIIllustrator) Illustrate(ctx context.Context, description string) (*Image, error) {
	if o.config.APIKey == "" {
		return nil, fmt.Errorf("%w: API key not configured", ErrImageFailed)
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: empty description", ErrImageFailed)
	}

	params := openai.ImageGenerateParams{
		Prompt: StylePrompt(description),
		Model:  openai.ImageModel(o.config.Model),
		N:      openai.Int(1),
	}
	if o.config.Size != "" {
		params.Size = openai.ImageGenerateParamsSize(o.config.Size)
	}
	if o.config.Quality != "" {
		params.Quality = openai.ImageGenerateParamsQuality(o.config.Quality)
	}

	resp, err := o.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageFailed, err)
	}

	if resp == nil || len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no image returned", ErrImageFailed)
	}

	data := resp.Data[0]
	img := &Image{URL: data.URL, RevisedPrompt: data.RevisedPrompt}
	if img.URL == "" && data.B64JSON != "" {
		decoded, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode image: %w", ErrImageFailed, err)
		}
		img.Data = decoded
	}

	if img.URL == "" && len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrImageFailed)
	}

	return img, nil
}
