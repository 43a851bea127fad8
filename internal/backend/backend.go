// Package backend provides the story-text generation backends. Each backend kind
// carries its own request construction and response parsing behind the shared
// Backend interface, and a Registry holds the set built from configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGenerationFailed   = errors.New("generation failed")
	ErrUnknownBackend     = errors.New("unknown backend")
	ErrBackendUnavailable = errors.New("backend is offline or not configured")
)

// Kind identifies a backend. It is the value submitted by the selection control.
type Kind string

const (
	KindOllama  Kind = "ollama"
	KindOpenAI  Kind = "openai"
	KindClaude  Kind = "claude"
	KindMistral Kind = "mistral"
	KindGemini  Kind = "gemini"
)

// Kinds lists every backend kind in display order.
var Kinds = []Kind{KindOllama, KindOpenAI, KindClaude, KindMistral, KindGemini}

var displayNames = map[Kind]string{
	KindOllama:  "Ollama (Local LLMs)",
	KindOpenAI:  "OpenAI (ChatGPT)",
	KindClaude:  "Claude (Anthropic)",
	KindMistral: "Mistral (Le Chat)",
	KindGemini:  "Gemini (Google)",
}

// ParseKind validates a user-supplied backend identifier.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := displayNames[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
	return k, nil
}

// DisplayName returns the human-readable name of the kind.
func (k Kind) DisplayName() string {
	if name, ok := displayNames[k]; ok {
		return name
	}
	return string(k)
}

func (k Kind) String() string { return string(k) }

// Checker reports whether a service is currently usable.
// It must not return errors: an unusable service simply reports false.
type Checker interface {
	Available(ctx context.Context) bool
}

// Backend defines the interface for story-text generation services.
// Implementations must be stateless and thread-safe.
type Backend interface {
	Checker

	// Kind returns the backend identifier.
	Kind() Kind

	// Generate produces text from a prompt using the configured model.
	// Every failure is wrapped in ErrGenerationFailed.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Descriptor is the view of a backend offered to the selection control.
type Descriptor struct {
	ID          Kind   `json:"id"`
	DisplayName string `json:"display_name"`
}

// Describe returns the descriptor of a backend.
func Describe(b Backend) Descriptor {
	return Descriptor{ID: b.Kind(), DisplayName: b.Kind().DisplayName()}
}

// Settings holds generation options shared by the cloud chat backends.
type Settings struct {
	// Model specifies the model identifier
	Model string

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int

	// Temperature controls randomness (0 = provider default)
	Temperature float32
}

// generationError wraps a backend failure so callers can match ErrGenerationFailed.
func generationError(kind Kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrGenerationFailed, kind, fmt.Sprintf(format, args...))
}

// storyText rejects blank responses as malformed.
func storyText(kind Kind, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", generationError(kind, "empty response")
	}
	return text, nil
}
