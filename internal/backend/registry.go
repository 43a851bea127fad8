package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Yates-Labs/storyteller/internal/config"
)

// Registry holds the backends built at startup. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	backends map[Kind]Backend
	order    []Kind
}

// NewRegistry creates a registry from explicit backends. A later backend of
// the same kind replaces an earlier one.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[Kind]Backend)}
	for _, b := range backends {
		if _, exists := r.backends[b.Kind()]; !exists {
			r.order = append(r.order, b.Kind())
		}
		r.backends[b.Kind()] = b
	}
	return r
}

// FromConfig builds one backend per kind. Backends without credentials are
// still registered; they report themselves unavailable.
func FromConfig(ctx context.Context, cfg *config.Config) (*Registry, error) {
	gemini, err := NewGemini(ctx, cfg.Gemini, cfg.MaxTokens, cfg.Temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini backend: %w", err)
	}

	return NewRegistry(
		NewOllama(cfg.Ollama),
		NewOpenAI(cfg.OpenAI, cfg.MaxTokens, cfg.Temperature),
		NewClaude(cfg.Claude, cfg.MaxTokens),
		NewMistral(cfg.Mistral, cfg.MaxTokens, cfg.Temperature),
		gemini,
	), nil
}

// Get returns the backend registered for kind.
func (r *Registry) Get(kind Kind) (Backend, error) {
	b, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
	return b, nil
}

// All returns every registered backend in display order.
func (r *Registry) All() []Backend {
	out := make([]Backend, 0, len(r.order))
	for _, k := range displayOrder(r.order) {
		out = append(out, r.backends[k])
	}
	return out
}

// Close releases backends holding client connections.
func (r *Registry) Close() error {
	var errs []error
	for _, b := range r.backends {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// displayOrder sorts known kinds by Kinds and keeps unknown ones last.
func displayOrder(kinds []Kind) []Kind {
	present := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		present[k] = true
	}

	ordered := make([]Kind, 0, len(kinds))
	for _, k := range Kinds {
		if present[k] {
			ordered = append(ordered, k)
			delete(present, k)
		}
	}
	for _, k := range kinds {
		if present[k] {
			ordered = append(ordered, k)
		}
	}
	return ordered
}
