// Package story turns a user's story request into generated text by
// dispatching it to the chosen backend, and optionally illustrates the result.
package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Yates-Labs/storyteller/internal/backend"
	"github.com/Yates-Labs/storyteller/internal/illustrate"
)

var (
	ErrEmptyPrompt = errors.New("story prompt is empty")
	ErrEmptyStory  = errors.New("no existing story to continue")
)

// Request is one story submission from the form.
type Request struct {
	// ID correlates the request with its result; generated when empty
	ID string `json:"id,omitempty"`

	// Prompt is free-form story ideas
	Prompt string `json:"prompt"`

	// Names of the child and friends to feature
	Names string `json:"names,omitempty"`

	// Things the child likes
	Things string `json:"things,omitempty"`

	// Topic of the story
	Topic string `json:"topic,omitempty"`

	// Backend is the chosen generation backend
	Backend backend.Kind `json:"backend"`

	// WithImage requests an illustration
	WithImage bool `json:"generate_image,omitempty"`
}

// IsEmpty reports whether the request carries no prompt material at all.
func (r Request) IsEmpty() bool {
	for _, s := range []string{r.Prompt, r.Names, r.Things, r.Topic} {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// ChapterRequest asks for the next chapter of a story the client holds.
type ChapterRequest struct {
	ID      string       `json:"id,omitempty"`
	Story   string       `json:"story"`
	Backend backend.Kind `json:"backend"`
}

// Result is the generated story returned for exactly one request.
type Result struct {
	ID          string            `json:"id"`
	Backend     backend.Kind      `json:"backend"`
	Text        string            `json:"text"`
	Chapter     int               `json:"chapter"`
	Image       *illustrate.Image `json:"image,omitempty"`
	ImageError  string            `json:"image_error,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithProbeTimeout bounds the availability check made before each dispatch.
func WithProbeTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.probeTimeout = d
	}
}

// WithIllustrator enables illustrations.
func WithIllustrator(i illustrate.Illustrator) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.illustrator = i
	}
}

// Dispatcher sends story requests to backends and normalizes their responses.
// It holds no per-request state and is safe for concurrent use.
type Dispatcher struct {
	registry     *backend.Registry
	illustrator  illustrate.Illustrator
	probeTimeout time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *backend.Registry, logger zerolog.Logger, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:     registry,
		probeTimeout: 5 * time.Second,
		logger:       logger,
		now:          time.Now,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Tell generates a story. Backend failures are returned wrapped in
// backend.ErrGenerationFailed. An illustration failure is recorded on the
// result and never discards the story text.
func (d *Dispatcher) Tell(ctx context.Context, req Request) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := d.logger.With().Str("request_id", req.ID).Str("backend", req.Backend.String()).Logger()

	prompt, err := AssemblePrompt(req)
	if err != nil {
		return nil, err
	}

	b, err := d.resolve(ctx, req.Backend)
	if err != nil {
		log.Warn().Err(err).Msg("backend not usable")
		return nil, err
	}

	start := d.now()
	text, err := b.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("story generation failed")
		return nil, err
	}
	log.Info().Dur("elapsed", d.now().Sub(start)).Int("chars", len(text)).Msg("story generated")

	result := &Result{
		ID:          req.ID,
		Backend:     b.Kind(),
		Text:        strings.TrimSpace(text),
		Chapter:     1,
		GeneratedAt: d.now(),
	}

	if req.WithImage {
		img, err := d.illustrate(ctx, b, result.Text)
		if err != nil {
			log.Warn().Err(err).Msg("illustration failed, keeping story text")
			result.ImageError = "The illustration could not be created this time."
		} else {
			result.Image = img
		}
	}

	return result, nil
}

// Continue generates the next chapter of an existing story and returns the
// combined text.
func (d *Dispatcher) Continue(ctx context.Context, req ChapterRequest) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := d.logger.With().Str("request_id", req.ID).Str("backend", req.Backend.String()).Logger()

	prompt, err := AssembleChapterPrompt(req.Story)
	if err != nil {
		return nil, err
	}

	b, err := d.resolve(ctx, req.Backend)
	if err != nil {
		log.Warn().Err(err).Msg("backend not usable")
		return nil, err
	}

	chapter, err := b.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("chapter generation failed")
		return nil, err
	}

	number := NextChapterNumber(req.Story)
	log.Info().Int("chapter", number).Msg("chapter generated")

	return &Result{
		ID:          req.ID,
		Backend:     b.Kind(),
		Text:        AppendChapter(req.Story, chapter),
		Chapter:     number,
		GeneratedAt: d.now(),
	}, nil
}

// Illustrate creates an illustration for a story already generated by kind.
func (d *Dispatcher) Illustrate(ctx context.Context, kind backend.Kind, story string) (*illustrate.Image, error) {
	if strings.TrimSpace(story) == "" {
		return nil, ErrEmptyStory
	}
	b, err := d.resolve(ctx, kind)
	if err != nil {
		return nil, err
	}
	return d.illustrate(ctx, b, story)
}

// ImageAvailable reports whether illustrations can currently be requested.
func (d *Dispatcher) ImageAvailable(ctx context.Context) bool {
	return d.illustrator != nil && d.illustrator.Available(ctx)
}

// illustrate asks b for a scene description, then asks the illustrator to draw it.
func (d *Dispatcher) illustrate(ctx context.Context, b backend.Backend, story string) (*illustrate.Image, error) {
	if !d.ImageAvailable(ctx) {
		return nil, fmt.Errorf("%w: not configured", illustrate.ErrImageFailed)
	}

	desc, err := b.Generate(ctx, AssembleImagePrompt(story))
	if err != nil {
		return nil, fmt.Errorf("%w: scene description: %w", illustrate.ErrImageFailed, err)
	}

	return d.illustrator.Illustrate(ctx, cleanImageDescription(desc))
}

// resolve finds the backend for kind and checks it is usable right now, which
// catches a local host that went offline after the form was rendered.
func (d *Dispatcher) resolve(ctx context.Context, kind backend.Kind) (backend.Backend, error) {
	b, err := d.registry.Get(kind)
	if err != nil {
		return nil, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()
	if !b.Available(probeCtx) {
		return nil, fmt.Errorf("%w: %s", backend.ErrBackendUnavailable, kind)
	}

	return b, nil
}
