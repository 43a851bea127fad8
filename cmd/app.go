package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/Yates-Labs/storyteller/internal/backend"
	"github.com/Yates-Labs/storyteller/internal/config"
	"github.com/Yates-Labs/storyteller/internal/illustrate"
	"github.com/Yates-Labs/storyteller/internal/logging"
	"github.com/Yates-Labs/storyteller/internal/story"
)

// probePoolSize bounds concurrent availability probes across all page loads.
const probePoolSize = 32

// app holds everything built once at process start.
type app struct {
	config      *config.Config
	logger      zerolog.Logger
	pool        *ants.Pool
	registry    *backend.Registry
	illustrator *illustrate.OpenAIIllustrator
	prober      *backend.Prober
	dispatcher  *story.Dispatcher
}

// newApp loads configuration and wires the backends, prober and dispatcher.
func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	logger := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)

	pool, err := ants.NewPool(probePoolSize, ants.WithPanicHandler(func(p interface{}) {
		logger.Error().Err(fmt.Errorf("%v", p)).Msg("panic in probe pool")
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	registry, err := backend.FromConfig(ctx, cfg)
	if err != nil {
		pool.Release()
		return nil, err
	}

	illustrator := illustrate.NewOpenAIIllustrator(cfg.Image)
	prober := backend.NewProber(registry, illustrator, pool, cfg.ProbeTimeout, logger)
	dispatcher := story.NewDispatcher(registry, logger,
		story.WithProbeTimeout(cfg.ProbeTimeout),
		story.WithIllustrator(illustrator),
	)

	logger.Debug().
		Bool("ollama_configured", cfg.OllamaConfigured()).
		Bool("image_configured", cfg.ImageConfigured()).
		Msg("configuration loaded")

	return &app{
		config:      cfg,
		logger:      logger,
		pool:        pool,
		registry:    registry,
		illustrator: illustrator,
		prober:      prober,
		dispatcher:  dispatcher,
	}, nil
}

// Close releases the worker pool and backend clients.
func (a *app) Close() error {
	a.pool.Release()
	return a.registry.Close()
}
