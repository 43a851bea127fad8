// Package web serves the story form, the result pages and a small JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Yates-Labs/storyteller/internal/backend"
	"github.com/Yates-Labs/storyteller/internal/illustrate"
	"github.com/Yates-Labs/storyteller/internal/story"
)

// StoryTeller generates stories and chapters.
type StoryTeller interface {
	Tell(ctx context.Context, req story.Request) (*story.Result, error)
	Continue(ctx context.Context, req story.ChapterRequest) (*story.Result, error)
	Illustrate(ctx context.Context, kind backend.Kind, text string) (*illustrate.Image, error)
}

// AvailabilityProber reports which backends can be offered.
type AvailabilityProber interface {
	Probe(ctx context.Context) backend.Availability
}

// Server wires the HTTP routes to the story dispatcher.
type Server struct {
	engine  *gin.Engine
	stories StoryTeller
	prober  AvailabilityProber
	logger  zerolog.Logger
}

// NewServer creates the router with all routes registered.
func NewServer(stories StoryTeller, prober AvailabilityProber, logger zerolog.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)
	engine.Use(RequestID(), RequestLogger(logger), Recovery(logger))

	s := &Server{
		engine:  engine,
		stories: stories,
		prober:  prober,
		logger:  logger,
	}
	s.RegisterRoutes(engine)

	return s, nil
}

// RegisterRoutes attaches every handler to g.
func (s *Server) RegisterRoutes(g *gin.Engine) {
	g.GET("/", s.Index)
	g.POST("/story", s.CreateStory)
	g.POST("/chapter", s.CreateChapter)
	g.GET("/healthz", s.Health)

	api := g.Group("/api")
	api.GET("/backends", s.ListBackends)
	api.POST("/story", s.CreateStoryJSON)
	api.POST("/chapter", s.CreateChapterJSON)
	api.POST("/illustrate", s.IllustrateJSON)
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
