package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Yates-Labs/storyteller/internal/backend"
	"github.com/Yates-Labs/storyteller/internal/illustrate"
	"github.com/Yates-Labs/storyteller/internal/story"
)

// indexPage is the data rendered by index.html.
type indexPage struct {
	Backends []backend.Descriptor
	Image    bool
}

// resultPage is the data rendered by result.html.
type resultPage struct {
	Result      *story.Result
	BackendName string
}

// errorPage is the data rendered by error.html.
type errorPage struct {
	Message   string
	RequestID string
}

// Index renders the story form with the backends that are usable right now.
func (s *Server) Index(c *gin.Context) {
	availability := s.prober.Probe(c.Request.Context())
	c.HTML(http.StatusOK, "index.html", indexPage{
		Backends: availability.Backends,
		Image:    availability.Image,
	})
}

// CreateStory handles the submitted form and renders the story.
func (s *Server) CreateStory(c *gin.Context) {
	var form storyForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderError(c, http.StatusBadRequest, "Please choose a storyteller.", err)
		return
	}

	kind, err := backend.ParseKind(form.Backend)
	if err != nil {
		s.renderFailure(c, err)
		return
	}

	result, err := s.stories.Tell(c.Request.Context(), story.Request{
		ID:        requestID(c),
		Prompt:    form.Prompt,
		Names:     form.Names,
		Things:    form.Things,
		Topic:     form.Topic,
		Backend:   kind,
		WithImage: form.GenerateImage == "on",
	})
	if err != nil {
		s.renderFailure(c, err)
		return
	}

	c.HTML(http.StatusOK, "result.html", resultPage{Result: result, BackendName: result.Backend.DisplayName()})
}

// CreateChapter continues the story shown on the result page.
func (s *Server) CreateChapter(c *gin.Context) {
	var form chapterForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderError(c, http.StatusBadRequest, "There is no story to continue.", err)
		return
	}

	kind, err := backend.ParseKind(form.Backend)
	if err != nil {
		s.renderFailure(c, err)
		return
	}

	result, err := s.stories.Continue(c.Request.Context(), story.ChapterRequest{
		ID:      requestID(c),
		Story:   form.Story,
		Backend: kind,
	})
	if err != nil {
		s.renderFailure(c, err)
		return
	}

	c.HTML(http.StatusOK, "result.html", resultPage{Result: result, BackendName: result.Backend.DisplayName()})
}

// Health reports liveness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListBackends returns the current availability.
func (s *Server) ListBackends(c *gin.Context) {
	c.JSON(http.StatusOK, s.prober.Probe(c.Request.Context()))
}

// CreateStoryJSON is the JSON form of CreateStory.
func (s *Server) CreateStoryJSON(c *gin.Context) {
	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.jsonError(c, http.StatusBadRequest, bindMessage(err), err)
		return
	}

	kind, err := backend.ParseKind(req.Backend)
	if err != nil {
		s.jsonFailure(c, err)
		return
	}

	result, err := s.stories.Tell(c.Request.Context(), story.Request{
		ID:        requestID(c),
		Prompt:    req.Prompt,
		Names:     req.Names,
		Things:    req.Things,
		Topic:     req.Topic,
		Backend:   kind,
		WithImage: req.GenerateImage,
	})
	if err != nil {
		s.jsonFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, newStoryResponse(result))
}

// CreateChapterJSON is the JSON form of CreateChapter.
func (s *Server) CreateChapterJSON(c *gin.Context) {
	var req CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.jsonError(c, http.StatusBadRequest, bindMessage(err), err)
		return
	}

	kind, err := backend.ParseKind(req.Backend)
	if err != nil {
		s.jsonFailure(c, err)
		return
	}

	result, err := s.stories.Continue(c.Request.Context(), story.ChapterRequest{
		ID:      requestID(c),
		Story:   req.Story,
		Backend: kind,
	})
	if err != nil {
		s.jsonFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, newStoryResponse(result))
}

// IllustrateJSON creates an illustration for a story generated earlier.
func (s *Server) IllustrateJSON(c *gin.Context) {
	var req IllustrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.jsonError(c, http.StatusBadRequest, bindMessage(err), err)
		return
	}

	kind, err := backend.ParseKind(req.Backend)
	if err != nil {
		s.jsonFailure(c, err)
		return
	}

	img, err := s.stories.Illustrate(c.Request.Context(), kind, req.Story)
	if err != nil {
		s.jsonFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, IllustrateResponse{ImageSrc: img.Src(), RevisedPrompt: img.RevisedPrompt})
}

// classify maps a dispatch error to an HTTP status and a user-facing message.
// Details stay in the logs.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, story.ErrEmptyPrompt):
		return http.StatusBadRequest, "Please tell us a little about the story you would like."
	case errors.Is(err, story.ErrEmptyStory):
		return http.StatusBadRequest, "There is no story to continue."
	case errors.Is(err, backend.ErrUnknownBackend):
		return http.StatusBadRequest, "Please choose one of the offered storytellers."
	case errors.Is(err, backend.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "That storyteller is not available right now."
	case errors.Is(err, backend.ErrGenerationFailed):
		return http.StatusBadGateway, "Story generation failed. Please try again."
	case errors.Is(err, illustrate.ErrImageFailed):
		return http.StatusBadGateway, "The illustration could not be created this time."
	default:
		return http.StatusInternalServerError, "Something went wrong."
	}
}

// bindMessage names the missing fields of a failed JSON bind. Anything else,
// such as malformed JSON, is reported as an invalid request.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return "missing required field: " + strings.Join(fields, ", ")
}

func (s *Server) renderFailure(c *gin.Context, err error) {
	status, message := classify(err)
	s.renderError(c, status, message, err)
}

func (s *Server) renderError(c *gin.Context, status int, message string, err error) {
	_ = c.Error(err)
	c.HTML(status, "error.html", errorPage{Message: message, RequestID: requestID(c)})
}

func (s *Server) jsonFailure(c *gin.Context, err error) {
	status, message := classify(err)
	s.jsonError(c, status, message, err)
}

func (s *Server) jsonError(c *gin.Context, status int, message string, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, RequestID: requestID(c)})
}
