package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Yates-Labs/storyteller/internal/backend"
	"github.com/Yates-Labs/storyteller/internal/illustrate"
	"github.com/Yates-Labs/storyteller/internal/story"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubIllustrator struct {
	available bool
	err       error
}

func (s stubIllustrator) Available(ctx context.Context) bool { return s.available }

func (s stubIllustrator) Illustrate(ctx context.Context, description string) (*illustrate.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &illustrate.Image{URL: "https://img.example/scene.png"}, nil
}

func newTestServer(t *testing.T, ill illustrate.Illustrator, backends ...backend.Backend) *Server {
	t.Helper()
	registry := backend.NewRegistry(backends...)

	var opts []story.DispatcherOption
	var image backend.Checker
	if ill != nil {
		opts = append(opts, story.WithIllustrator(ill))
		image = ill
	}

	dispatcher := story.NewDispatcher(registry, zerolog.Nop(), opts...)
	prober := backend.NewProber(registry, image, nil, time.Second, zerolog.Nop())

	srv, err := NewServer(dispatcher, prober, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func postForm(t *testing.T, srv *Server, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndex_ListsAvailableBackends(t *testing.T) {
	srv := newTestServer(t, stubIllustrator{available: true},
		backend.NewMockBackend(backend.KindClaude, "story"),
		&backend.MockBackend{ID: backend.KindOllama, Offline: true},
	)

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `<option value="claude">Claude (Anthropic)</option>`) {
		t.Error("available backend missing from the selection control")
	}
	if strings.Contains(body, `value="ollama"`) {
		t.Error("offline backend should not be offered")
	}
	if !strings.Contains(body, `name="generate_image"`) {
		t.Error("image option should be offered when the illustrator is available")
	}
}

func TestIndex_NoImageOption(t *testing.T) {
	srv := newTestServer(t, stubIllustrator{available: false}, backend.NewMockBackend(backend.KindMistral, "story"))

	body := get(t, srv, "/").Body.String()
	if strings.Contains(body, `name="generate_image"`) {
		t.Error("image option should be absent without an image key")
	}
}

func TestIndex_NoBackendAvailable(t *testing.T) {
	srv := newTestServer(t, nil, &backend.MockBackend{ID: backend.KindOllama, Offline: true})

	body := get(t, srv, "/").Body.String()
	if !strings.Contains(body, `id="no-backend"`) {
		t.Error("expected the no backend available message")
	}
	if strings.Contains(body, "<select") {
		t.Error("no selection control should be rendered")
	}
}

func TestCreateStory(t *testing.T) {
	mock := backend.NewMockBackend(backend.KindOpenAI, "The owl hooted.\n\nThe moon smiled.")
	srv := newTestServer(t, nil, mock)

	rec := postForm(t, srv, "/story", url.Values{
		"topic":   {"owls"},
		"names":   {"Ada"},
		"backend": {"openai"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	for _, want := range []string{"<p>The owl hooted.</p>", "<p>The moon smiled.</p>", "Told by OpenAI (ChatGPT)", `action="/chapter"`} {
		if !strings.Contains(body, want) {
			t.Errorf("result page missing %q", want)
		}
	}
	if !strings.Contains(mock.LastPrompt(), "Names: Ada") {
		t.Error("form fields were not passed to the prompt")
	}
}

func TestCreateStory_Errors(t *testing.T) {
	tests := []struct {
		name       string
		backend    backend.Backend
		form       url.Values
		wantStatus int
		wantText   string
	}{
		{
			name:       "missing backend",
			backend:    backend.NewMockBackend(backend.KindOpenAI, "story"),
			form:       url.Values{"topic": {"owls"}},
			wantStatus: http.StatusBadRequest,
			wantText:   "choose a storyteller",
		},
		{
			name:       "empty prompt",
			backend:    backend.NewMockBackend(backend.KindOpenAI, "story"),
			form:       url.Values{"backend": {"openai"}, "prompt": {"   "}},
			wantStatus: http.StatusBadRequest,
			wantText:   "tell us a little",
		},
		{
			name:       "unknown backend",
			backend:    backend.NewMockBackend(backend.KindOpenAI, "story"),
			form:       url.Values{"backend": {"bard"}, "topic": {"owls"}},
			wantStatus: http.StatusBadRequest,
			wantText:   "offered storytellers",
		},
		{
			name:       "backend went offline",
			backend:    &backend.MockBackend{ID: backend.KindOllama, Offline: true},
			form:       url.Values{"backend": {"ollama"}, "topic": {"owls"}},
			wantStatus: http.StatusServiceUnavailable,
			wantText:   "not available right now",
		},
		{
			name:       "generation failed",
			backend:    backend.NewMockBackendWithError(backend.KindOpenAI, errors.New("dial tcp: connection refused")),
			form:       url.Values{"backend": {"openai"}, "topic": {"owls"}},
			wantStatus: http.StatusBadGateway,
			wantText:   "Story generation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, tt.backend)
			rec := postForm(t, srv, "/story", tt.form)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.wantText) {
				t.Errorf("expected body to contain %q, got %s", tt.wantText, body)
			}
			if strings.Contains(body, "connection refused") {
				t.Error("error details must not reach the user")
			}
		})
	}
}

func TestCreateStory_ImageFailureKeepsText(t *testing.T) {
	srv := newTestServer(t, stubIllustrator{available: true, err: illustrate.ErrImageFailed},
		backend.NewMockBackend(backend.KindOpenAI, "The fox found a lantern."))

	rec := postForm(t, srv, "/story", url.Values{
		"topic":          {"fox"},
		"backend":        {"openai"},
		"generate_image": {"on"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "The fox found a lantern.") {
		t.Error("story text missing after image failure")
	}
	if !strings.Contains(body, "could not be created") {
		t.Error("expected the image failure note")
	}
	if strings.Contains(body, "<img") {
		t.Error("no image should be rendered")
	}
}

func TestCreateStory_WithImage(t *testing.T) {
	srv := newTestServer(t, stubIllustrator{available: true},
		backend.NewMockBackend(backend.KindOpenAI, "The fox found a lantern."))

	rec := postForm(t, srv, "/story", url.Values{
		"topic":          {"fox"},
		"backend":        {"openai"},
		"generate_image": {"on"},
	})

	if !strings.Contains(rec.Body.String(), `src="https://img.example/scene.png"`) {
		t.Errorf("expected the illustration, got %s", rec.Body.String())
	}
}

func TestCreateChapter(t *testing.T) {
	srv := newTestServer(t, nil, backend.NewMockBackend(backend.KindClaude, "The fox woke up."))

	rec := postForm(t, srv, "/chapter", url.Values{
		"story":   {"The fox slept."},
		"backend": {"claude"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{"<p>The fox slept.</p>", "<hr>", "<h2>Chapter 2</h2>", "<p>The fox woke up.</p>", "chapter 2"} {
		if !strings.Contains(body, want) {
			t.Errorf("chapter page missing %q", want)
		}
	}
}

func TestCreateChapter_MissingStory(t *testing.T) {
	srv := newTestServer(t, nil, backend.NewMockBackend(backend.KindClaude, "x"))

	rec := postForm(t, srv, "/chapter", url.Values{"backend": {"claude"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := get(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestListBackends(t *testing.T) {
	srv := newTestServer(t, stubIllustrator{available: false},
		backend.NewMockBackend(backend.KindMistral, "x"),
		backend.NewMockBackend(backend.KindOllama, "x"),
	)

	rec := get(t, srv, "/api/backends")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var availability backend.Availability
	if err := json.Unmarshal(rec.Body.Bytes(), &availability); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	ids := availability.IDs()
	if len(ids) != 2 || ids[0] != backend.KindOllama || ids[1] != backend.KindMistral {
		t.Errorf("expected [ollama mistral] in display order, got %v", ids)
	}
	if availability.Image {
		t.Error("image should be unavailable")
	}
}

func TestCreateStoryJSON(t *testing.T) {
	srv := newTestServer(t, nil, backend.NewMockBackend(backend.KindGemini, "A story about kites."))

	rec := postJSON(t, srv, "/api/story", `{"topic":"kites","backend":"gemini"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp StoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Text != "A story about kites." {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Backend != backend.KindGemini {
		t.Errorf("unexpected backend %s", resp.Backend)
	}
	if resp.ID == "" || resp.ID != rec.Header().Get(RequestIDHeader) {
		t.Errorf("result ID %q should match request ID %q", resp.ID, rec.Header().Get(RequestIDHeader))
	}
}

func TestCreateStoryJSON_Errors(t *testing.T) {
	srv := newTestServer(t, nil, backend.NewMockBackendWithError(backend.KindOpenAI, errors.New("401 unauthorized")))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "malformed", body: `{`, wantStatus: http.StatusBadRequest, wantError: "invalid request"},
		{name: "wrong type", body: `{"topic":"x","backend":7}`, wantStatus: http.StatusBadRequest, wantError: "invalid request"},
		{name: "missing backend", body: `{"topic":"x"}`, wantStatus: http.StatusBadRequest, wantError: "missing required field: backend"},
		{name: "empty prompt", body: `{"backend":"openai"}`, wantStatus: http.StatusBadRequest},
		{name: "generation failed", body: `{"topic":"x","backend":"openai"}`, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, srv, "/api/story", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if resp.Error == "" {
				t.Error("expected an error message")
			}
			if tt.wantError != "" && resp.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, resp.Error)
			}
			if strings.Contains(resp.Error, "unauthorized") {
				t.Error("error details must not reach the client")
			}
		})
	}
}

func TestCreateChapterJSON(t *testing.T) {
	srv := newTestServer(t, nil, backend.NewMockBackend(backend.KindOpenAI, "Next."))

	rec := postJSON(t, srv, "/api/chapter", `{"story":"First.","backend":"openai"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp StoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Chapter != 2 || !strings.HasSuffix(resp.Text, "## Chapter 2\n\nNext.") {
		t.Errorf("unexpected chapter response %+v", resp)
	}
}

func TestIllustrateJSON(t *testing.T) {
	srv := newTestServer(t, stubIllustrator{available: true}, backend.NewMockBackend(backend.KindOpenAI, "A lantern in the woods"))

	rec := postJSON(t, srv, "/api/illustrate", `{"story":"The fox found a lantern.","backend":"openai"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp IllustrateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ImageSrc != "https://img.example/scene.png" {
		t.Errorf("unexpected image src %q", resp.ImageSrc)
	}

	srv = newTestServer(t, stubIllustrator{available: false}, backend.NewMockBackend(backend.KindOpenAI, "x"))
	rec = postJSON(t, srv, "/api/illustrate", `{"story":"The fox.","backend":"openai"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 without an illustrator, got %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := get(t, srv, "/healthz")
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request ID")
	}

	const incoming = "6f1c2a8e-8a8f-4a63-9f0e-4f5d1f3f2b11"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("expected incoming ID to be reused, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "<script>" {
		t.Error("malformed incoming ID should be replaced")
	}
}

func TestStoryBlocks(t *testing.T) {
	blocks := storyBlocks("First part.\r\n\r\n---\n\n## Chapter 2\n\nSecond part.\n\n\n")

	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Paragraph != "First part." {
		t.Errorf("unexpected first block %+v", blocks[0])
	}
	if !blocks[1].Rule {
		t.Errorf("expected rule, got %+v", blocks[1])
	}
	if blocks[2].Heading != "Chapter 2" {
		t.Errorf("expected heading, got %+v", blocks[2])
	}
	if blocks[3].Paragraph != "Second part." {
		t.Errorf("unexpected last block %+v", blocks[3])
	}
}

func TestStoryBlocks_HeadingFollowedByText(t *testing.T) {
	blocks := storyBlocks("# The Brave Fox\nOnce upon a time a fox set out.\nShe was not afraid.")

	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Heading != "The Brave Fox" {
		t.Errorf("expected only the first line as heading, got %+v", blocks[0])
	}
	if blocks[1].Paragraph != "Once upon a time a fox set out.\nShe was not afraid." {
		t.Errorf("expected the rest as a paragraph, got %+v", blocks[1])
	}
}
