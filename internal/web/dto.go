package web

import (
	"time"

	"github.com/Yates-Labs/storyteller/internal/backend"
	"github.com/Yates-Labs/storyteller/internal/story"
)

// storyForm is the submitted story form.
type storyForm struct {
	Prompt        string `form:"prompt"`
	Names         string `form:"names"`
	Things        string `form:"things"`
	Topic         string `form:"topic"`
	Backend       string `form:"backend" binding:"required"`
	GenerateImage string `form:"generate_image"`
}

// chapterForm carries the story shown on the result page back to the server.
type chapterForm struct {
	Story   string `form:"story" binding:"required"`
	Backend string `form:"backend" binding:"required"`
}

type CreateStoryRequest struct {
	Prompt        string `json:"prompt"`
	Names         string `json:"names"`
	Things        string `json:"things"`
	Topic         string `json:"topic"`
	Backend       string `json:"backend" binding:"required"`
	GenerateImage bool   `json:"generate_image"`
}

type CreateChapterRequest struct {
	Story   string `json:"story" binding:"required"`
	Backend string `json:"backend" binding:"required"`
}

type IllustrateRequest struct {
	Story   string `json:"story" binding:"required"`
	Backend string `json:"backend" binding:"required"`
}

type StoryResponse struct {
	ID          string       `json:"id"`
	Backend     backend.Kind `json:"backend"`
	Text        string       `json:"text"`
	Chapter     int          `json:"chapter"`
	ImageSrc    string       `json:"image_src,omitempty"`
	ImageError  string       `json:"image_error,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

type IllustrateResponse struct {
	ImageSrc      string `json:"image_src"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newStoryResponse(r *story.Result) StoryResponse {
	return StoryResponse{
		ID:          r.ID,
		Backend:     r.Backend,
		Text:        r.Text,
		Chapter:     r.Chapter,
		ImageSrc:    r.Image.Src(),
		ImageError:  r.ImageError,
		GeneratedAt: r.GeneratedAt,
	}
}
