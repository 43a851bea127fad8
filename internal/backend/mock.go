package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockBackend is a deterministic Backend implementation for testing.
// It returns predictable responses based on prompt content.
type MockBackend struct {
	// ID is the kind reported by the mock. Defaults to KindOpenAI.
	ID Kind

	// Offline makes Available report false.
	Offline bool

	// Response is the fixed text returned by Generate.
	// If empty, a default response is generated from the prompt.
	Response string

	// Responses, if set, are returned in order; the last one repeats.
	Responses []string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	mu      sync.Mutex
	prompts []string
}

// NewMockBackend creates a mock backend of the given kind with a fixed response.
func NewMockBackend(kind Kind, response string) *MockBackend {
	return &MockBackend{ID: kind, Response: response}
}

// NewMockBackendWithError creates a mock backend that always fails.
func NewMockBackendWithError(kind Kind, err error) *MockBackend {
	return &MockBackend{ID: kind, Error: err}
}

func (m *MockBackend) Kind() Kind {
	if m.ID == "" {
		return KindOpenAI
	}
	return m.ID
}

func (m *MockBackend) Available(ctx context.Context) bool {
	return !m.Offline
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockBackend) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	call := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Error != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrGenerationFailed, m.Kind(), m.Error)
	}

	if len(m.Responses) > 0 {
		if call >= len(m.Responses) {
			call = len(m.Responses) - 1
		}
		return storyText(m.Kind(), m.Responses[call])
	}

	if m.Response != "" {
		return storyText(m.Kind(), m.Response)
	}

	return generateMockStory(prompt), nil
}

// Prompts returns every prompt received so far.
func (m *MockBackend) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastPrompt returns the most recent prompt passed to Generate.
func (m *MockBackend) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// generateMockStory creates a predictable story from the prompt.
func generateMockStory(prompt string) string {
	topic := "a quiet evening"
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Topic:"); ok {
			if t := strings.TrimSpace(rest); t != "" {
				topic = t
			}
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Once upon a time there was a story about %s. ", topic))
	b.WriteString("Everyone had a gentle adventure and then went happily to sleep.")
	return b.String()
}
