package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/Yates-Labs/storyteller/internal/config"
)

// Ollama calls a locally hosted Ollama inference server.
type Ollama struct {
	host   string
	model  string
	client *api.Client
}

// NewOllama creates an Ollama backend. An empty or unparsable host, or an
// empty model, leaves the backend permanently unavailable.
func NewOllama(cfg config.OllamaConfig) *Ollama {
	o := &Ollama{
		host:  strings.TrimSuffix(cfg.Host, "/"),
		model: cfg.Model,
	}
	if o.host == "" {
		return o
	}

	base, err := url.Parse(o.host)
	if err != nil || base.Host == "" {
		return o
	}
	o.client = api.NewClient(base, &http.Client{Timeout: cfg.Timeout})
	return o
}

func (o *Ollama) Kind() Kind { return KindOllama }

func (o *Ollama) configured() bool {
	return o.client != nil && o.model != ""
}

// Available lists the local models; any failure, including a non-200
// answer, means offline.
func (o *Ollama) Available(ctx context.Context) bool {
	if !o.configured() {
		return false
	}
	_, err := o.client.List(ctx)
	return err == nil
}

// Generate sends a non-streaming generate request.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	if !o.configured() {
		return "", generationError(KindOllama, "host or model not configured")
	}

	stream := false
	var text strings.Builder
	err := o.client.Generate(ctx, &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", generationError(KindOllama, "%v", err)
	}

	return storyText(KindOllama, text.String())
}

func (o *Ollama) String() string {
	return fmt.Sprintf("ollama(%s, %s)", o.host, o.model)
}
