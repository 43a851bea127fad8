package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyteller/internal/web"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the story form over HTTP",
	Long: `Serve the story form, the result pages and the JSON API.

Backends are offered when their credentials are configured; the local Ollama
server is offered only while it answers. Configuration is read from the
environment and from a .env file in the working directory.

Environment variables:
  OPENAI_API_KEY, ANTHROPIC_API_KEY, MISTRAL_API_KEY, GEMINI_API_KEY
  OLLAMA_HOST, OLLAMA_MODEL      - local inference server and model
  IMAGE_API_KEY                  - image API key (defaults to OPENAI_API_KEY)
  LISTEN_ADDR                    - listen address (default :1337)

Examples:
  storyteller serve
  storyteller serve --addr 127.0.0.1:8080 --log-format console`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address; overrides LISTEN_ADDR")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.config.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}

	gin.SetMode(gin.ReleaseMode)
	server, err := web.NewServer(a.dispatcher, a.prober, a.logger)
	if err != nil {
		return err
	}

	return server.Run(ctx, addr)
}
