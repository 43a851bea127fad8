package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "storyteller",
	Short: "Storyteller - Bedtime stories from local or cloud language models",
	Long: `Storyteller turns a few names, favourite things and ideas into a bedtime story.

It offers every backend that is usable right now (a local Ollama server or the
OpenAI, Claude, Mistral and Gemini APIs), sends the story request to the one you
choose, and can ask an image API to illustrate the result.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (json, console); overrides LOG_FORMAT")
}

// Root returns the root command
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
