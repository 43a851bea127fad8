package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyteller/internal/backend"
	"github.com/Yates-Labs/storyteller/internal/story"
)

var (
	tellBackend  string
	tellNames    string
	tellThings   string
	tellTopic    string
	tellImage    bool
	tellChapters int
	tellVerbose  bool
)

var tellCmd = &cobra.Command{
	Use:   "tell [ideas...]",
	Short: "Tell a bedtime story in the terminal",
	Long: `Generate a bedtime story with the chosen backend and print it.

When --backend is omitted the first usable backend is chosen (ollama, openai,
claude, mistral, gemini). With --image the story is illustrated and the image
URL is printed. --chapters asks the same backend for that many further chapters.

Examples:
  storyteller tell --topic "a trip to the moon" --names "Ada and Tom"
  storyteller tell --backend claude "a dragon who is afraid of the dark"
  storyteller tell --backend openai --image --chapters 1 --things "kites, owls"`,
	RunE: runTell,
}

func init() {
	rootCmd.AddCommand(tellCmd)
	tellCmd.Flags().StringVar(&tellBackend, "backend", "", "Backend to use (ollama, openai, claude, mistral, gemini)")
	tellCmd.Flags().StringVar(&tellNames, "names", "", "Names of the child and friends")
	tellCmd.Flags().StringVar(&tellThings, "things", "", "Favourite things")
	tellCmd.Flags().StringVar(&tellTopic, "topic", "", "What the story is about")
	tellCmd.Flags().BoolVar(&tellImage, "image", false, "Illustrate the story")
	tellCmd.Flags().IntVar(&tellChapters, "chapters", 0, "Number of further chapters to generate")
	tellCmd.Flags().BoolVar(&tellVerbose, "verbose", false, "Show progress")
}

func runTell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	kind, err := chooseBackend(ctx, a.prober, tellBackend)
	if err != nil {
		return err
	}

	req := story.Request{
		Prompt:    strings.Join(args, " "),
		Names:     tellNames,
		Things:    tellThings,
		Topic:     tellTopic,
		Backend:   kind,
		WithImage: tellImage,
	}

	return tell(ctx, cmd.OutOrStdout(), a.dispatcher, req, tellChapters, tellVerbose)
}

// prober is the part of backend.Prober used to pick a default backend.
type prober interface {
	Probe(ctx context.Context) backend.Availability
}

// chooseBackend validates the requested backend, or picks the first usable one.
func chooseBackend(ctx context.Context, p prober, requested string) (backend.Kind, error) {
	if requested != "" {
		return backend.ParseKind(requested)
	}

	available := p.Probe(ctx).IDs()
	if len(available) == 0 {
		return "", fmt.Errorf("%w: no backend is configured or reachable", backend.ErrBackendUnavailable)
	}
	return available[0], nil
}

// storyTeller is the part of story.Dispatcher used by tell.
type storyTeller interface {
	Tell(ctx context.Context, req story.Request) (*story.Result, error)
	Continue(ctx context.Context, req story.ChapterRequest) (*story.Result, error)
}

func tell(ctx context.Context, w io.Writer, teller storyTeller, req story.Request, chapters int, verbose bool) error {
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink
		storyColor   = lipgloss.Color("#E9E9F4") // Light purple/white
		contextColor = lipgloss.Color("#6272A4") // Muted purple
		errorColor   = lipgloss.Color("#FF5555") // Red
		successColor = lipgloss.Color("#50FA7B") // Green
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true)

	storyStyle := lipgloss.NewStyle().
		Foreground(storyColor)

	contextStyle := lipgloss.NewStyle().
		Foreground(contextColor).
		Italic(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(successColor)

	if verbose {
		fmt.Fprintln(w, contextStyle.Render(fmt.Sprintf("→ Asking %s for a story...", req.Backend.DisplayName())))
	}

	result, err := teller.Tell(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	for i := 0; i < chapters; i++ {
		if verbose {
			fmt.Fprintln(w, contextStyle.Render(fmt.Sprintf("→ Writing chapter %d...", story.NextChapterNumber(result.Text))))
		}
		next, err := teller.Continue(ctx, story.ChapterRequest{ID: result.ID, Story: result.Text, Backend: result.Backend})
		if err != nil {
			return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
		}
		next.Image, next.ImageError = result.Image, result.ImageError
		result = next
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Story (%s):", result.Backend.DisplayName())))
	fmt.Fprintln(w)
	fmt.Fprintln(w, storyStyle.Render(result.Text))
	fmt.Fprintln(w)

	switch {
	case result.Image != nil && result.Image.URL != "":
		fmt.Fprintln(w, successStyle.Render("✓ Illustration: "+result.Image.URL))
	case result.Image != nil:
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✓ Illustration received (%d bytes)", len(result.Image.Data))))
	case result.ImageError != "":
		fmt.Fprintln(w, contextStyle.Render(result.ImageError))
	}

	return nil
}
