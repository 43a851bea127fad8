package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyteller/internal/backend"
)

var backendsJSON bool

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Show which story backends are usable right now",
	Long: `Probe every backend and the image API, then show which ones the story form
would offer.

Cloud backends are usable when their API key is set. The local Ollama backend
is usable when OLLAMA_HOST and OLLAMA_MODEL are set and the server answers.

Examples:
  storyteller backends
  storyteller backends --json`,
	Args: cobra.NoArgs,
	RunE: runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
	backendsCmd.Flags().BoolVar(&backendsJSON, "json", false, "Print availability as JSON")
}

func runBackends(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	availability := a.prober.Probe(cmd.Context())

	if backendsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(availability)
	}

	outputBackendTable(cmd.OutOrStdout(), backend.Kinds, availability)
	return nil
}

// outputBackendTable prints one row per backend kind plus the image API.
func outputBackendTable(w io.Writer, kinds []backend.Kind, availability backend.Availability) {
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink/magenta
		nameColor    = lipgloss.Color("#BD93F9") // Purple
		idColor      = lipgloss.Color("#E9E9F4") // Light purple/white
		borderColor  = lipgloss.Color("#6272A4") // Muted purple
		okColor      = lipgloss.Color("#50FA7B") // Green
		missingColor = lipgloss.Color("#FF5555") // Red
		summaryColor = lipgloss.Color("#8BE9FD") // Cyan accent
	)

	const (
		idWidth     = 12
		nameWidth   = 24
		statusWidth = 14
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)

	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	headers := []string{
		headerStyle.Width(idWidth).Render("ID"),
		headerStyle.Width(nameWidth).Render("BACKEND"),
		headerStyle.Width(statusWidth).Render("STATUS"),
	}
	fmt.Fprintln(w, strings.Join(headers, borderStyle.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", idWidth),
		strings.Repeat("─", nameWidth),
		strings.Repeat("─", statusWidth),
	}
	fmt.Fprintln(w, borderStyle.Render(strings.Join(separatorParts, "┼")))

	idStyle := lipgloss.NewStyle().Foreground(idColor).Padding(0, 1).Width(idWidth)
	nameStyle := lipgloss.NewStyle().Foreground(nameColor).Padding(0, 1).Width(nameWidth)
	okStyle := lipgloss.NewStyle().Foreground(okColor).Padding(0, 1).Width(statusWidth)
	missingStyle := lipgloss.NewStyle().Foreground(missingColor).Padding(0, 1).Width(statusWidth)

	row := func(id, name string, ok bool) {
		status := missingStyle.Render("unavailable")
		if ok {
			status = okStyle.Render("available")
		}
		cells := []string{idStyle.Render(id), nameStyle.Render(name), status}
		fmt.Fprintln(w, strings.Join(cells, borderStyle.Render("│")))
	}

	for _, k := range kinds {
		row(k.String(), k.DisplayName(), availability.Has(k))
	}
	row("image", "Illustrations", availability.Image)

	fmt.Fprintln(w)
	summaryStyle := lipgloss.NewStyle().
		Foreground(summaryColor).
		Italic(true)

	if len(availability.Backends) == 0 {
		fmt.Fprintln(w, summaryStyle.Render("No backend is available. Set an API key or start the Ollama server."))
		return
	}
	fmt.Fprintln(w, summaryStyle.Render(fmt.Sprintf("%d of %d backends available", len(availability.Backends), len(kinds))))
}
