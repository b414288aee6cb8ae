package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// Palette colours.
var (
	colourPrimary   = lipgloss.Color("#7C3AED") // Purple
	colourSecondary = lipgloss.Color("#06B6D4") // Cyan
	colourMuted     = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess   = lipgloss.Color("#A6E3A1") // Green
	colourWarning   = lipgloss.Color("#F9E2AF") // Yellow
	colourError     = lipgloss.Color("#F38BA8") // Red
)

// styles holds the lipgloss styles used for command output.
// Every style is empty when output is not a terminal.
type styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Score    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Answer   lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return &styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return &styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(colourSecondary),
		Muted:    lipgloss.NewStyle().Foreground(colourMuted),
		Score:    lipgloss.NewStyle().Foreground(colourSecondary),
		Success:  lipgloss.NewStyle().Foreground(colourSuccess),
		Warning:  lipgloss.NewStyle().Foreground(colourWarning),
		Error:    lipgloss.NewStyle().Foreground(colourError),
		Answer: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colourPrimary).
			Padding(0, 1),
	}
}

// isTerminal reports whether w is a terminal and colour is wanted.
func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// snippet shortens text to at most n runes on one line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-1]) + "…"
}

func chunkLabel(c domain.Chunk) string {
	if title := c.MetadataString(domain.MetaTitle); title != "" {
		return title
	}
	if uri := c.MetadataString(domain.MetaURI); uri != "" {
		return uri
	}
	return c.DocumentID
}

func printResults(cmd *cobra.Command, st *styles, results []domain.SearchResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, st.Muted.Render("No results found."))
		return
	}

	for _, r := range results {
		fmt.Fprintf(out, "  [%d] %s %s\n", r.Rank,
			st.Subtitle.Render(chunkLabel(r.Chunk)),
			st.Score.Render(fmt.Sprintf("(%.4f)", r.Score)))
		if uri := r.Chunk.MetadataString(domain.MetaURI); uri != "" {
			fmt.Fprintf(out, "      %s\n", st.Muted.Render(uri))
		}
		fmt.Fprintf(out, "      %s\n\n", snippet(r.Chunk.Content, 160))
	}
}

func printTrace(cmd *cobra.Command, st *styles, res *domain.ResearchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, st.Title.Render("Reasoning steps"))
	for _, step := range res.Steps {
		fmt.Fprintf(out, "  %d. %s\n", step.Index+1, step.SubQuery)
		switch {
		case step.Err != "":
			fmt.Fprintf(out, "     %s\n", st.Error.Render("skipped: "+step.Err))
		case step.Empty():
			fmt.Fprintf(out, "     %s\n", st.Muted.Render("no results"))
		default:
			for _, r := range step.Results {
				fmt.Fprintf(out, "     - %s %s\n", chunkLabel(r.Chunk),
					st.Score.Render(fmt.Sprintf("(%.4f)", r.Score)))
			}
		}
		if step.Conclusion != "" {
			fmt.Fprintf(out, "     %s\n", st.Muted.Render("→ "+snippet(step.Conclusion, 160)))
		}
	}
	fmt.Fprintf(out, "  %s\n\n", st.Muted.Render("stopped: "+string(res.StopReason)))
}
