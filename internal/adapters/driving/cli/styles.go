package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette used for command output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
)

// styles holds the lipgloss styles bound to one output writer. Writers
// that are not terminals get plain text.
type styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Header  lipgloss.Style

	width int
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		Title:   r.NewStyle().Bold(true).Foreground(colourPrimary),
		Muted:   r.NewStyle().Foreground(colourMuted),
		Success: r.NewStyle().Foreground(colourSuccess),
		Warning: r.NewStyle().Foreground(colourWarning),
		Error:   r.NewStyle().Foreground(colourError),
		Header:  r.NewStyle().Bold(true).Padding(0, 1),
		width:   terminalWidth(w),
	}
}

// Status colours a job status.
func (s *styles) Status(status string) string {
	switch status {
	case "completed":
		return s.Success.Render(status)
	case "failed":
		return s.Error.Render(status)
	case "canceled":
		return s.Warning.Render(status)
	default:
		return status
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or 100 when w is not a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 100
}

// truncate shortens s to n runes, adding an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
