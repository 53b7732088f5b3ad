package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/nsf/termbox-go"
)

const (
	Accent = "#ffffaf"
	Muted  = "#4d4d4d"
	Normal = "#dddddd"
	Err    = "#ff5f5f"
	Ok     = "#5fffaf"
)

const Title = "FILEDROP"

var (
	Container  = lipgloss.NewStyle().Padding(0, 2)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Err)).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(Ok)).Bold(true)
	emphasis   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(Accent))
	muted      = lipgloss.NewStyle().Foreground(lipgloss.Color(Muted))
)

// ErrCancelled is returned when the user quits a prompt or a transfer.
var ErrCancelled = errors.New("cancelled by user")

// AppFrame draws the title, content and help line. A zero height leaves
// the content at its natural height.
func AppFrame(content string, helpText string, w, h int) string {
	titleStyle := lipgloss.NewStyle().
		Padding(0, 1).
		Margin(1, 2).
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.Color(Accent))
	title := titleStyle.Render(Title)

	frame := lipgloss.NewStyle().Padding(1, 0)
	if w > 0 {
		frame = frame.Width(w)
	}
	if h > 0 {
		if contentHeight := h - lipgloss.Height(title) - lipgloss.Height(helpText); contentHeight > 0 {
			frame = frame.Height(contentHeight)
		}
	}

	help := Container.Foreground(lipgloss.Color(Muted)).Render(helpText)

	return title + frame.Render(content) + "\n" + help
}

// Banner is the one-line status printed by the serve command.
func Banner(addr, dataPath, logFile string) string {
	return fmt.Sprintf("%s  |  listening on %s  |  saving to %s  |  log %s",
		emphasis.Render(Title), addr, dataPath, muted.Render(logFile))
}

// TerminalWidth probes the terminal size, falling back to 80 columns when
// there is no terminal.
func TerminalWidth() int {
	if err := termbox.Init(); err != nil {
		return 80
	}
	w, _ := termbox.Size()
	termbox.Close()
	if w <= 0 {
		return 80
	}
	return w
}
