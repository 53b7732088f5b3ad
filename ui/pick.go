package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type pickModel struct {
	filepicker filepicker.Model
	selected   string
	quitting   bool
	width      int
	height     int
}

func (m pickModel) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.selected = path
		return m, tea.Quit
	}
	return m, cmd
}

func (m pickModel) View() string {
	if m.quitting {
		return ""
	}
	var s strings.Builder
	s.WriteString("Pick a file to send")
	s.WriteString("\n\n" + m.filepicker.View())
	return AppFrame(Container.Render(s.String()), "j/↓: down • k/↑: up • l/→: open • h/←: back • q: quit", m.width, m.height)
}

func CreateFilepicker(dir string) filepicker.Model {
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.AutoHeight = true
	fp.Styles = filepicker.Styles{
		Cursor:         lipgloss.NewStyle().Foreground(lipgloss.Color(Accent)),
		Symlink:        lipgloss.NewStyle().Foreground(lipgloss.Color("#5fffaf")),
		Directory:      lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd787")),
		File:           lipgloss.NewStyle(),
		Permission:     lipgloss.NewStyle().Foreground(lipgloss.Color(Muted)),
		Selected:       lipgloss.NewStyle().Foreground(lipgloss.Color(Accent)).Bold(true),
		FileSize:       lipgloss.NewStyle().Foreground(lipgloss.Color(Muted)).Width(8).Align(lipgloss.Right),
		EmptyDirectory: lipgloss.NewStyle().Foreground(lipgloss.Color(Muted)).SetString("No Files Found."),
	}

	return fp
}

// PickFile lets the user choose a file under base and returns its path
// relative to base.
func PickFile(base string) (string, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}

	prog := tea.NewProgram(pickModel{filepicker: CreateFilepicker(abs)}, tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return "", fmt.Errorf("error running program: %w", err)
	}

	selected := final.(pickModel).selected
	if selected == "" {
		return "", ErrCancelled
	}
	return relativeTo(abs, selected)
}

func relativeTo(base, path string) (string, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s is outside the base directory %s", path, base)
	}
	return filepath.ToSlash(rel), nil
}

type promptModel struct {
	input     textinput.Model
	value     string
	cancelled bool
}

func CreateAddressInput(def string) textinput.Model {
	input := textinput.New()
	input.Focus()
	input.Placeholder = def
	input.SetValue(def)
	input.CharLimit = 255
	input.Width = 30

	return input
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.value = strings.TrimSpace(m.input.Value())
			if m.value == "" {
				m.value = m.input.Placeholder
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.cancelled || m.value != "" {
		return ""
	}
	return AppFrame(Container.Render(fmt.Sprintf(
		"Receiver address\n\n%s\n",
		emphasis.Render(m.input.View()),
	)), "enter: confirm • esc: cancel", 0, 0)
}

// PromptAddress asks for the receiver's host:port, pre-filled with def.
func PromptAddress(def string) (string, error) {
	prog := tea.NewProgram(promptModel{input: CreateAddressInput(def)})
	final, err := prog.Run()
	if err != nil {
		return "", fmt.Errorf("error running program: %w", err)
	}

	m := final.(promptModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.value, nil
}
