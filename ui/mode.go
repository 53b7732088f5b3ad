package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	ModeSend  = "Send"
	ModeServe = "Serve"
)

func ModeItemStyles() (s list.DefaultItemStyles) {
	s.NormalTitle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(Normal)).
		Padding(0, 0, 0, 2)

	s.NormalDesc = s.NormalTitle.
		Foreground(lipgloss.Color(Muted))

	s.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(Accent)).
		Foreground(lipgloss.Color(Accent)).
		Padding(0, 0, 0, 1).
		Bold(true)

	s.SelectedDesc = s.SelectedTitle.
		Foreground(lipgloss.Color(Accent)).
		Bold(false)

	return s
}

type ModeItem struct {
	ModeName, ModeDesc string
}

func (i ModeItem) Title() string       { return i.ModeName }
func (i ModeItem) Description() string { return i.ModeDesc }
func (i ModeItem) FilterValue() string { return "" }

type ModeModel struct {
	ModeList list.Model
	Choice   string
	width    int
	height   int
}

func InitialModeModel() ModeModel {
	return ModeModel{
		ModeList: CreateModeList(TerminalWidth()),
	}
}

func (m ModeModel) Init() tea.Cmd {
	return tea.SetWindowTitle(Title)
}

func (m ModeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ModeList.SetWidth(msg.Width)
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			if i, ok := m.ModeList.SelectedItem().(ModeItem); ok {
				m.Choice = i.ModeName
			}
			return m, tea.Quit
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		m.ModeList, cmd = m.ModeList.Update(msg)
	}

	return m, cmd
}

func (m ModeModel) View() string {
	return AppFrame("\n"+m.ModeList.View(), "j/↓: down • k/↑: up • enter: select • q: quit", m.width, m.height)
}

func CreateModeList(width int) list.Model {
	items := []list.Item{
		ModeItem{ModeName: ModeSend, ModeDesc: "Send a file to a receiver"},
		ModeItem{ModeName: ModeServe, ModeDesc: "Receive files into the data directory"},
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles = ModeItemStyles()

	l := list.New(items, delegate, width, len(items)*3+1)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowFilter(false)
	l.SetShowHelp(false)

	return l
}

// ChooseMode shows the mode menu and returns ModeSend, ModeServe, or
// ErrCancelled.
func ChooseMode() (string, error) {
	prog := tea.NewProgram(InitialModeModel(), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return "", fmt.Errorf("error running program: %w", err)
	}
	if choice := final.(ModeModel).Choice; choice != "" {
		return choice, nil
	}
	return "", ErrCancelled
}
