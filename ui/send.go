package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lorendsnow/fileserver/server"
)

// ProgressMsg carries one sender progress update into the program.
type ProgressMsg server.SendProgress

// DoneMsg ends the transfer view.
type DoneMsg struct {
	Sent int64
	Err  error
}

type SendModel struct {
	filename      string
	addr          string
	progress      progress.Model
	transferState server.TransferState
	bytesSent     int64
	totalBytes    int64
	speed         float64
	err           error
	quitting      bool
	cancel        func()
}

// NewSendModel builds the progress view for one file. cancel is called
// when the user quits before the transfer finishes.
func NewSendModel(filename, addr string, width int, cancel func()) SendModel {
	p := progress.New(progress.WithSolidFill(Accent))
	if w := width - 20; w > 10 {
		p.Width = w
	}
	return SendModel{
		filename:      filename,
		addr:          addr,
		progress:      p,
		transferState: server.StateConnecting,
		cancel:        cancel,
	}
}

func (m SendModel) Init() tea.Cmd {
	return tea.SetWindowTitle(Title)
}

func (m SendModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if w := msg.Width - 20; w > 10 {
			m.progress.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			if !m.transferState.Terminal() {
				if m.cancel != nil {
					m.cancel()
				}
				m.transferState = server.StateError
				m.err = ErrCancelled
			}
			m.quitting = true
			return m, tea.Quit
		}

	case ProgressMsg:
		m.transferState = server.StateTransferring
		m.bytesSent = msg.BytesSent
		m.totalBytes = msg.TotalBytes
		m.speed = msg.Speed
		return m, nil

	case DoneMsg:
		m.bytesSent = msg.Sent
		m.err = msg.Err
		if msg.Err != nil {
			m.transferState = server.StateError
		} else {
			m.transferState = server.StateCompleted
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m SendModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(emphasis.Render(m.filename))
	s.WriteString(muted.Render(" -> " + m.addr))
	s.WriteString("\n\n")

	switch m.transferState {
	case server.StateConnecting:
		s.WriteString("Sending header...\n")

	case server.StateTransferring:
		var fraction float64
		if m.totalBytes > 0 {
			fraction = float64(m.bytesSent) / float64(m.totalBytes)
		} else {
			fraction = 1
		}
		s.WriteString(fmt.Sprintf("%s\n", m.progress.ViewAs(fraction)))
		s.WriteString(fmt.Sprintf("%s / %s  (%.2f MB/s)\n",
			FormatBytes(float64(m.bytesSent)), FormatBytes(float64(m.totalBytes)), m.speed))

	case server.StateCompleted:
		s.WriteString(okStyle.Render("Transfer completed successfully") + "\n")

	case server.StateError:
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}

	return AppFrame(Container.Render(s.String()), "q: quit", 0, 0)
}

// Sent returns the payload bytes confirmed by the last update.
func (m SendModel) Sent() int64 { return m.bytesSent }

// Err returns the transfer error, ErrCancelled if the user quit, or nil.
func (m SendModel) Err() error { return m.err }

// TeaProgress forwards progress reports to a running program, at most
// once per interval plus the final update.
type TeaProgress struct {
	program  *tea.Program
	interval time.Duration

	mu    sync.Mutex
	start time.Time
	last  time.Time
}

func NewTeaProgress(p *tea.Program) *TeaProgress {
	return &TeaProgress{program: p, interval: 100 * time.Millisecond}
}

func (p *TeaProgress) Report(sent, total int64, label string) {
	p.mu.Lock()
	now := time.Now()
	if p.start.IsZero() {
		p.start = now
	}
	if sent < total && now.Sub(p.last) < p.interval {
		p.mu.Unlock()
		return
	}
	p.last = now
	var speed float64
	if dt := now.Sub(p.start).Seconds(); dt > 0 {
		speed = float64(sent) / dt / 1024 / 1024
	}
	p.mu.Unlock()

	p.program.Send(ProgressMsg{
		State:      server.StateTransferring,
		BytesSent:  sent,
		TotalBytes: total,
		Filename:   label,
		Speed:      speed,
	})
}

// RunSend sends filename over an already connected client while showing
// a progress bar.
func RunSend(client *server.Client, filename string) (int64, error) {
	m := NewSendModel(filename, client.Addr(), TerminalWidth(), client.Abort)
	prog := tea.NewProgram(m)
	client.SetProgress(NewTeaProgress(prog))

	go func() {
		n, err := client.SendFile(filename)
		prog.Send(DoneMsg{Sent: n, Err: err})
	}()

	final, err := prog.Run()
	if err != nil {
		client.Abort()
		return 0, fmt.Errorf("error running program: %w", err)
	}

	fm := final.(SendModel)
	return fm.Sent(), fm.Err()
}
