package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PlainProgress draws a single-line text bar, for output that is not an
// interactive terminal.
type PlainProgress struct {
	w        io.Writer
	width    int
	interval time.Duration

	mu       sync.Mutex
	start    time.Time
	last     time.Time
	finished bool
}

func NewPlainProgress(w io.Writer) *PlainProgress {
	return &PlainProgress{w: w, width: 28, interval: 150 * time.Millisecond}
}

func (p *PlainProgress) Report(sent, total int64, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.start.IsZero() {
		p.start = now
	}
	done := sent >= total
	if p.finished || (!done && now.Sub(p.last) < p.interval) {
		return
	}
	p.last = now
	p.draw(sent, total, label, now)
	if done {
		p.finished = true
		fmt.Fprintln(p.w)
	}
}

func (p *PlainProgress) draw(sent, total int64, label string, now time.Time) {
	if len(label) > 20 {
		label = label[len(label)-20:]
	}

	pct := 1.0
	if total > 0 {
		pct = float64(sent) / float64(total)
	}
	filled := int(pct * float64(p.width))
	bar := strings.Repeat("#", filled) + strings.Repeat(".", p.width-filled)

	var speed float64
	if dt := now.Sub(p.start).Seconds(); dt > 0 {
		speed = float64(sent) / dt
	}
	fmt.Fprintf(p.w, "\r  %-20s [%s] %5.1f%%  %s/s", label, bar, pct*100, FormatBytes(speed))
}

// FormatBytes renders n with a binary unit, e.g. "1.5 KB".
func FormatBytes(n float64) string {
	for _, u := range []string{"B", "KB", "MB", "GB"} {
		if n < 1024 {
			return fmt.Sprintf("%.1f %s", n, u)
		}
		n /= 1024
	}
	return fmt.Sprintf("%.1f TB", n)
}
