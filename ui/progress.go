package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const barWidth = 30

// Progress draws a single-line progress bar on stderr. It stays silent
// when stderr is not a terminal.
type Progress struct {
	out     io.Writer
	message string
	total   int
	enabled bool

	mu      sync.Mutex
	current int
	drawn   int // last rendered percentage
}

// NewProgress creates a bar for total steps.
func NewProgress(message string, total int) *Progress {
	return newProgress(os.Stderr, message, total, isatty.IsTerminal(os.Stderr.Fd()))
}

func newProgress(out io.Writer, message string, total int, enabled bool) *Progress {
	return &Progress{out: out, message: message, total: total, enabled: enabled && total > 0, drawn: -1}
}

// Inc advances the bar by one step.
func (p *Progress) Inc() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	if !p.enabled {
		return
	}
	pct := p.current * 100 / p.total
	if pct > 100 {
		pct = 100
	}
	if pct == p.drawn {
		return
	}
	p.drawn = pct
	filled := pct * barWidth / 100
	fmt.Fprintf(p.out, "\r%s [%s%s] %3d%% %s",
		p.message,
		Accent.Render(strings.Repeat("█", filled)),
		Muted.Render(strings.Repeat("░", barWidth-filled)),
		pct,
		Muted.Render(fmt.Sprintf("(%d/%d)", p.current, p.total)))
}

// Finish clears the bar line.
func (p *Progress) Finish() {
	if !p.enabled {
		return
	}
	fmt.Fprint(p.out, "\r\033[K")
}
