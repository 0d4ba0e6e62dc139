package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/L1nMay/portscanner-console/internal/clock"
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4D96FF"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D26A")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3838")).Bold(true)
)

func styleFor(l Level) lipgloss.Style {
	switch l {
	case LevelOK:
		return okStyle
	case LevelError:
		return errorStyle
	}
	return infoStyle
}

// Console prints notifications to a terminal and tracks which one is still
// visible. A newer notification replaces the visible one and restarts the
// dismissal timer.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	clock    clock.Clock
	timeout  time.Duration
	visible  *Notification
	dismiss  clock.Timer
	shownSeq uint64
}

func NewConsole(w io.Writer, clk clock.Clock, defaultTimeout time.Duration) *Console {
	if clk == nil {
		clk = clock.Real()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Console{w: w, clock: clk, timeout: defaultTimeout}
}

func (c *Console) Notify(n Notification) {
	if n.Timeout <= 0 {
		n.Timeout = c.timeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tag := styleFor(n.Level).Render("[" + n.Level.String() + "]")
	_, _ = fmt.Fprintf(c.w, "%s %s\n", tag, n.Message)

	if c.dismiss != nil {
		c.dismiss.Stop()
	}
	c.shownSeq++
	seq := c.shownSeq
	c.visible = &n
	c.dismiss = c.clock.AfterFunc(n.Timeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.shownSeq == seq {
			c.visible = nil
			c.dismiss = nil
		}
	})
}

// Visible returns the notification that has not been dismissed yet, if any.
func (c *Console) Visible() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visible == nil {
		return Notification{}, false
	}
	return *c.visible, true
}
