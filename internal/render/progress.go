package render

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/L1nMay/portscanner-console/internal/model"
)

type Progress struct {
	bar progress.Model
}

func NewProgress(width int) *Progress {
	if width <= 0 {
		width = 40
	}
	return &Progress{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(width)),
	}
}

// Line renders one progress event as "[hh:mm:ss] NN% message" followed by the bar.
func (p *Progress) Line(ev model.ProgressEvent, at time.Time) string {
	pct := ev.ClampedPercent()
	text := fmt.Sprintf("[%s] %3.0f%% %s", at.Format("15:04:05"), pct, ev.Message)
	return lipgloss.JoinHorizontal(lipgloss.Top, p.bar.ViewAs(pct/100), " ", text)
}
