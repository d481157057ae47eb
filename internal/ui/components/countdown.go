package components

import (
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/pdfquiz/internal/ui/theme"
)

// Countdown shows the time left on a question as a draining bar.
type Countdown struct {
	Total time.Duration

	bar   progress.Model
	width int
}

// NewCountdown creates a countdown over total.
func NewCountdown(total time.Duration) Countdown {
	return Countdown{Total: total}
}

// View renders the bar for remaining time at the given width.
func (c *Countdown) View(remaining time.Duration, width int) string {
	label := fmt.Sprintf(" %2ds", int(remaining.Round(time.Second).Seconds()))
	barWidth := max(width-lipgloss.Width(label), 4)
	if barWidth != c.width {
		c.bar = progress.New(progress.WithWidth(barWidth), progress.WithoutPercentage())
		c.width = barWidth
	}

	var frac float64
	if c.Total > 0 {
		frac = float64(remaining) / float64(c.Total)
	}
	frac = min(max(frac, 0), 1)

	labelStyle := theme.Muted
	if remaining <= theme.LowTime {
		labelStyle = theme.TimerLow
	}
	return c.bar.ViewAs(frac) + labelStyle.Render(label)
}
