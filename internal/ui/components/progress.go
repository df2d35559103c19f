package components

import (
	"fmt"
	"math"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/enfinlibre/formation/internal/ui/theme"
)

const minBarWidth = 4

// ProgressBar is a one-line course progress gauge.
type ProgressBar struct {
	Label       string
	Fraction    float64 // clamped to [0, 1]
	ShowPercent bool
	Width       int // total width, label and percentage included
}

// NewProgressBar creates a progress bar.
func NewProgressBar(label string, fraction float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Fraction:    min(max(fraction, 0), 1),
		ShowPercent: showPercent,
		Width:       width,
	}
}

// Filled returns the number of filled cells for a bar of n cells.
func (p ProgressBar) Filled(n int) int {
	return min(n, int(math.Round(p.Fraction*float64(n))))
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(theme.Body.Render(p.Label))
		b.WriteString("  ")
	}

	percent := ""
	if p.ShowPercent {
		percent = fmt.Sprintf("  %3d%%", int(math.Round(p.Fraction*100)))
	}

	cells := max(p.Width-lipgloss.Width(b.String())-len(percent), minBarWidth)
	filled := p.Filled(cells)
	b.WriteString(theme.ProgressFilled.Render(strings.Repeat(" ", filled)))
	b.WriteString(theme.ProgressEmpty.Render(strings.Repeat(" ", cells-filled)))
	if percent != "" {
		b.WriteString(theme.Hint.Render(percent))
	}
	return b.String()
}
