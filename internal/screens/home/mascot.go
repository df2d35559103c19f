package home

import (
	"charm.land/lipgloss/v2"

	"github.com/enfinlibre/formation/internal/ui/theme"
)

// MascotVariant selects which assistant art to display.
type MascotVariant int

const (
	MascotIdle    MascotVariant = iota // Default
	MascotDone                         // Quiz submitted
	MascotOffline                      // Server unreachable
)

const mascotIdle = `┌─────┐
│ ◉ ◉ │
│  ‿  │
│ >_  │
└─────┘`

const mascotDone = `┌─────┐
│ ★ ★ │
│  ◡  │
│ >_  │
└─╥═╥─┘
  ╚═╝`

const mascotOffline = `┌─────┐
│ ◉ ◉ │ ?
│  ~  │
│ >_  │
└─────┘`

// RenderMascot returns the assistant art for the given variant.
func RenderMascot(v MascotVariant) string {
	art := mascotIdle
	fg := theme.Primary

	switch v {
	case MascotDone:
		art = mascotDone
		fg = theme.Accent
	case MascotOffline:
		art = mascotOffline
		fg = theme.TextDim
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Render(art)
}
