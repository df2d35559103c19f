package components

import (
	tea "charm.land/bubbletea/v2"

	"github.com/enfinlibre/formation/internal/ui/theme"
)

// Button triggers OnPress on Enter or Space. While Busy it shows
// BusyLabel and ignores key presses.
type Button struct {
	Label     string
	BusyLabel string
	Busy      bool
	OnPress   func() tea.Cmd
}

// NewButton creates a button.
func NewButton(label string, onPress func() tea.Cmd) Button {
	return Button{Label: label, OnPress: onPress}
}

// Update handles key events.
func (b Button) Update(msg tea.Msg) (Button, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok || b.Busy || b.OnPress == nil {
		return b, nil
	}
	switch kmsg.String() {
	case "enter", "space":
		return b, b.OnPress()
	}
	return b, nil
}

// View renders the button. Focused buttons show a selection marker.
func (b Button) View(focused bool) string {
	switch {
	case b.Busy:
		label := b.BusyLabel
		if label == "" {
			label = b.Label
		}
		return theme.ButtonInactive.Foreground(theme.TextDim).Render(label)
	case focused:
		return theme.ButtonActive.Render("▸ " + b.Label)
	default:
		return theme.ButtonInactive.Render(b.Label)
	}
}
