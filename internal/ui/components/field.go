package components

import (
	"strings"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/enfinlibre/formation/internal/ui/theme"
)

// Field is a labeled form input, single-line (bubbles/textinput) or
// multi-line (bubbles/textarea).
type Field struct {
	Label     string
	Required  bool
	multiline bool
	input     textinput.Model
	area      textarea.Model
}

// NewField creates a single-line field.
func NewField(label, placeholder string, required bool, charLimit int) Field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	return Field{Label: label, Required: required, input: ti}
}

// NewAreaField creates a multi-line field of the given visible size.
func NewAreaField(label, placeholder string, width, height int) Field {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(width)
	ta.SetHeight(height)
	return Field{Label: label, multiline: true, area: ta}
}

// Multiline reports whether Enter inserts a newline in this field.
func (f Field) Multiline() bool { return f.multiline }

// Focus gives the field keyboard focus.
func (f *Field) Focus() tea.Cmd {
	if f.multiline {
		return f.area.Focus()
	}
	return f.input.Focus()
}

// Blur removes keyboard focus.
func (f *Field) Blur() {
	if f.multiline {
		f.area.Blur()
		return
	}
	f.input.Blur()
}

// Focused reports whether the field has focus.
func (f Field) Focused() bool {
	if f.multiline {
		return f.area.Focused()
	}
	return f.input.Focused()
}

// Value returns the current content.
func (f Field) Value() string {
	if f.multiline {
		return f.area.Value()
	}
	return f.input.Value()
}

// SetValue replaces the content.
func (f *Field) SetValue(v string) {
	if f.multiline {
		f.area.SetValue(v)
		return
	}
	f.input.SetValue(v)
}

// Missing reports a required field left blank.
func (f Field) Missing() bool {
	return f.Required && strings.TrimSpace(f.Value()) == ""
}

// Update forwards msg to the focused input.
func (f Field) Update(msg tea.Msg) (Field, tea.Cmd) {
	var cmd tea.Cmd
	if f.multiline {
		f.area, cmd = f.area.Update(msg)
	} else {
		f.input, cmd = f.input.Update(msg)
	}
	return f, cmd
}

// View renders the label above a bordered input.
func (f Field) View(width int) string {
	label := f.Label
	if f.Required {
		label += " *"
	}
	labelStyle := lipgloss.NewStyle().Foreground(theme.TextDim)
	box := theme.FieldBlurred
	if f.Focused() {
		labelStyle = labelStyle.Foreground(theme.Primary).Bold(true)
		box = theme.FieldFocused
	}

	var body string
	if f.multiline {
		body = f.area.View()
	} else {
		body = f.input.View()
	}
	return labelStyle.Render(label) + "\n" + box.Width(width).Render(body)
}
