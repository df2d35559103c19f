package learn

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/enfinlibre/formation/internal/course"
	"github.com/enfinlibre/formation/internal/session"
	"github.com/enfinlibre/formation/internal/ui/components"
	"github.com/enfinlibre/formation/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	cw := components.ContentWidth(width, 90)
	mod := s.modules[s.state.CurrentModule]

	header := s.renderTabs(cw) + "\n\n" +
		theme.Heading.Render(mod.Title) + "  " +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(mod.Duration) + "\n"

	var body string
	var focusLine int
	switch mod.Kind {
	case course.KindIntro:
		body = renderIntro(mod, cw)
	case course.KindElements:
		body = renderElements(mod, cw)
	case course.KindTemplate:
		body = renderTemplate(mod, cw)
	case course.KindPitfalls:
		body = renderPitfalls(mod, cw)
	case course.KindQuiz:
		body, focusLine = s.renderQuiz(mod, cw)
	}

	avail := height - lipgloss.Height(header) - 1
	if avail < 1 {
		avail = 1
	}
	lines := strings.Split(body, "\n")
	if mod.Kind == course.KindQuiz {
		// keep the focused field in view
		if focusLine < s.offset {
			s.offset = focusLine
		} else if focusLine+6 > s.offset+avail {
			s.offset = focusLine + 6 - avail
		}
	}
	if s.offset > len(lines)-avail {
		s.offset = max(0, len(lines)-avail)
	}
	end := min(len(lines), s.offset+avail)

	content := header + "\n" + strings.Join(lines[s.offset:end], "\n")
	return lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Width(cw).Render(content))
}

func (s *Screen) renderTabs(cw int) string {
	tabs := make([]string, 0, len(s.modules))
	for i := range s.modules {
		label := fmt.Sprintf(" %d ", i+1)
		style := lipgloss.NewStyle().Foreground(theme.TextDim)
		if s.state.IsComplete(i) {
			label = fmt.Sprintf(" %d✓", i+1)
			style = style.Foreground(theme.Success)
		}
		if i == s.state.CurrentModule {
			style = style.Foreground(theme.Text).Background(theme.Primary).Bold(true)
		}
		tabs = append(tabs, style.Render(label))
	}
	bar := components.NewProgressBar("", s.state.Progress(), true, cw/2)
	return strings.Join(tabs, " ") + "   " + bar.View()
}

func paragraph(text string, cw int) string {
	return theme.Body.Width(cw).Render(text)
}

func renderIntro(mod course.Module, cw int) string {
	var b strings.Builder
	b.WriteString(paragraph(mod.Concept, cw))
	b.WriteString("\n\n")
	b.WriteString(theme.Failed.Render("✗ Mauvais prompt"))
	b.WriteString("\n")
	b.WriteString(theme.BadExample.Width(cw).Render(mod.BadPrompt))
	b.WriteString("\n\n")
	b.WriteString(theme.Done.Render("✓ Bon prompt"))
	b.WriteString("\n")
	b.WriteString(theme.GoodExample.Width(cw).Render(mod.GoodPrompt))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render("À retenir : " + mod.KeyIdea))
	return b.String()
}

func renderElements(mod course.Module, cw int) string {
	var items []string
	for i, el := range mod.Elements {
		name := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
			Render(fmt.Sprintf("%d. %s %s", i+1, el.Icon, el.Name))
		items = append(items, components.Card(name+"\n"+theme.Body.Render(el.Description), cw))
	}
	return strings.Join(items, "\n")
}

func renderTemplate(mod course.Module, cw int) string {
	var b strings.Builder
	b.WriteString(theme.Heading.Render("Modèle"))
	b.WriteString("\n")
	b.WriteString(components.Card(theme.Body.Render(mod.Template), cw))
	b.WriteString("\n\n")
	b.WriteString(theme.Heading.Render("Exemple"))
	b.WriteString("\n")
	b.WriteString(theme.GoodExample.Width(cw).Render(mod.Example))
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Width(cw).Render("Astuce : " + mod.Tip))
	return b.String()
}

func renderPitfalls(mod course.Module, cw int) string {
	var b strings.Builder
	for _, p := range mod.Pitfalls {
		b.WriteString(theme.Failed.Render("✗ " + p.Kind))
		b.WriteString("\n")
		b.WriteString(theme.BadExample.Width(cw).Render("« " + p.Example + " »"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(theme.Heading.Render("Solutions"))
	b.WriteString("\n")
	for _, sol := range mod.Solutions {
		b.WriteString(theme.Done.Render("✓ ") + theme.Body.Render(sol))
		b.WriteString("\n")
	}
	return b.String()
}

// renderQuiz returns the quiz body and the line on which the focused
// element starts.
func (s *Screen) renderQuiz(mod course.Module, cw int) (string, int) {
	var parts []string
	focusLine := 0
	lineCount := func() int {
		return lipgloss.Height(strings.Join(parts, "\n"))
	}
	add := func(str string, focused bool) {
		if focused {
			focusLine = lineCount()
		}
		parts = append(parts, str)
	}

	add(paragraph(mod.Concept, cw)+"\n", false)
	add(theme.Heading.Render("Vos informations"), false)
	for i := fieldPrenom; i <= fieldEmail; i++ {
		add(s.fields[i].View(cw-2), s.focus == i)
	}

	for i, ex := range s.exercises {
		q := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Width(cw).
			Render(fmt.Sprintf("\nExercice %d : %s", ex.ID, ex.Question))
		p := theme.Hint.Width(cw).Render("« " + ex.Prompt + " »")
		add(q+"\n"+p, false)
		add(s.fields[firstAnswerField+i].View(cw-2), s.focus == firstAnswerField+i)
	}

	status := ""
	if s.state.Status == session.StatusSubmitted {
		status = theme.Done.Render("✓ Quiz envoyé")
	}
	if s.errMsg != "" {
		status = lipgloss.NewStyle().Foreground(theme.Error).Width(cw).Render(s.errMsg)
	}
	add("\n"+s.submit.View(s.focus == len(s.fields))+"  "+status, s.focus == len(s.fields))

	return strings.Join(parts, "\n"), focusLine
}
