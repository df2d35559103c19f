// Package analysis shows the feedback on one quiz submission, requesting
// it from the server when none is stored yet.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/enfinlibre/formation/internal/client"
	"github.com/enfinlibre/formation/internal/course"
	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/router"
	"github.com/enfinlibre/formation/internal/screen"
	"github.com/enfinlibre/formation/internal/ui/components"
	"github.com/enfinlibre/formation/internal/ui/layout"
	"github.com/enfinlibre/formation/internal/ui/theme"
)

// FailureMessage is shown when no analysis could be obtained. The cause is
// not shown to the learner.
const FailureMessage = "Impossible d'obtenir l'analyse de vos réponses. Veuillez réessayer."

// MissingMessage is shown when the server has no such submission.
const MissingMessage = "Cette soumission n'existe pas ou plus."

type loadedMsg struct {
	text    string
	owner   string
	warning string
	err     error
	missing bool
}

// Screen displays an analysis.
type Screen struct {
	api          client.API
	submissionID string

	text      string
	breakdown feedback.Breakdown
	owner     string
	warning   string

	loading bool
	failed  bool
	missing bool
	offset  int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates a screen that loads the analysis of submissionID.
func New(c client.API, submissionID string) *Screen {
	return &Screen{api: c, submissionID: submissionID, loading: true}
}

// NewWithAnalysis creates a screen for a submission whose analysis may
// already be known. A nil text is requested from the server.
func NewWithAnalysis(c client.API, submissionID string, text *string) *Screen {
	s := New(c, submissionID)
	if text != nil && *text != "" {
		s.setText(*text)
		s.loading = false
	}
	return s
}

func (s *Screen) setText(text string) {
	s.text = text
	s.breakdown = feedback.ParseFeedback(text)
}

func (s *Screen) Init() tea.Cmd {
	if !s.loading {
		return nil
	}
	return s.load()
}

func (s *Screen) load() tea.Cmd {
	c, id := s.api, s.submissionID
	return func() tea.Msg {
		ctx := context.Background()
		var owner string
		sub, err := c.GetSubmission(ctx, id)
		if err != nil {
			var apiErr *client.APIError
			return loadedMsg{err: err, missing: errors.As(err, &apiErr) && apiErr.NotFound()}
		}
		owner = strings.TrimSpace(sub.Data.UserFirstName + " " + sub.Data.UserLastName)
		if sub.Data.Analysis != nil && *sub.Data.Analysis != "" {
			return loadedMsg{text: *sub.Data.Analysis, owner: owner}
		}

		res, err := c.Analyze(ctx, id)
		if err != nil {
			return loadedMsg{owner: owner, err: err}
		}
		return loadedMsg{text: res.Analysis, owner: owner, warning: res.Warning}
	}
}

func (s *Screen) Title() string {
	return "Analyse"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Défiler"},
		{Key: "a", Description: "Accueil"},
		{Key: "Esc", Description: "Retour"},
	}
	if s.failed && !s.missing {
		hints = append([]layout.KeyHint{{Key: "r", Description: "Réessayer"}}, hints...)
	}
	return hints
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loading = false
		if msg.owner != "" {
			s.owner = msg.owner
		}
		if msg.err != nil || msg.text == "" {
			s.failed = true
			s.missing = msg.missing
			return s, nil
		}
		s.failed = false
		s.warning = msg.warning
		s.setText(msg.text)
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "esc", "q":
			return s, router.Back
		case "a":
			return s, router.Home
		case "r":
			if s.failed && !s.missing && !s.loading {
				s.failed = false
				s.loading = true
				return s, s.load()
			}
		case "up", "k":
			if s.offset > 0 {
				s.offset--
			}
		case "down", "j":
			s.offset++
		case "pgup":
			s.offset = max(0, s.offset-10)
		case "pgdown":
			s.offset += 10
		case "home":
			s.offset = 0
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	cw := components.ContentWidth(width, 90)
	center := func(str string) string {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, str)
	}

	switch {
	case s.loading:
		return center(lipgloss.NewStyle().Foreground(theme.TextDim).
			Render("Analyse de vos réponses en cours..."))
	case s.missing:
		return center(lipgloss.NewStyle().Foreground(theme.Error).Bold(true).Render(MissingMessage) + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render("Esc pour revenir"))
	case s.failed:
		return center(lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
			Render("Une erreur est survenue") + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.Text).Render(FailureMessage) + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render("r pour réessayer, Esc pour revenir"))
	}

	lines := strings.Split(s.renderBody(cw), "\n")
	if s.offset > len(lines)-height {
		s.offset = max(0, len(lines)-height)
	}
	end := min(len(lines), s.offset+height)
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(lines[s.offset:end], "\n"))
}

func (s *Screen) renderBody(cw int) string {
	var b strings.Builder

	title := "Analyse de vos réponses"
	if s.owner != "" {
		title += " · " + s.owner
	}
	b.WriteString(theme.Heading.Render(title))
	b.WriteString("\n\n")

	if s.warning != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Width(cw).Render("⚠ " + s.warning))
		b.WriteString("\n\n")
	}

	b.WriteString(components.Card(s.renderScores(), cw))
	b.WriteString("\n\n")

	body := lipgloss.NewStyle().Width(cw)
	for _, line := range strings.Split(s.text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Question"):
			b.WriteString("\n" + theme.Heading.Width(cw).Render(trimmed))
		case strings.HasPrefix(trimmed, "Score"):
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Width(cw).Render(trimmed))
		default:
			b.WriteString(body.Foreground(theme.Text).Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Screen) renderScores() string {
	var parts []string
	for _, ex := range course.Exercises() {
		label := lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("Q%d", ex.ID))
		score := lipgloss.NewStyle().Foreground(theme.TextDim).Render("—")
		if q, ok := s.breakdown[ex.ID]; ok && q.Score.Found {
			score = theme.ScoreStyle(q.Score.Value).Render(fmt.Sprintf("%d/10", q.Score.Value))
		}
		parts = append(parts, label+" "+score)
	}
	return strings.Join(parts, "    ")
}
