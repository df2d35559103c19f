// Package dashboard lists the stored quiz submissions.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/enfinlibre/formation/internal/api"
	"github.com/enfinlibre/formation/internal/client"
	"github.com/enfinlibre/formation/internal/router"
	"github.com/enfinlibre/formation/internal/screen"
	"github.com/enfinlibre/formation/internal/screens/analysis"
	"github.com/enfinlibre/formation/internal/ui/components"
	"github.com/enfinlibre/formation/internal/ui/layout"
	"github.com/enfinlibre/formation/internal/ui/theme"
)

type loadedMsg struct {
	submissions []api.SubmissionDTO
	at          time.Time
	err         error
}

// Screen displays submissions newest first.
type Screen struct {
	api         client.API
	submissions []api.SubmissionDTO
	selected    int
	loaded      bool
	failed      bool
	updatedAt   time.Time
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates a dashboard screen.
func New(c client.API) *Screen {
	return &Screen{api: c}
}

func (s *Screen) Init() tea.Cmd {
	c := s.api
	return func() tea.Msg {
		subs, err := c.ListSubmissions(context.Background(), 0)
		return loadedMsg{submissions: subs, at: time.Now(), err: err}
	}
}

func (s *Screen) Title() string {
	return "Tableau de bord"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Voir l'analyse"},
		{Key: "↑↓", Description: "Naviguer"},
		{Key: "r", Description: "Actualiser"},
		{Key: "Esc", Description: "Retour"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		s.failed = msg.err != nil
		if msg.err == nil {
			s.submissions = msg.submissions
			s.updatedAt = msg.at
			if s.selected >= len(s.submissions) {
				s.selected = max(0, len(s.submissions)-1)
			}
		}
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.submissions)-1 {
				s.selected++
			}
		case "r":
			s.loaded = false
			return s, s.Init()
		case "enter":
			if s.selected < len(s.submissions) {
				sub := s.submissions[s.selected]
				return s, router.Push(analysis.NewWithAnalysis(s.api, sub.ID, sub.Analysis))
			}
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	message := func(text string, fg lipgloss.Style) string {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, fg.Render(text))
	}
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)

	switch {
	case s.failed:
		return message("Une erreur est survenue lors du chargement des soumissions.\n\nr pour réessayer",
			lipgloss.NewStyle().Foreground(theme.Error))
	case !s.loaded:
		return message("Chargement des soumissions...", dim)
	case len(s.submissions) == 0:
		return message("Aucune soumission trouvée pour le moment.", dim.Italic(true))
	}

	cw := components.ContentWidth(width, 80)
	head := theme.Heading.Render(fmt.Sprintf("%d soumission(s)", len(s.submissions))) + "  " +
		dim.Render("Dernière mise à jour : "+s.updatedAt.Format("02/01/2006 15:04:05"))

	var cards []string
	for i, sub := range s.submissions {
		cards = append(cards, renderCard(sub, i == s.selected, cw))
	}

	// scroll so the selected card stays visible; cards have a fixed height
	cardHeight := lipgloss.Height(cards[0])
	visible := max(1, (height-2)/cardHeight)
	start := 0
	if s.selected >= visible {
		start = s.selected - visible + 1
	}
	end := min(len(cards), start+visible)

	content := head + "\n\n" + strings.Join(cards[start:end], "\n")
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, content)
}

func renderCard(sub api.SubmissionDTO, selected bool, cw int) string {
	name := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).
		Render(strings.TrimSpace(sub.UserFirstName + " " + sub.UserLastName))
	date := lipgloss.NewStyle().Foreground(theme.TextDim).Render(sub.CreatedAt.Local().Format("02/01/2006"))
	email := lipgloss.NewStyle().Foreground(theme.TextDim).Render(sub.UserEmail)

	status := lipgloss.NewStyle().Foreground(theme.Accent).Render("○ analyse en attente")
	if sub.Analysis != nil && *sub.Analysis != "" {
		status = theme.Done.Render("● analysé")
	}

	inner := cw - 4
	top := name + strings.Repeat(" ", max(1, inner-lipgloss.Width(name)-lipgloss.Width(date))) + date
	mid := email + strings.Repeat(" ", max(1, inner-lipgloss.Width(email)-lipgloss.Width(status))) + status

	label := fmt.Sprintf("Progression : %d/%d modules", sub.CompletedModules, sub.TotalModules)
	bar := components.NewProgressBar(label, fraction(sub.CompletedModules, sub.TotalModules), false, inner)

	border := theme.Border
	if selected {
		border = theme.Primary
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(cw - 2).
		Padding(0, 1).
		Render(top + "\n" + mid + "\n" + bar.View())
}

// fraction returns completed/total clamped to [0, 1]; a zero total is 0.
func fraction(completed, total int) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 1
	}
	return float64(completed) / float64(total)
}
