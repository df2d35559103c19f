package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/enfinlibre/formation/internal/client"
	"github.com/enfinlibre/formation/internal/course"
	"github.com/enfinlibre/formation/internal/router"
	"github.com/enfinlibre/formation/internal/screen"
	"github.com/enfinlibre/formation/internal/screens/dashboard"
	"github.com/enfinlibre/formation/internal/screens/learn"
	"github.com/enfinlibre/formation/internal/screens/welcome"
	"github.com/enfinlibre/formation/internal/session"
	"github.com/enfinlibre/formation/internal/ui/components"
	"github.com/enfinlibre/formation/internal/ui/theme"
)

const (
	itemCourse = iota
	itemDashboard
	itemQuit
)

const buttonWidth = 28

type healthMsg struct {
	version string
	err     error
}

// HomeScreen is the main menu.
type HomeScreen struct {
	api     client.API
	state   *session.State
	version string

	menu    components.Menu
	checked bool
	offline bool
	warning string
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates the home screen for one learner session. version is the
// client build version compared against the server's.
func New(c client.API, state *session.State, version string) *HomeScreen {
	h := &HomeScreen{api: c, state: state, version: version}
	h.menu = components.NewMenu([]components.MenuItem{
		{Label: "COMMENCER LA FORMATION", Action: func() tea.Cmd {
			return router.Push(learn.New(h.api, h.state))
		}},
		{Label: "TABLEAU DE BORD", Action: func() tea.Cmd {
			return router.Push(dashboard.New(h.api))
		}},
		{Label: "QUITTER", Action: func() tea.Cmd {
			return tea.Quit
		}},
	})
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	c := h.api
	return func() tea.Msg {
		res, err := c.Health(context.Background())
		if err != nil {
			return healthMsg{err: err}
		}
		return healthMsg{version: res.Version}
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(healthMsg); ok {
		h.checked = true
		h.offline = msg.err != nil
		h.warning = ""
		if msg.err == nil {
			if err := client.CheckCompatible(h.version, msg.version); err != nil {
				h.warning = err.Error()
			}
		}
		h.menu.SetDisabled(itemDashboard, h.offline)
		return h, nil
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) mascot() MascotVariant {
	switch {
	case h.offline:
		return MascotOffline
	case h.state.Status == session.StatusSubmitted:
		return MascotDone
	default:
		return MascotIdle
	}
}

func (h *HomeScreen) View(width, height int) string {
	// height excludes header and footer
	compact := height+8 < 30 || width < 100
	cw := components.ContentWidth(width, 60)

	if h.state.CompletedCount() > 0 {
		h.menu.Items[itemCourse].Label = "CONTINUER LA FORMATION"
	}

	center := lipgloss.NewStyle().Width(cw).Align(lipgloss.Center)

	var sections []string
	sections = append(sections, center.Render(welcome.RenderBanner(cw)))
	sections = append(sections, center.Render(
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(course.Title+" · "+course.Audience)))

	if !compact {
		sections = append(sections, center.Render(RenderMascot(h.mascot())))
	}

	bar := components.NewProgressBar("Progression", h.state.Progress(), true, cw-4)
	sections = append(sections, components.Card(bar.View(), cw))

	sections = append(sections, center.Render(h.menu.ButtonsView(buttonWidth)))

	if note := h.statusNote(); note != "" {
		sections = append(sections, center.Render(note))
	}

	return components.Frame(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) statusNote() string {
	switch {
	case h.offline:
		return lipgloss.NewStyle().Foreground(theme.Accent).
			Render("⚠ Serveur injoignable (voir formation learn --help)")
	case h.warning != "":
		return lipgloss.NewStyle().Foreground(theme.Accent).
			Render(fmt.Sprintf("⚠ %s", h.warning))
	case !h.checked:
		return lipgloss.NewStyle().Foreground(theme.TextDim).Render("Connexion au serveur...")
	}
	return ""
}

func (h *HomeScreen) Title() string {
	return "Accueil"
}
