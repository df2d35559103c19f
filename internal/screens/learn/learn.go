// Package learn is the course screen: module navigation, the identity form
// and the final quiz.
package learn

import (
	"context"
	"errors"
	"strconv"

	tea "charm.land/bubbletea/v2"

	"github.com/enfinlibre/formation/internal/client"
	"github.com/enfinlibre/formation/internal/course"
	"github.com/enfinlibre/formation/internal/router"
	"github.com/enfinlibre/formation/internal/screen"
	"github.com/enfinlibre/formation/internal/screens/analysis"
	"github.com/enfinlibre/formation/internal/session"
	"github.com/enfinlibre/formation/internal/ui/components"
	"github.com/enfinlibre/formation/internal/ui/layout"
)

const (
	fieldPrenom = iota
	fieldNom
	fieldEmail
	firstAnswerField
)

const (
	msgIncompleteUser = "Veuillez renseigner votre prénom, votre nom et votre email."
	msgSubmitFailed   = "Erreur lors de l'envoi du quiz. Veuillez réessayer."
)

// Screen is the course screen. It shares its session.State with the rest
// of the client so progress survives leaving and re-entering it.
type Screen struct {
	api       client.API
	state     *session.State
	modules   []course.Module
	exercises []course.Exercise

	fields []components.Field
	focus  int // index into fields; len(fields) is the submit button
	submit components.Button

	errMsg string
	offset int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the course screen.
func New(c client.API, state *session.State) *Screen {
	s := &Screen{
		api:       c,
		state:     state,
		modules:   course.Modules(),
		exercises: course.Exercises(),
	}

	s.fields = []components.Field{
		components.NewField("Prénom", "Jean", true, 100),
		components.NewField("Nom", "Dupont", true, 100),
		components.NewField("Email", "jean.dupont@enfinlibre.fr", true, 254),
	}
	s.fields[fieldPrenom].SetValue(state.User.Prenom)
	s.fields[fieldNom].SetValue(state.User.Nom)
	s.fields[fieldEmail].SetValue(state.User.Email)

	for _, ex := range s.exercises {
		f := components.NewAreaField("Réponse "+strconv.Itoa(ex.ID), "Votre réponse...", 70, 4)
		f.SetValue(state.Answers[ex.ID])
		s.fields = append(s.fields, f)
	}

	s.submit = components.NewButton("Envoyer mes réponses", s.startSubmit)
	s.submit.BusyLabel = "Envoi en cours..."
	if state.Status == session.StatusSubmitted {
		s.submit.Label = "Voir l'analyse"
	}
	return s
}

func (s *Screen) Init() tea.Cmd {
	if s.onQuiz() {
		return s.setFocus(s.focus)
	}
	return nil
}

func (s *Screen) Title() string {
	return course.Title
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.onQuiz() {
		esc := "Retour"
		if s.CapturesInput() {
			esc = "Quitter le champ"
		}
		send := "Envoyer"
		if (s.state.Status == session.StatusEditing || s.state.Status == session.StatusFailed) && !s.state.CanSubmit() {
			send = "Envoyer (identité incomplète)"
		}
		return []layout.KeyHint{
			{Key: "Tab", Description: "Champ suivant"},
			{Key: "Ctrl+S", Description: send},
			{Key: "PgUp", Description: "Module précédent"},
			{Key: "Esc", Description: esc},
		}
	}
	return []layout.KeyHint{
		{Key: "←→", Description: "Modules"},
		{Key: "↑↓", Description: "Défiler"},
		{Key: "1-5", Description: "Aller au module"},
		{Key: "Esc", Description: "Retour"},
	}
}

// CapturesInput reports whether a quiz field has the focus.
func (s *Screen) CapturesInput() bool {
	return s.onQuiz() && s.focus < len(s.fields) && !s.frozen()
}

func (s *Screen) onQuiz() bool {
	return s.modules[s.state.CurrentModule].Kind == course.KindQuiz
}

func (s *Screen) frozen() bool {
	return s.state.Status == session.StatusSubmitted || s.state.Status == session.StatusSubmitting
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case submittedMsg:
		return s, s.handleSubmitted(msg)

	case tea.KeyPressMsg:
		switch msg.String() {
		case "pgdown", "ctrl+n":
			return s, s.move(s.state.Next)
		case "pgup", "ctrl+p":
			return s, s.move(s.state.Prev)
		}
		if s.onQuiz() {
			return s, s.updateQuiz(msg)
		}
		return s, s.updateLesson(msg)
	}

	if s.onQuiz() && s.focus < len(s.fields) {
		var cmd tea.Cmd
		s.fields[s.focus], cmd = s.fields[s.focus].Update(msg)
		return s, cmd
	}
	return s, nil
}

// move changes module through step and refocuses the quiz form if needed.
func (s *Screen) move(step func()) tea.Cmd {
	before := s.state.CurrentModule
	step()
	if s.state.CurrentModule == before {
		return nil
	}
	s.offset = 0
	s.errMsg = ""
	if s.onQuiz() {
		return s.setFocus(s.focus)
	}
	s.blurAll()
	return nil
}

func (s *Screen) updateLesson(msg tea.KeyPressMsg) tea.Cmd {
	switch key := msg.String(); key {
	case "right", "l", "enter", "n":
		return s.move(s.state.Next)
	case "left", "h", "p":
		return s.move(s.state.Prev)
	case "up", "k":
		if s.offset > 0 {
			s.offset--
		}
	case "down", "j":
		s.offset++
	case "1", "2", "3", "4", "5":
		target := int(key[0] - '1')
		return s.move(func() { s.state.GoTo(target) })
	}
	return nil
}

func (s *Screen) updateQuiz(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		return s.setFocus((s.focus + 1) % (len(s.fields) + 1))
	case "shift+tab":
		return s.setFocus((s.focus + len(s.fields)) % (len(s.fields) + 1))
	case "ctrl+s":
		return s.startSubmit()
	case "esc":
		// Leave the field; a second Esc navigates back.
		return s.setFocus(len(s.fields))
	case "enter":
		if s.focus == len(s.fields) {
			var cmd tea.Cmd
			s.submit, cmd = s.submit.Update(msg)
			return cmd
		}
		if !s.fields[s.focus].Multiline() {
			return s.setFocus(s.focus + 1)
		}
	}

	if s.focus >= len(s.fields) || s.frozen() {
		return nil
	}
	var cmd tea.Cmd
	s.fields[s.focus], cmd = s.fields[s.focus].Update(msg)
	s.syncState()
	return cmd
}

func (s *Screen) setFocus(i int) tea.Cmd {
	s.blurAll()
	s.focus = i
	if i < len(s.fields) && !s.frozen() {
		return s.fields[i].Focus()
	}
	return nil
}

func (s *Screen) blurAll() {
	for i := range s.fields {
		s.fields[i].Blur()
	}
}

// syncState copies the form into the session state.
func (s *Screen) syncState() {
	s.state.User = session.User{
		Prenom: s.fields[fieldPrenom].Value(),
		Nom:    s.fields[fieldNom].Value(),
		Email:  s.fields[fieldEmail].Value(),
	}
	for i, ex := range s.exercises {
		s.state.SetAnswer(ex.ID, s.fields[firstAnswerField+i].Value())
	}
}

func (s *Screen) startSubmit() tea.Cmd {
	if s.state.Status == session.StatusSubmitted {
		return router.Push(analysis.New(s.api, s.state.SubmissionID))
	}

	s.syncState()
	req, err := s.state.BeginSubmit()
	switch {
	case errors.Is(err, session.ErrIncompleteUser):
		s.errMsg = msgIncompleteUser
		for i := fieldPrenom; i <= fieldEmail; i++ {
			if s.fields[i].Missing() {
				return s.setFocus(i)
			}
		}
		return nil
	case err != nil:
		return nil
	}

	s.errMsg = ""
	s.submit.Busy = true
	s.blurAll()
	c := s.api
	return func() tea.Msg {
		res, err := c.Submit(context.Background(), req)
		return submittedMsg{res: res, err: err}
	}
}

func (s *Screen) handleSubmitted(msg submittedMsg) tea.Cmd {
	s.submit.Busy = false
	if msg.err != nil || msg.res == nil || !msg.res.Success {
		s.state.SubmitFailed()
		s.errMsg = msgSubmitFailed
		return s.setFocus(len(s.fields))
	}

	s.state.SubmitSucceeded(msg.res.Data.ID)
	s.submit.Label = "Voir l'analyse"
	s.focus = len(s.fields)
	return router.Push(analysis.NewWithAnalysis(s.api, msg.res.Data.ID, msg.res.Data.Analysis))
}
