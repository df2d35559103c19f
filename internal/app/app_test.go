package app

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/enfinlibre/formation/internal/api"
	"github.com/enfinlibre/formation/internal/client"
	"github.com/enfinlibre/formation/internal/course"
	"github.com/enfinlibre/formation/internal/screens/home"
	"github.com/enfinlibre/formation/internal/screens/learn"
	"github.com/enfinlibre/formation/internal/screens/welcome"
)

type fakeAPI struct{ client.API }

func (fakeAPI) Health(context.Context) (*api.HealthResponse, error) {
	return &api.HealthResponse{Status: "ok", Version: "v1.0.0"}, nil
}

// step delivers msg, then the message produced by the returned command.
func step(m AppModel, msg tea.Msg) AppModel {
	next, cmd := m.Update(msg)
	m = next.(AppModel)
	if cmd != nil {
		if out := cmd(); out != nil {
			next, _ = m.Update(out)
			m = next.(AppModel)
		}
	}
	return m
}

func TestStartsOnWelcomeThenHome(t *testing.T) {
	m := newAppModel(fakeAPI{}, "v1.0.0")
	if _, ok := m.router.Active().(*welcome.WelcomeScreen); !ok {
		t.Fatalf("expected welcome screen, got %T", m.router.Active())
	}

	m = step(m, tea.KeyPressMsg{Code: ' ', Text: " "})
	if _, ok := m.router.Active().(*home.HomeScreen); !ok {
		t.Fatalf("expected home screen, got %T", m.router.Active())
	}
	if m.router.Depth() != 1 {
		t.Errorf("welcome should be replaced, depth %d", m.router.Depth())
	}
}

func TestEscAtRootIsIgnored(t *testing.T) {
	m := newAppModel(fakeAPI{}, "")
	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd != nil {
		t.Error("esc on the root screen should do nothing")
	}
}

func TestFooterUsesScreenHints(t *testing.T) {
	m := newAppModel(fakeAPI{}, "")
	m = step(m, tea.KeyPressMsg{Code: ' ', Text: " "})
	hints := m.footerHints()
	if len(hints) != 3 || hints[len(hints)-1].Key != "Ctrl+C" {
		t.Errorf("unexpected home hints %+v", hints)
	}
}

func TestEscWhileTypingStaysOnScreen(t *testing.T) {
	m := newAppModel(fakeAPI{}, "")
	m = step(m, tea.KeyPressMsg{Code: ' ', Text: " "})

	m.state.GoTo(course.QuizModuleID)
	quiz := learn.New(fakeAPI{}, m.state)
	m.router.Push(quiz)

	m = step(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.router.Active() != quiz {
		t.Fatalf("esc in a field should not leave the quiz, got %T", m.router.Active())
	}
	m = step(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if _, ok := m.router.Active().(*home.HomeScreen); !ok {
		t.Errorf("second esc should go back home, got %T", m.router.Active())
	}
}
