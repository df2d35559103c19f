package home

import (
	"context"
	"errors"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/enfinlibre/formation/internal/api"
	"github.com/enfinlibre/formation/internal/client"
	"github.com/enfinlibre/formation/internal/router"
	"github.com/enfinlibre/formation/internal/screens/dashboard"
	"github.com/enfinlibre/formation/internal/screens/learn"
	"github.com/enfinlibre/formation/internal/session"
)

type fakeAPI struct {
	client.API
	version string
	err     error
}

func (f *fakeAPI) Health(context.Context) (*api.HealthResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.HealthResponse{Status: "ok", Version: f.version}, nil
}

func pushed(t *testing.T, cmd tea.Cmd) any {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("expected PushScreenMsg, got %T", cmd())
	}
	return msg.Screen
}

func TestMenuOpensScreens(t *testing.T) {
	h := New(&fakeAPI{version: "v1.0.0"}, session.NewForCourse(), "v1.0.0")
	h.Update(h.Init()())

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if _, ok := pushed(t, cmd).(*learn.Screen); !ok {
		t.Error("first item should open the course")
	}

	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd = h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if _, ok := pushed(t, cmd).(*dashboard.Screen); !ok {
		t.Error("second item should open the dashboard")
	}
}

func TestOfflineDisablesDashboard(t *testing.T) {
	h := New(&fakeAPI{err: errors.New("dial tcp: connection refused")}, session.NewForCourse(), "v1.0.0")
	h.Update(h.Init()())

	if !h.offline || h.mascot() != MascotOffline {
		t.Fatal("expected offline state")
	}
	if !h.menu.Items[itemDashboard].Disabled {
		t.Error("dashboard should be disabled while offline")
	}
	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if h.menu.Selected != itemQuit {
		t.Errorf("selection should skip the disabled item, got %d", h.menu.Selected)
	}
}

func TestVersionMismatchWarns(t *testing.T) {
	h := New(&fakeAPI{version: "v2.0.0"}, session.NewForCourse(), "v1.3.0")
	h.Update(h.Init()())

	if h.offline {
		t.Error("a reachable server is not offline")
	}
	if h.warning == "" {
		t.Error("expected an incompatibility warning")
	}
	if h.statusNote() == "" {
		t.Error("warning should be rendered")
	}
}

func TestMascotAfterSubmission(t *testing.T) {
	st := session.NewForCourse()
	st.Status = session.StatusSubmitted
	h := New(&fakeAPI{}, st, "")
	if h.mascot() != MascotDone {
		t.Error("submitted session should show the done mascot")
	}
}
