package session

import (
	"testing"

	"github.com/enfinlibre/formation/internal/course"
)

func TestNavigationMarksCompletion(t *testing.T) {
	s := New(5)

	s.Next()
	s.Next()
	if s.CurrentModule != 2 {
		t.Fatalf("expected module 2, got %d", s.CurrentModule)
	}
	if !s.IsComplete(0) || !s.IsComplete(1) || s.IsComplete(2) {
		t.Errorf("unexpected completion: 0=%v 1=%v 2=%v", s.IsComplete(0), s.IsComplete(1), s.IsComplete(2))
	}

	s.Prev()
	if s.CurrentModule != 1 || s.CompletedCount() != 2 {
		t.Errorf("prev should not undo completion, got module %d count %d", s.CurrentModule, s.CompletedCount())
	}

	s.GoTo(4)
	s.Next()
	if s.CurrentModule != 4 {
		t.Errorf("next on the last module should stay, got %d", s.CurrentModule)
	}
	if s.IsComplete(4) {
		t.Error("next on the last module should not complete it")
	}

	s.GoTo(9)
	s.GoTo(-1)
	if s.CurrentModule != 4 {
		t.Errorf("out-of-range GoTo should be ignored, got %d", s.CurrentModule)
	}
}

func TestCompletionIsARatchet(t *testing.T) {
	s := New(5)
	s.MarkComplete(3)
	s.MarkComplete(3)
	s.MarkComplete(7)
	if s.CompletedCount() != 1 {
		t.Errorf("expected 1 completed module, got %d", s.CompletedCount())
	}
	if got := s.Progress(); got != 0.2 {
		t.Errorf("expected progress 0.2, got %v", got)
	}
}

func TestSubmitRequiresIdentity(t *testing.T) {
	s := NewForCourse()
	s.User = User{Prenom: "Jean", Nom: " "}
	if s.CanSubmit() {
		t.Fatal("should not submit without full identity")
	}
	if _, err := s.BeginSubmit(); err != ErrIncompleteUser {
		t.Errorf("expected ErrIncompleteUser, got %v", err)
	}
	if s.Status != StatusEditing {
		t.Errorf("status should stay editing, got %s", s.Status)
	}
}

func TestSubmitFlow(t *testing.T) {
	s := NewForCourse()
	s.User = User{Prenom: "Jean", Nom: "Dupont", Email: "jean@x.com"}
	s.Next()
	s.SetAnswer(1, "Réécris ce texte")
	s.SetAnswer(2, "   ")

	req, err := s.BeginSubmit()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != StatusSubmitting {
		t.Errorf("expected submitting, got %s", s.Status)
	}
	if req.UserInfo.Email != "jean@x.com" || req.CompletedModules != 1 || req.TotalModules != course.ModuleCount() {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.Answers) != 1 || req.Answers["1"] != "Réécris ce texte" {
		t.Errorf("unexpected answers: %v", req.Answers)
	}

	if _, err := s.BeginSubmit(); err != ErrSubmitting {
		t.Errorf("expected ErrSubmitting, got %v", err)
	}

	s.SubmitFailed()
	if s.Status != StatusFailed || !s.CanSubmit() {
		t.Fatalf("a failed submission should allow retry, status %s", s.Status)
	}

	if _, err := s.BeginSubmit(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	s.SubmitSucceeded("abc")
	if s.Status != StatusSubmitted || s.SubmissionID != "abc" {
		t.Errorf("unexpected state after success: %s %q", s.Status, s.SubmissionID)
	}
	if !s.IsComplete(course.QuizModuleID) {
		t.Error("quiz module should be complete after submission")
	}

	s.SetAnswer(1, "changed")
	if s.Answers[1] != "Réécris ce texte" {
		t.Error("answers must be frozen after submission")
	}
	if _, err := s.BeginSubmit(); err != ErrAlreadySubmitted {
		t.Errorf("expected ErrAlreadySubmitted, got %v", err)
	}
}
