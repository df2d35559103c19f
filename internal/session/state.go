// Package session holds the view state of one learner's course session.
package session

import (
	"errors"
	"strconv"
	"strings"

	"github.com/enfinlibre/formation/internal/api"
	"github.com/enfinlibre/formation/internal/course"
	"github.com/enfinlibre/formation/internal/store"
)

var (
	ErrIncompleteUser   = errors.New("prénom, nom et email sont obligatoires")
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	ErrSubmitting       = errors.New("submission in progress")
)

// Status is the submission status of the session.
type Status int

const (
	StatusEditing    Status = iota // Answers can change
	StatusSubmitting               // Waiting for the server
	StatusSubmitted                // Stored; answers are frozen
	StatusFailed                   // Last attempt failed; retry allowed
)

func (s Status) String() string {
	switch s {
	case StatusEditing:
		return "editing"
	case StatusSubmitting:
		return "submitting"
	case StatusSubmitted:
		return "submitted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// User is the learner identity typed into the quiz form.
type User struct {
	Prenom string
	Nom    string
	Email  string
}

// Complete reports whether every identity field is filled.
func (u User) Complete() bool {
	return strings.TrimSpace(u.Prenom) != "" &&
		strings.TrimSpace(u.Nom) != "" &&
		strings.TrimSpace(u.Email) != ""
}

// State is owned by a single client session and is not safe for
// concurrent use.
type State struct {
	CurrentModule int
	Answers       store.Answers
	User          User
	Status        Status

	// SubmissionID is set once the server stored the quiz.
	SubmissionID string

	completed map[int]bool
	total     int
}

// New creates the state for a course with the given number of modules.
func New(totalModules int) *State {
	return &State{
		Answers:   make(store.Answers),
		completed: make(map[int]bool),
		total:     totalModules,
	}
}

// NewForCourse creates the state for the built-in course.
func NewForCourse() *State {
	return New(course.ModuleCount())
}

// TotalModules returns the number of modules in the course.
func (s *State) TotalModules() int { return s.total }

// GoTo moves to module i. Out-of-range indices are ignored.
func (s *State) GoTo(i int) {
	if i >= 0 && i < s.total {
		s.CurrentModule = i
	}
}

// Next completes the current module and moves to the following one.
func (s *State) Next() {
	if s.CurrentModule >= s.total-1 {
		return
	}
	s.MarkComplete(s.CurrentModule)
	s.CurrentModule++
}

// Prev moves to the previous module without changing completion.
func (s *State) Prev() {
	if s.CurrentModule > 0 {
		s.CurrentModule--
	}
}

// MarkComplete records module i as completed. Completion is never undone.
func (s *State) MarkComplete(i int) {
	if i >= 0 && i < s.total {
		s.completed[i] = true
	}
}

// IsComplete reports whether module i was completed.
func (s *State) IsComplete(i int) bool {
	return s.completed[i]
}

// CompletedCount returns the number of completed modules.
func (s *State) CompletedCount() int {
	return len(s.completed)
}

// Progress returns the completed share of the course in [0, 1].
func (s *State) Progress() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(len(s.completed)) / float64(s.total)
}

// SetAnswer stores the answer to quiz question q. Answers are frozen once
// the quiz is submitted.
func (s *State) SetAnswer(q int, text string) {
	if s.Status == StatusSubmitted || s.Status == StatusSubmitting {
		return
	}
	s.Answers[q] = text
}

// CanSubmit reports whether a submission may be sent now.
func (s *State) CanSubmit() bool {
	return s.checkSubmit() == nil
}

func (s *State) checkSubmit() error {
	switch s.Status {
	case StatusSubmitted:
		return ErrAlreadySubmitted
	case StatusSubmitting:
		return ErrSubmitting
	}
	if !s.User.Complete() {
		return ErrIncompleteUser
	}
	return nil
}

// BeginSubmit moves to StatusSubmitting and returns the request to send.
func (s *State) BeginSubmit() (api.SubmitQuizRequest, error) {
	if err := s.checkSubmit(); err != nil {
		return api.SubmitQuizRequest{}, err
	}
	s.Status = StatusSubmitting

	answers := make(api.AnswersDTO, len(s.Answers))
	for q, a := range s.Answers {
		if strings.TrimSpace(a) != "" {
			answers[strconv.Itoa(q)] = a
		}
	}
	return api.SubmitQuizRequest{
		UserInfo: api.UserInfoDTO{
			Prenom: s.User.Prenom,
			Nom:    s.User.Nom,
			Email:  s.User.Email,
		},
		Answers:          answers,
		CompletedModules: s.CompletedCount(),
		TotalModules:     s.total,
	}, nil
}

// SubmitSucceeded freezes the quiz and completes the quiz module.
func (s *State) SubmitSucceeded(submissionID string) {
	s.Status = StatusSubmitted
	s.SubmissionID = submissionID
	s.MarkComplete(course.QuizModuleID)
}

// SubmitFailed allows another attempt.
func (s *State) SubmitFailed() {
	if s.Status == StatusSubmitting {
		s.Status = StatusFailed
	}
}
