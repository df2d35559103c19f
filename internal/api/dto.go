package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/store"
)

// UserInfoDTO is the learner identity as sent by the client.
type UserInfoDTO struct {
	Prenom string `json:"prenom"`
	Nom    string `json:"nom"`
	Email  string `json:"email"`
}

// AnswersDTO maps question numbers ("1".."3") to answers.
type AnswersDTO map[string]string

// SubmitQuizRequest is the body of POST /functions/v1/submit-quiz.
type SubmitQuizRequest struct {
	UserInfo         UserInfoDTO `json:"userInfo"`
	Answers          AnswersDTO  `json:"answers"`
	CompletedModules int         `json:"completedModules"`
	TotalModules     int         `json:"totalModules"`
	// Analysis is either analysis text or a structured analysis object.
	Analysis json.RawMessage `json:"analysis,omitempty"`
}

// AnalyzeQuizRequest is the body of POST /functions/v1/analyze-quiz. Exactly
// one of SubmissionID and Answers is used; SubmissionID wins.
type AnalyzeQuizRequest struct {
	SubmissionID string     `json:"submissionId,omitempty"`
	Answers      AnswersDTO `json:"answers,omitempty"`
}

// SubmissionDTO is the wire shape of a stored submission.
type SubmissionDTO struct {
	ID               string    `json:"id"`
	UserFirstName    string    `json:"user_first_name"`
	UserLastName     string    `json:"user_last_name"`
	UserEmail        string    `json:"user_email"`
	Answer1          *string   `json:"answer_1"`
	Answer2          *string   `json:"answer_2"`
	Answer3          *string   `json:"answer_3"`
	Analysis         *string   `json:"analysis"`
	CompletedModules int       `json:"completed_modules"`
	TotalModules     int       `json:"total_modules"`
	CreatedAt        time.Time `json:"created_at"`
}

// SubmitQuizResponse is returned by submit-quiz.
type SubmitQuizResponse struct {
	Success       bool               `json:"success"`
	Data          SubmissionDTO      `json:"data"`
	Breakdown     feedback.Breakdown `json:"breakdown,omitempty"`
	AnalysisError string             `json:"analysisError,omitempty"`
}

// AnalyzeQuizResponse is returned by analyze-quiz.
type AnalyzeQuizResponse struct {
	Success   bool               `json:"success"`
	Analysis  string             `json:"analysis"`
	Breakdown feedback.Breakdown `json:"breakdown"`
	Cached    bool               `json:"cached"`
	Warning   string             `json:"warning,omitempty"`
}

// SubmissionListResponse is returned by GET /api/submissions.
type SubmissionListResponse struct {
	Success bool            `json:"success"`
	Data    []SubmissionDTO `json:"data"`
}

// SubmissionResponse is returned by GET /api/submissions/:id.
type SubmissionResponse struct {
	Success   bool               `json:"success"`
	Data      SubmissionDTO      `json:"data"`
	Breakdown feedback.Breakdown `json:"breakdown,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func toSubmissionDTO(s *store.Submission) SubmissionDTO {
	return SubmissionDTO{
		ID:               s.ID,
		UserFirstName:    s.FirstName,
		UserLastName:     s.LastName,
		UserEmail:        s.Email,
		Answer1:          answerPtr(s.Answers, 1),
		Answer2:          answerPtr(s.Answers, 2),
		Answer3:          answerPtr(s.Answers, 3),
		Analysis:         s.Analysis,
		CompletedModules: s.CompletedModules,
		TotalModules:     s.TotalModules,
		CreatedAt:        s.CreatedAt,
	}
}

func answerPtr(a store.Answers, i int) *string {
	v, ok := a[i]
	if !ok {
		return nil
	}
	return &v
}

// ToAnswers converts wire answers. Keys that are not question numbers are
// dropped.
func (a AnswersDTO) ToAnswers() store.Answers {
	out := make(store.Answers, len(a))
	for k, v := range a {
		i, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[i] = v
	}
	return out
}

// decodeAnalysis turns the optional analysis field into canonical text.
// A structured object is rendered with feedback.RenderText.
func decodeAnalysis(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("invalid analysis: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return &text, nil
	case '{':
		structured, err := feedback.DecodeStructured(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid analysis: %w", err)
		}
		text := feedback.RenderText(structured)
		return &text, nil
	default:
		return nil, fmt.Errorf("invalid analysis: expected text or object")
	}
}
