package store

import (
	"context"
	"strings"
	"time"
)

// QuestionCount is the number of quiz questions a submission can answer.
const QuestionCount = 3

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // timestamp >= From
	To    time.Time // timestamp <= To
}

// ListOpts configures submission listing.
type ListOpts struct {
	Limit int // max results (0 = unlimited)
}

// Answers maps a question index (1..QuestionCount) to the free-text answer.
// Absent keys mean "no answer".
type Answers map[int]string

// Submission is one learner's quiz answers and identity.
type Submission struct {
	ID               string
	FirstName        string
	LastName         string
	Email            string
	Answers          Answers
	CompletedModules int
	TotalModules     int
	Analysis         *string
	CreatedAt        time.Time
}

// HasAnalysis reports whether a non-blank analysis is stored.
func (s *Submission) HasAnalysis() bool {
	return s.Analysis != nil && strings.TrimSpace(*s.Analysis) != ""
}

// blankToNil drops a blank analysis so it is stored as NULL.
func blankToNil(analysis *string) *string {
	if analysis == nil || strings.TrimSpace(*analysis) == "" {
		return nil
	}
	return analysis
}

// answerColumn returns the nullable column value for question i.
func (s *Submission) answerColumn(i int) *string {
	a, ok := s.Answers[i]
	if !ok || a == "" {
		return nil
	}
	return &a
}

// SubmissionRepo persists quiz submissions.
type SubmissionRepo interface {
	// Insert stores a new submission. The store assigns CreatedAt; an empty
	// ID is replaced with a fresh UUID. The stored record is returned.
	Insert(ctx context.Context, sub *Submission) (*Submission, error)

	// Get returns the submission with the given ID, or nil if none exists.
	Get(ctx context.Context, id string) (*Submission, error)

	// List returns submissions, newest first.
	List(ctx context.Context, opts ListOpts) ([]*Submission, error)

	// SetAnalysis writes the analysis only when none is stored yet.
	// applied is false when another writer got there first.
	SetAnalysis(ctx context.Context, id, analysis string) (applied bool, err error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage per request purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage per model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMEventRecord, error)

	// LLMUsageByPurpose aggregates usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)

	// LLMUsageByModel aggregates usage per model.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// Backend is a storage implementation exposing all repositories.
type Backend interface {
	SubmissionRepo() SubmissionRepo
	EventRepo() EventRepo
	Close() error
}
