// Package submission validates and stores quiz submissions, then chains
// the analysis of each new record.
package submission

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/enfinlibre/formation/internal/events"
	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/metrics"
	"github.com/enfinlibre/formation/internal/quizerr"
	"github.com/enfinlibre/formation/internal/store"
)

// UserInfo identifies the learner. Field names follow the French form
// labels of the client.
type UserInfo struct {
	Prenom string
	Nom    string
	Email  string
}

// Request is one quiz submission.
type Request struct {
	UserInfo         UserInfo
	Answers          store.Answers
	CompletedModules int
	TotalModules     int
	// Analysis is an optional precomputed analysis stored with the record.
	Analysis *string
}

// Result is the stored record, merged with its analysis when one could be
// produced.
type Result struct {
	Submission *store.Submission
	Breakdown  feedback.Breakdown
	// AnalysisErr is set when the record was stored but its analysis
	// failed or could not be persisted. The submission still succeeded.
	AnalysisErr error
}

// Analyzer produces the analysis of a stored submission.
type Analyzer interface {
	Analyze(ctx context.Context, submissionID string) (*feedback.Result, error)
}

// Service handles quiz submissions.
type Service struct {
	repo      store.SubmissionRepo
	analyzer  Analyzer
	publisher events.Publisher
	log       *zap.Logger
}

// NewService creates a submission service. A nil analyzer stores records
// without analyzing them.
func NewService(repo store.SubmissionRepo, analyzer Analyzer, publisher events.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		analyzer:  analyzer,
		publisher: publisher,
		log:       logger.Named("submission"),
	}
}

// Validate checks a request without side effects.
func Validate(req Request) error {
	var missing []string
	if strings.TrimSpace(req.UserInfo.Prenom) == "" {
		missing = append(missing, "prenom")
	}
	if strings.TrimSpace(req.UserInfo.Nom) == "" {
		missing = append(missing, "nom")
	}
	if strings.TrimSpace(req.UserInfo.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return &quizerr.ErrValidation{Fields: missing}
	}
	if req.CompletedModules < 0 || req.TotalModules < 0 {
		return &quizerr.ErrValidation{Reason: "module counts must not be negative"}
	}
	return nil
}

// Submit stores one submission and analyzes it.
//
// Validation and insert failures are returned as errors and leave nothing
// behind. Analysis failures are reported in Result.AnalysisErr.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req); err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	sub := &store.Submission{
		FirstName:        strings.TrimSpace(req.UserInfo.Prenom),
		LastName:         strings.TrimSpace(req.UserInfo.Nom),
		Email:            strings.TrimSpace(req.UserInfo.Email),
		Answers:          req.Answers,
		CompletedModules: req.CompletedModules,
		TotalModules:     req.TotalModules,
		Analysis:         req.Analysis,
	}

	stored, err := s.repo.Insert(ctx, sub)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeStoreError).Inc()
		s.log.Error("failed to insert submission", zap.Error(err))
		return nil, &quizerr.ErrStore{Op: "insert submission", Err: err}
	}
	metrics.Submissions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.Info("submission stored",
		zap.String("submission_id", stored.ID),
		zap.Int("answered", len(stored.Answers)),
		zap.Int("completed_modules", stored.CompletedModules),
		zap.Int("total_modules", stored.TotalModules),
	)

	res := &Result{Submission: stored}
	if s.analyzer != nil {
		s.attachAnalysis(ctx, res)
	}

	evt := &events.QuizSubmittedEvent{
		SubmissionID:      stored.ID,
		Email:             stored.Email,
		AnsweredQuestions: len(stored.Answers),
		CompletedModules:  stored.CompletedModules,
		TotalModules:      stored.TotalModules,
		HasAnalysis:       stored.HasAnalysis(),
		Timestamp:         time.Now().Unix(),
	}
	if err := s.publisher.PublishQuizSubmitted(ctx, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("event", events.EventTypeQuizSubmitted), zap.Error(err))
	}

	return res, nil
}

func (s *Service) attachAnalysis(ctx context.Context, res *Result) {
	id := res.Submission.ID
	analysis, err := s.analyzer.Analyze(ctx, id)
	if analysis != nil {
		text := analysis.Analysis
		res.Submission.Analysis = &text
		res.Breakdown = analysis.Breakdown
	}
	if err != nil {
		s.log.Warn("analysis of new submission failed", zap.String("submission_id", id), zap.Error(err))
		res.AnalysisErr = &quizerr.ErrAnalysisTrigger{SubmissionID: id, Err: err}
	}
}
