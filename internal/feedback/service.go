package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/enfinlibre/formation/internal/events"
	"github.com/enfinlibre/formation/internal/llm"
	"github.com/enfinlibre/formation/internal/metrics"
	"github.com/enfinlibre/formation/internal/quizerr"
	"github.com/enfinlibre/formation/internal/store"
)

var errEmptyAnalysis = errors.New("generator returned no content")

// Result is the outcome of an analysis request.
type Result struct {
	SubmissionID string
	Analysis     string
	Breakdown    Breakdown
	// Cached is true when the analysis was already stored and no new
	// generation was kept.
	Cached bool
}

// Service produces and persists quiz analyses. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	repo      store.SubmissionRepo
	provider  llm.Provider
	cfg       Config
	publisher events.Publisher
	log       *zap.Logger
}

// NewService creates an analysis service. A nil publisher drops events and
// a nil logger discards logs.
func NewService(repo store.SubmissionRepo, provider llm.Provider, cfg Config, publisher events.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		provider:  provider,
		cfg:       cfg,
		publisher: publisher,
		log:       logger.Named("feedback"),
	}
}

// Analyze returns the analysis of a stored submission, generating and
// persisting it when none exists.
//
// When generation succeeds but the store update fails, the fresh result is
// returned together with a *quizerr.ErrStore: the caller has an analysis
// that is not durable.
func (s *Service) Analyze(ctx context.Context, submissionID string) (*Result, error) {
	sub, err := s.repo.Get(ctx, submissionID)
	if err != nil {
		return nil, &quizerr.ErrStore{Op: "get submission", Err: err}
	}
	if sub == nil {
		return nil, &quizerr.ErrNotFound{ID: submissionID}
	}

	if sub.HasAnalysis() {
		metrics.Analyses.WithLabelValues(metrics.SourceCached).Inc()
		return cachedResult(sub), nil
	}

	text, err := s.generate(llm.WithPurpose(ctx, PurposeAnalysis), sub.Answers)
	if err != nil {
		metrics.Analyses.WithLabelValues(metrics.SourceFailed).Inc()
		s.log.Warn("analysis generation failed", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}
	fresh := &Result{SubmissionID: submissionID, Analysis: text, Breakdown: ParseFeedback(text)}

	applied, err := s.repo.SetAnalysis(ctx, submissionID, text)
	if err != nil {
		metrics.Analyses.WithLabelValues(metrics.SourceGenerated).Inc()
		s.log.Error("failed to persist analysis", zap.String("submission_id", submissionID), zap.Error(err))
		return fresh, &quizerr.ErrStore{Op: "update analysis", Err: err}
	}

	if !applied {
		// Another writer stored an analysis first; return theirs.
		metrics.PersistConflicts.Inc()
		winner, err := s.repo.Get(ctx, submissionID)
		if err != nil {
			return fresh, &quizerr.ErrStore{Op: "reload analysis", Err: err}
		}
		if winner == nil {
			return nil, &quizerr.ErrNotFound{ID: submissionID}
		}
		if winner.HasAnalysis() {
			metrics.Analyses.WithLabelValues(metrics.SourceCached).Inc()
			return cachedResult(winner), nil
		}
		return fresh, &quizerr.ErrStore{Op: "update analysis", Err: errors.New("analysis was not stored")}
	}

	metrics.Analyses.WithLabelValues(metrics.SourceGenerated).Inc()
	s.log.Info("analysis stored", zap.String("submission_id", submissionID), zap.Int("length", len(text)))

	evt := &events.QuizAnalyzedEvent{
		SubmissionID: submissionID,
		Provider:     s.provider.Name(),
		Model:        s.provider.ModelID(),
		Scores:       fresh.Breakdown.Scores(),
		Timestamp:    time.Now().Unix(),
	}
	if err := s.publisher.PublishQuizAnalyzed(ctx, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("event", events.EventTypeQuizAnalyzed), zap.Error(err))
	}

	return fresh, nil
}

// AnalyzeAnswers generates an analysis for answers that are not stored.
// Nothing is persisted.
func (s *Service) AnalyzeAnswers(ctx context.Context, answers store.Answers) (*Result, error) {
	text, err := s.generate(llm.WithPurpose(ctx, PurposePreview), answers)
	if err != nil {
		metrics.Analyses.WithLabelValues(metrics.SourceFailed).Inc()
		return nil, err
	}
	metrics.Analyses.WithLabelValues(metrics.SourcePreview).Inc()
	return &Result{Analysis: text, Breakdown: ParseFeedback(text)}, nil
}

type generation struct {
	resp *llm.Response
	err  error
}

// generate calls the provider within the configured timeout and returns
// the analysis in canonical text form. All failures are *quizerr.ErrGeneration.
func (s *Service) generate(ctx context.Context, answers store.Answers) (string, error) {
	prompt, err := BuildPrompt(answers)
	if err != nil {
		return "", &quizerr.ErrGeneration{Err: fmt.Errorf("build prompt: %w", err)}
	}

	req := llm.Request{
		System: SystemInstruction(s.cfg.StructuredOutput),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
	if s.cfg.StructuredOutput {
		req.Schema = FeedbackSchema
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan generation, 1)
	go func() {
		resp, err := s.provider.Generate(ctx, req)
		done <- generation{resp: resp, err: err}
	}()

	var g generation
	select {
	case <-ctx.Done():
		g.err = fmt.Errorf("no response within %s: %w", s.cfg.Timeout, ctx.Err())
	case g = <-done:
	}

	status := "success"
	if g.err != nil {
		status = "failure"
	}
	metrics.GenerationDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if g.err != nil {
		return "", &quizerr.ErrGeneration{Err: g.err}
	}

	text, err := s.toText(g.resp)
	if err != nil {
		return "", &quizerr.ErrGeneration{Err: err}
	}
	return text, nil
}

func (s *Service) toText(resp *llm.Response) (string, error) {
	if resp == nil {
		return "", errEmptyAnalysis
	}
	var text string
	if s.cfg.StructuredOutput {
		structured, err := DecodeStructured(resp.Content)
		if err != nil {
			return "", err
		}
		text = RenderText(structured)
	} else {
		text = resp.Text()
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptyAnalysis
	}
	return text, nil
}

func cachedResult(sub *store.Submission) *Result {
	return &Result{
		SubmissionID: sub.ID,
		Analysis:     *sub.Analysis,
		Breakdown:    ParseFeedback(*sub.Analysis),
		Cached:       true,
	}
}
