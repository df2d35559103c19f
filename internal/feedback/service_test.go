package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enfinlibre/formation/internal/events"
	"github.com/enfinlibre/formation/internal/llm"
	"github.com/enfinlibre/formation/internal/quizerr"
	"github.com/enfinlibre/formation/internal/store"
)

// memRepo is an in-memory SubmissionRepo with failure hooks.
type memRepo struct {
	mu        sync.Mutex
	subs      map[string]*store.Submission
	getErr    error
	setErr    error
	beforeSet func(id string)
	gets      int
}

func newMemRepo(subs ...*store.Submission) *memRepo {
	r := &memRepo{subs: make(map[string]*store.Submission)}
	for _, s := range subs {
		r.subs[s.ID] = s
	}
	return r
}

func (r *memRepo) Insert(_ context.Context, sub *store.Submission) (*store.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := *sub
	r.subs[rec.ID] = &rec
	return &rec, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*store.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) List(context.Context, store.ListOpts) ([]*store.Submission, error) {
	return nil, nil
}

func (r *memRepo) SetAnalysis(_ context.Context, id, analysis string) (bool, error) {
	if r.beforeSet != nil {
		r.beforeSet(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return false, r.setErr
	}
	s, ok := r.subs[id]
	if !ok || s.HasAnalysis() {
		return false, nil
	}
	s.Analysis = &analysis
	return true, nil
}

func (r *memRepo) stored(id string) *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs[id].Analysis
}

const mockAnalysis = "Question 1\nScore : 7/10\nCommentaire : Clair.\n- Ajouter un exemple\n\nQuestion 2\nScore : 5/10\nCommentaire : Moyen.\n\nQuestion 3\nScore : 0/10\nCommentaire : Non répondu."

func textResponse(s string) llm.MockResponse {
	return llm.MockResponse{Content: json.RawMessage(s)}
}

func testSubmission(id string) *store.Submission {
	return &store.Submission{
		ID:        id,
		FirstName: "Camille",
		LastName:  "Martin",
		Email:     "camille@example.org",
		Answers:   store.Answers{1: "Réécris ce paragraphe", 2: "Rédige une invitation"},
	}
}

func TestAnalyze_GeneratesAndPersists(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	mock := llm.NewMockProvider(textResponse(mockAnalysis))
	rec := &events.Recorder{}
	svc := NewService(repo, mock, DefaultConfig(), rec, nil)

	res, err := svc.Analyze(t.Context(), "s1")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, "s1", res.SubmissionID)
	assert.Equal(t, mockAnalysis, res.Analysis)
	assert.Equal(t, 7, res.Breakdown[1].Score.Value)

	stored := repo.stored("s1")
	require.NotNil(t, stored)
	assert.Equal(t, mockAnalysis, *stored)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Nil(t, req.Schema)
	assert.Equal(t, SystemInstruction(false), req.System)
	assert.Contains(t, req.Messages[0].Content, "Réécris ce paragraphe")
	assert.Contains(t, req.Messages[0].Content, NotAnswered)

	_, analyzed := rec.Counts()
	require.Equal(t, 1, analyzed)
	assert.Equal(t, map[int]int{1: 7, 2: 5, 3: 0}, rec.Analyzed[0].Scores)
	assert.Equal(t, "mock", rec.Analyzed[0].Provider)
}

func TestAnalyze_Idempotent(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	mock := llm.NewMockProvider(textResponse(mockAnalysis), textResponse("autre chose"))
	svc := NewService(repo, mock, DefaultConfig(), nil, nil)

	first, err := svc.Analyze(t.Context(), "s1")
	require.NoError(t, err)
	second, err := svc.Analyze(t.Context(), "s1")
	require.NoError(t, err)

	assert.Equal(t, first.Analysis, second.Analysis)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, mock.CallCount(), "second call must not generate")
}

func TestAnalyze_CachedShortCircuit(t *testing.T) {
	sub := testSubmission("s1")
	existing := "Analyse existante"
	sub.Analysis = &existing
	mock := llm.NewMockProvider()
	svc := NewService(newMemRepo(sub), mock, DefaultConfig(), nil, nil)

	res, err := svc.Analyze(t.Context(), "s1")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, existing, res.Analysis)
	assert.Zero(t, mock.CallCount())
}

func TestAnalyze_BlankStoredAnalysisIsRegenerated(t *testing.T) {
	sub := testSubmission("s1")
	blank := " \n "
	sub.Analysis = &blank
	repo := newMemRepo(sub)
	mock := llm.NewMockProvider(textResponse(mockAnalysis))
	svc := NewService(repo, mock, DefaultConfig(), nil, nil)

	res, err := svc.Analyze(t.Context(), "s1")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, mock.CallCount())
	require.NotNil(t, repo.stored("s1"))
	assert.Equal(t, mockAnalysis, *repo.stored("s1"))
}

func TestAnalyze_NotFound(t *testing.T) {
	mock := llm.NewMockProvider(textResponse(mockAnalysis))
	svc := NewService(newMemRepo(), mock, DefaultConfig(), nil, nil)

	_, err := svc.Analyze(t.Context(), "missing")
	var nf *quizerr.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
	assert.Zero(t, mock.CallCount())
}

func TestAnalyze_GetFailure(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	repo.getErr = errors.New("disk gone")
	svc := NewService(repo, llm.NewMockProvider(), DefaultConfig(), nil, nil)

	_, err := svc.Analyze(t.Context(), "s1")
	var se *quizerr.ErrStore
	require.ErrorAs(t, err, &se)
}

func TestAnalyze_GenerationFailureStoresNothing(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})
	svc := NewService(repo, mock, DefaultConfig(), nil, nil)

	_, err := svc.Analyze(t.Context(), "s1")
	var ge *quizerr.ErrGeneration
	require.ErrorAs(t, err, &ge)
	assert.Nil(t, repo.stored("s1"))
}

func TestAnalyze_EmptyContentIsGenerationError(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	mock := llm.NewMockProvider(textResponse(`"   "`))
	svc := NewService(repo, mock, DefaultConfig(), nil, nil)

	_, err := svc.Analyze(t.Context(), "s1")
	var ge *quizerr.ErrGeneration
	require.ErrorAs(t, err, &ge)
	assert.Nil(t, repo.stored("s1"))
}

// blockingProvider ignores its context and never answers until released.
type blockingProvider struct {
	release chan struct{}
}

func (p *blockingProvider) Generate(context.Context, llm.Request) (*llm.Response, error) {
	<-p.release
	return &llm.Response{Content: json.RawMessage(mockAnalysis)}, nil
}

func (p *blockingProvider) Name() string    { return "blocking" }
func (p *blockingProvider) ModelID() string { return "blocking" }

func TestAnalyze_Timeout(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	p := &blockingProvider{release: make(chan struct{})}
	defer close(p.release)

	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	svc := NewService(repo, p, cfg, nil, nil)

	start := time.Now()
	_, err := svc.Analyze(t.Context(), "s1")
	elapsed := time.Since(start)

	var ge *quizerr.ErrGeneration
	require.ErrorAs(t, err, &ge)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Nil(t, repo.stored("s1"))
}

func TestAnalyze_UpdateFailureReturnsAnalysis(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	repo.setErr = errors.New("database is locked")
	svc := NewService(repo, llm.NewMockProvider(textResponse(mockAnalysis)), DefaultConfig(), nil, nil)

	res, err := svc.Analyze(t.Context(), "s1")
	var se *quizerr.ErrStore
	require.ErrorAs(t, err, &se)
	require.NotNil(t, res)
	assert.Equal(t, mockAnalysis, res.Analysis)
	assert.False(t, res.Cached)
}

func TestAnalyze_LosingWriterReturnsWinner(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	winner := "Analyse du premier appel"
	repo.beforeSet = func(id string) {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		if !repo.subs[id].HasAnalysis() {
			repo.subs[id].Analysis = &winner
		}
	}
	svc := NewService(repo, llm.NewMockProvider(textResponse(mockAnalysis)), DefaultConfig(), nil, nil)

	res, err := svc.Analyze(t.Context(), "s1")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, winner, res.Analysis)
	assert.Equal(t, winner, *repo.stored("s1"))
}

func TestAnalyze_ConcurrentCallsAgree(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	mock := llm.NewMockProvider().WithFallback(textResponse(mockAnalysis))
	svc := NewService(repo, mock, DefaultConfig(), nil, nil)

	const n = 6
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Analyze(context.Background(), "s1")
			if err == nil {
				results[i] = res.Analysis
			}
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, mockAnalysis, r)
	}
	assert.Equal(t, mockAnalysis, *repo.stored("s1"))
}

func TestAnalyze_StructuredOutput(t *testing.T) {
	repo := newMemRepo(testSubmission("s1"))
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"1": {"score": 8, "feedback": "Bon prompt.", "suggestions": ["Préciser le ton"]},
		"2": {"score": 6, "feedback": "Correct.", "suggestions": []},
		"3": {"score": 0, "feedback": "Non répondu.", "suggestions": ["Répondre à la question"]}
	}`)})
	cfg := DefaultConfig()
	cfg.StructuredOutput = true
	svc := NewService(repo, mock, cfg, nil, nil)

	res, err := svc.Analyze(t.Context(), "s1")
	require.NoError(t, err)

	require.Equal(t, 1, mock.CallCount())
	assert.Equal(t, FeedbackSchema, mock.Calls[0].Schema)
	assert.Equal(t, SystemInstruction(true), mock.Calls[0].System)

	assert.Contains(t, res.Analysis, "Score : 8/10")
	assert.Equal(t, map[int]int{1: 8, 2: 6, 3: 0}, res.Breakdown.Scores())
	assert.Equal(t, []string{"Préciser le ton"}, res.Breakdown[1].Suggestions.Value)
	assert.Equal(t, res.Analysis, *repo.stored("s1"))
}

func TestAnalyzeAnswers_DoesNotPersist(t *testing.T) {
	repo := newMemRepo()
	mock := llm.NewMockProvider(textResponse(mockAnalysis))
	svc := NewService(repo, mock, DefaultConfig(), nil, nil)

	res, err := svc.AnalyzeAnswers(t.Context(), store.Answers{1: "x"})
	require.NoError(t, err)
	assert.Equal(t, mockAnalysis, res.Analysis)
	assert.Empty(t, res.SubmissionID)
	assert.Zero(t, repo.gets)
}
