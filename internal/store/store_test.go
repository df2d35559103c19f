package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestSubmissionInsertAndGet(t *testing.T) {
	repo := openTestStore(t).SubmissionRepo()
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	saved, err := repo.Insert(ctx, &Submission{
		FirstName:        "Jean",
		LastName:         "Dupont",
		Email:            "jean@x.com",
		Answers:          Answers{1: "a", 3: "c", 7: "ignored", 2: "  \n"},
		CompletedModules: 4,
		TotalModules:     5,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated ID")
	}
	if saved.CreatedAt.Before(before) {
		t.Fatalf("created_at %v not set by store", saved.CreatedAt)
	}

	got, err := repo.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected submission, got nil")
	}
	if got.FirstName != "Jean" || got.LastName != "Dupont" || got.Email != "jean@x.com" {
		t.Errorf("identity mismatch: %+v", got)
	}
	if len(got.Answers) != 2 || got.Answers[1] != "a" || got.Answers[3] != "c" {
		t.Errorf("answers = %v, want {1:a 3:c}", got.Answers)
	}
	if got.CompletedModules != 4 || got.TotalModules != 5 {
		t.Errorf("progress = %d/%d, want 4/5", got.CompletedModules, got.TotalModules)
	}
	if got.HasAnalysis() {
		t.Errorf("expected no analysis, got %q", *got.Analysis)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, saved.CreatedAt)
	}
}

func TestSubmissionGetMissing(t *testing.T) {
	repo := openTestStore(t).SubmissionRepo()

	got, err := repo.Get(context.Background(), "missing-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSubmissionListNewestFirst(t *testing.T) {
	repo := openTestStore(t).SubmissionRepo()
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		sub, err := repo.Insert(ctx, &Submission{FirstName: name, LastName: "x", Email: "x@y.z"})
		if err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
		ids = append(ids, sub.ID)
	}

	subs, err := repo.List(ctx, ListOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if subs[i].ID != want {
			t.Errorf("subs[%d] = %s, want %s", i, subs[i].ID, want)
		}
	}

	limited, err := repo.List(ctx, ListOpts{Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(limited))
	}
}

func TestSetAnalysisOnlyOnce(t *testing.T) {
	repo := openTestStore(t).SubmissionRepo()
	ctx := context.Background()

	sub, err := repo.Insert(ctx, &Submission{FirstName: "a", LastName: "b", Email: "c@d.e"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	applied, err := repo.SetAnalysis(ctx, sub.ID, "first")
	if err != nil {
		t.Fatalf("set analysis: %v", err)
	}
	if !applied {
		t.Fatal("expected first write to apply")
	}

	applied, err = repo.SetAnalysis(ctx, sub.ID, "second")
	if err != nil {
		t.Fatalf("set analysis again: %v", err)
	}
	if applied {
		t.Fatal("expected second write to be skipped")
	}

	got, _ := repo.Get(ctx, sub.ID)
	if got.Analysis == nil || *got.Analysis != "first" {
		t.Fatalf("analysis = %v, want first", got.Analysis)
	}
}

func TestSetAnalysisMissingSubmission(t *testing.T) {
	repo := openTestStore(t).SubmissionRepo()

	applied, err := repo.SetAnalysis(context.Background(), "missing-id", "text")
	if err != nil {
		t.Fatalf("set analysis: %v", err)
	}
	if applied {
		t.Fatal("expected no row to be updated")
	}
}

func TestSetAnalysisConcurrentWritersPersistOne(t *testing.T) {
	repo := openTestStore(t).SubmissionRepo()
	ctx := context.Background()

	sub, err := repo.Insert(ctx, &Submission{FirstName: "a", LastName: "b", Email: "c@d.e"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.SetAnalysis(ctx, sub.ID, "analysis")
			if err != nil {
				t.Errorf("set analysis: %v", err)
				return
			}
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("expected exactly one applied write, got %d", applied)
	}
}

func TestInsertKeepsPrecomputedAnalysis(t *testing.T) {
	repo := openTestStore(t).SubmissionRepo()
	ctx := context.Background()

	sub, err := repo.Insert(ctx, &Submission{
		FirstName: "a", LastName: "b", Email: "c@d.e",
		Analysis: strPtr("prior text"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, _ := repo.Get(ctx, sub.ID)
	if !got.HasAnalysis() || *got.Analysis != "prior text" {
		t.Fatalf("analysis = %v, want prior text", got.Analysis)
	}
}

func TestBlankAnalysisIsStoredAsNull(t *testing.T) {
	repo := openTestStore(t).SubmissionRepo()
	ctx := context.Background()

	sub, err := repo.Insert(ctx, &Submission{
		FirstName: "a", LastName: "b", Email: "c@d.e",
		Analysis: strPtr("  \n\t "),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, _ := repo.Get(ctx, sub.ID)
	if got.Analysis != nil {
		t.Fatalf("analysis = %q, want NULL", *got.Analysis)
	}
	ok, err := repo.SetAnalysis(ctx, sub.ID, "generated")
	if err != nil || !ok {
		t.Fatalf("set analysis: applied=%v err=%v", ok, err)
	}
}

func TestSetAnalysisOverwritesBlankRow(t *testing.T) {
	st := openTestStore(t)
	repo := st.SubmissionRepo()
	ctx := context.Background()

	sub, err := repo.Insert(ctx, &Submission{FirstName: "a", LastName: "b", Email: "c@d.e"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, "UPDATE quiz_submissions SET analysis = '   ' WHERE id = ?", sub.ID); err != nil {
		t.Fatalf("seed blank analysis: %v", err)
	}

	got, _ := repo.Get(ctx, sub.ID)
	if got.HasAnalysis() {
		t.Fatal("a blank analysis does not count as stored")
	}
	ok, err := repo.SetAnalysis(ctx, sub.ID, "generated")
	if err != nil || !ok {
		t.Fatalf("set analysis: applied=%v err=%v", ok, err)
	}
	got, _ = repo.Get(ctx, sub.ID)
	if *got.Analysis != "generated" {
		t.Fatalf("analysis = %q, want generated", *got.Analysis)
	}
}

func TestLLMEventsAppendQueryAndUsage(t *testing.T) {
	repo := openTestStore(t).EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "p", Model: "gpt-4o-mini", Purpose: "quiz-feedback", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true},
		{Provider: "p", Model: "gpt-4o-mini", Purpose: "quiz-feedback", InputTokens: 60, OutputTokens: 30, LatencyMs: 400, Success: true},
		{Provider: "p", Model: "gpt-4o-mini", Purpose: "quiz-feedback", LatencyMs: 30, Success: false, ErrorMessage: "boom"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Success || got[0].ErrorMessage != "boom" {
		t.Errorf("expected newest event first, got %+v", got[0])
	}

	one, err := repo.GetLLMEvent(ctx, got[1].ID)
	if err != nil || one == nil {
		t.Fatalf("get event: %v, %v", one, err)
	}
	if one.InputTokens != 60 {
		t.Errorf("input tokens = %d, want 60", one.InputTokens)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing event, got %v, %v", missing, err)
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 1 || byPurpose[0].Calls != 3 || byPurpose[0].InputTokens != 160 {
		t.Errorf("unexpected purpose usage: %+v", byPurpose)
	}
	if byPurpose[0].AvgLatencyMs != 210 {
		t.Errorf("avg latency = %d, want 210", byPurpose[0].AvgLatencyMs)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 1 || byModel[0].Calls != 2 || byModel[0].OutputTokens != 80 {
		t.Errorf("unexpected model usage: %+v", byModel)
	}
}
