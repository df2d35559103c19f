package llm

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/enfinlibre/formation/internal/metrics"
	"github.com/enfinlibre/formation/internal/store"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`Question 1 : 7/10`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	require.NoError(t, err)
	assert.Equal(t, "Question 1 : 7/10", resp1.Text())
	assert.Equal(t, 10, resp1.Usage.InputTokens)
	assert.Equal(t, "end", resp1.StopReason)

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(resp2.Content))
}

func TestResponse_Text(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain text", "Question 1\nScore : 7/10", "Question 1\nScore : 7/10"},
		{"string literal", `"  Question 1 : 7/10 "`, "Question 1 : 7/10"},
		{"object", `{"1":{"score":7}}`, `{"1":{"score":7}}`},
		{"unterminated quote", `"Question 1`, `"Question 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Content: json.RawMessage(tt.content)}
			assert.Equal(t, tt.want, resp.Text())
		})
	}
	assert.False(t, json.Valid((&Response{Content: json.RawMessage("Question 1")}).Content),
		"text-mode content is not JSON")
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	require.ErrorAs(t, err, &unavail)
}

func TestMockProvider_Fallback(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage("first")}).
		WithFallback(MockResponse{Content: json.RawMessage("again")})

	for _, want := range []string{"first", "again", "again"} {
		resp, err := mock.Generate(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Text())
	}
	assert.Equal(t, 3, mock.CallCount())
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`ok`)})

	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
	_, _ = mock.Generate(context.Background(), req)

	require.Equal(t, 1, mock.CallCount())
	assert.Equal(t, "sys", mock.Calls[0].System)
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{RetryAfter: 0}})

	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	require.ErrorAs(t, err, &rl)
}

func TestMockProvider_Identity(t *testing.T) {
	mock := NewMockProvider()
	assert.Equal(t, "mock", mock.ModelID())
	assert.Equal(t, ProviderMock, mock.Name())
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"raw text", "  Question 1 : 7/10\n", "Question 1 : 7/10"},
		{"json string literal", `"Question 1 :\n7/10"`, "Question 1 :\n7/10"},
		{"json object kept", `{"1":{}}`, `{"1":{}}`},
		{"unterminated quote kept", `"Bonjour`, `"Bonjour`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{Content: json.RawMessage(tt.content)}
			assert.Equal(t, tt.want, r.Text())
		})
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", PurposeFrom(ctx))

	ctx = WithPurpose(ctx, "quiz-feedback")
	assert.Equal(t, "quiz-feedback", PurposeFrom(ctx))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "sk-test"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"openai with key", Config{Provider: ProviderOpenAI, OpenAI: OpenAIConfig{APIKey: "sk-test"}}, false},
		{"openrouter without key", Config{Provider: ProviderOpenRouter}, true},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"no provider", Config{}, true},
		{"unknown provider", Config{Provider: "unknown"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DiscoverConfig(t *testing.T) {
	for _, env := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(env, "")
	}

	_, ok := DefaultConfig().DiscoverConfig()
	assert.False(t, ok)

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENROUTER_API_KEY", "sk-or")
	cfg, ok := DefaultConfig().DiscoverConfig()
	require.True(t, ok)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "sk-ant", cfg.Anthropic.APIKey)

	explicit := DefaultConfig()
	explicit.Provider = ProviderOpenRouter
	cfg, ok = explicit.DiscoverConfig()
	require.True(t, ok)
	assert.Equal(t, ProviderOpenRouter, cfg.Provider)
	assert.Equal(t, "sk-or", cfg.OpenRouter.APIKey)

	explicit.OpenRouter.APIKey = "configured"
	cfg, _ = explicit.DiscoverConfig()
	assert.Equal(t, "configured", cfg.OpenRouter.APIKey)
}

func TestNewProvider_Mock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	cfg.Mock.Response = "Question 1 : 5/10"

	p, err := NewProvider(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, p.Name())

	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "Question 1 : 5/10", resp.Text())
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "nope"}, nil, nil)
	require.Error(t, err)
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "llm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage("Question 1 : 8/10"), Usage: Usage{InputTokens: 12, OutputTokens: 4}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := WithLogging(mock, s.EventRepo(), zap.NewNop())

	failures := metrics.LLMRequests.WithLabelValues(ProviderMock, "quiz-feedback", "failure")
	inputTokens := metrics.LLMTokens.WithLabelValues(ProviderMock, "input")
	failuresBefore, inputBefore := testutil.ToFloat64(failures), testutil.ToFloat64(inputTokens)

	ctx := WithPurpose(context.Background(), "quiz-feedback")
	_, err = p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "prompt"}}})
	require.NoError(t, err)
	_, err = p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "prompt"}}})
	require.Error(t, err)

	events, err := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 2)

	failed, ok := events[0], events[1]
	assert.False(t, failed.Success)
	assert.Contains(t, failed.ErrorMessage, "down")

	assert.True(t, ok.Success)
	assert.Equal(t, ProviderMock, ok.Provider)
	assert.Equal(t, "quiz-feedback", ok.Purpose)
	assert.Equal(t, 12, ok.InputTokens)
	assert.Equal(t, "Question 1 : 8/10", ok.ResponseBody)
	assert.Contains(t, ok.RequestBody, "[system]\nsys")
	assert.Contains(t, ok.RequestBody, "[user]\nprompt")

	assert.Equal(t, 1.0, testutil.ToFloat64(failures)-failuresBefore)
	assert.Equal(t, 12.0, testutil.ToFloat64(inputTokens)-inputBefore)
}

func TestMockProvider_Delay(t *testing.T) {
	mock := NewMockProvider().WithFallback(MockResponse{
		Content: json.RawMessage(analysisText),
		Delay:   time.Hour,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mock.Generate(ctx, Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

func TestNewProvider_MockDelayFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	cfg.Mock.Response = analysisText
	cfg.Mock.Delay = 5 * time.Millisecond

	p, err := NewProvider(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	assert.Equal(t, analysisText, resp.Text())
}

func TestLookupCost(t *testing.T) {
	require.NotNil(t, LookupCost("gpt-4o-mini"))
	require.NotNil(t, LookupCost("openai/gpt-4o-mini"))
	assert.Nil(t, LookupCost("mock"))

	total, unknown := TotalCost([]store.ModelUsage{
		{Model: "gpt-4o-mini", InputTokens: 1_000_000, OutputTokens: 1_000_000},
		{Model: "mock", InputTokens: 10},
	})
	assert.InDelta(t, 0.75, total, 1e-9)
	assert.Equal(t, 1, unknown)
}
