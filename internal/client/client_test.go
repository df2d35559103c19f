package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enfinlibre/formation/internal/api"
	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/llm"
	"github.com/enfinlibre/formation/internal/store"
	"github.com/enfinlibre/formation/internal/submission"
)

const mockAnalysis = "Question 1\nScore : 9/10\nCommentaire : Excellent.\n- Garder cette structure"

func newTestServer(t *testing.T) (*Client, *llm.MockProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mock := llm.NewMockProvider().WithFallback(llm.MockResponse{Content: json.RawMessage(mockAnalysis)})
	analyzer := feedback.NewService(st.SubmissionRepo(), mock, feedback.DefaultConfig(), nil, nil)
	router := api.NewRouter(api.Deps{
		Submitter:   submission.NewService(st.SubmissionRepo(), analyzer, nil, nil),
		Analyzer:    analyzer,
		Submissions: st.SubmissionRepo(),
	}, api.Options{Version: "v1.4.2"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second), mock
}

func TestClient_SubmitAndRead(t *testing.T) {
	c, mock := newTestServer(t)
	ctx := t.Context()

	res, err := c.Submit(ctx, api.SubmitQuizRequest{
		UserInfo:         api.UserInfoDTO{Prenom: "Léa", Nom: "Bernard", Email: "lea@example.org"},
		Answers:          ToAnswersDTO(store.Answers{1: "a", 2: "b"}),
		CompletedModules: 5,
		TotalModules:     5,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Data.Analysis)
	assert.Equal(t, mockAnalysis, *res.Data.Analysis)
	assert.Equal(t, 9, res.Breakdown[1].Score.Value)
	assert.True(t, res.Breakdown[1].Score.Found)
	assert.False(t, res.Breakdown[2].Score.Found)

	list, err := c.ListSubmissions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Data.ID, list[0].ID)

	one, err := c.GetSubmission(ctx, res.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "Léa", one.Data.UserFirstName)

	again, err := c.Analyze(ctx, res.Data.ID)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 1, mock.CallCount())
}

func TestClient_Errors(t *testing.T) {
	c, _ := newTestServer(t)
	ctx := t.Context()

	_, err := c.GetSubmission(ctx, "unknown")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())

	_, err = c.Analyze(ctx, "unknown")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Contains(t, apiErr.Message, "not found")
	assert.NotEmpty(t, apiErr.Details)

	_, err = c.Submit(ctx, api.SubmitQuizRequest{UserInfo: api.UserInfoDTO{Prenom: "x"}})
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "missing user information")
}

func TestClient_AnalyzeAnswers(t *testing.T) {
	c, mock := newTestServer(t)

	res, err := c.AnalyzeAnswers(t.Context(), store.Answers{3: "c"})
	require.NoError(t, err)
	assert.Equal(t, mockAnalysis, res.Analysis)
	require.Equal(t, 1, mock.CallCount())
	assert.Contains(t, mock.Calls[0].Messages[0].Content, feedback.NotAnswered)
}

func TestClient_Health(t *testing.T) {
	c, _ := newTestServer(t)

	h, err := c.Health(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.NoError(t, CheckCompatible("v1.0.0", h.Version))
}

func TestCheckCompatible(t *testing.T) {
	tests := []struct {
		client, server string
		ok             bool
	}{
		{"v1.2.3", "v1.9.0", true},
		{"1.2.3", "v1.0.0", true},
		{"v1.2.3", "v2.0.0", false},
		{"(devel)", "v2.0.0", true},
		{"v1.0.0", "", true},
	}
	for _, tt := range tests {
		err := CheckCompatible(tt.client, tt.server)
		if tt.ok {
			assert.NoError(t, err, "%s vs %s", tt.client, tt.server)
		} else {
			assert.True(t, errors.Is(err, ErrIncompatible), "%s vs %s", tt.client, tt.server)
		}
	}
}

func TestClient_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Health(t.Context())
	assert.Error(t, err)
}
