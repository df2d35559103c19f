package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestGeminiProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-flash",
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return p
}

func geminiAnswer(t *testing.T, text, finish string, seen *map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
				"finishReason": finish,
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     12,
				"candidatesTokenCount": 8,
				"totalTokenCount":      20,
			},
		})
	}
}

func TestGeminiProvider_TextAnalysis(t *testing.T) {
	var body map[string]any
	p := newTestGeminiProvider(t, geminiAnswer(t, analysisText, "STOP", &body))

	resp, err := p.Generate(context.Background(), Request{
		System:    "Tu es un formateur en prompt engineering.",
		Messages:  []Message{{Role: RoleUser, Content: "Analyse les réponses."}},
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.Equal(t, analysisText, resp.Text())
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 8, TotalTokens: 20}, resp.Usage)
	assert.Equal(t, StopEnd, resp.StopReason)
	assert.Contains(t, body, "systemInstruction")
}

func TestGeminiProvider_TruncatedStructuredOutput(t *testing.T) {
	p := newTestGeminiProvider(t, geminiAnswer(t, `{"1":{"score":`, "MAX_TOKENS", nil))

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "test"}},
		Schema:   testFeedbackSchema(),
	})
	var maxTok *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &maxTok)
}

func TestGeminiProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusTooManyRequests, func(t *testing.T, err error) {
			var rl *ErrRateLimit
			assert.ErrorAs(t, err, &rl)
		}},
		{http.StatusServiceUnavailable, func(t *testing.T, err error) {
			var u *ErrProviderUnavailable
			assert.ErrorAs(t, err, &u)
		}},
		{http.StatusBadRequest, func(t *testing.T, err error) {
			var rej *ErrRejected
			assert.ErrorAs(t, err, &rej)
		}},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": tt.status, "message": http.StatusText(tt.status)},
				})
			})
			_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "test"}}})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.5-flash", "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, resolveModel(tt.input, geminiModels), tt.input)
	}
	assert.Equal(t, ProviderGemini, (&GeminiProvider{}).Name())
}

func TestBuildGeminiSchema(t *testing.T) {
	schema := buildGeminiSchema(testFeedbackSchema().Definition)

	require.Equal(t, genai.TypeObject, schema.Type)
	require.Len(t, schema.Properties, 3)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, schema.Required)

	entry := schema.Properties["1"]
	require.NotNil(t, entry)
	assert.Equal(t, genai.TypeInteger, entry.Properties["score"].Type)
	require.NotNil(t, entry.Properties["score"].Maximum)
	assert.Equal(t, 10.0, *entry.Properties["score"].Maximum)
	assert.Equal(t, genai.TypeArray, entry.Properties["suggestions"].Type)
	assert.Equal(t, genai.TypeString, entry.Properties["suggestions"].Items.Type)
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringList([]any{"a", 3, "b"}))
	assert.Equal(t, []string{"x"}, stringList([]string{"x"}))
	assert.Nil(t, stringList(nil))
}
