package feedback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/enfinlibre/formation/internal/llm"
	"github.com/enfinlibre/formation/internal/store"
)

var questionFeedbackSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"score": map[string]any{
			"type":        "integer",
			"minimum":     0,
			"maximum":     10,
			"description": "Note de la réponse sur 10",
		},
		"feedback": map[string]any{
			"type":        "string",
			"description": "Une phrase qui résume l'analyse de la réponse",
		},
		"suggestions": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Suggestions d'amélioration concrètes",
		},
	},
	"required":             []any{"score", "feedback", "suggestions"},
	"additionalProperties": false,
}

// FeedbackSchema defines the JSON schema for structured-output analysis.
var FeedbackSchema = &llm.Schema{
	Name:        "quiz-feedback",
	Description: "Per-question feedback on the three quiz answers",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"1": questionFeedbackSchema,
			"2": questionFeedbackSchema,
			"3": questionFeedbackSchema,
		},
		"required":             []any{"1", "2", "3"},
		"additionalProperties": false,
	},
}

// StructuredEntry is one question of a structured analysis, in the shape
// the original web client produced.
type StructuredEntry struct {
	Score       int      `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// Structured is a structured analysis keyed by question index.
type Structured map[int]StructuredEntry

// DecodeStructured parses a structured analysis object. Keys must be
// question indices 1..3.
func DecodeStructured(raw []byte) (Structured, error) {
	var byKey map[string]StructuredEntry
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("decode structured analysis: %w", err)
	}
	if len(byKey) == 0 {
		return nil, fmt.Errorf("decode structured analysis: no questions")
	}

	out := make(Structured, len(byKey))
	for k, v := range byKey {
		i, err := strconv.Atoi(k)
		if err != nil || i < 1 || i > store.QuestionCount {
			return nil, fmt.Errorf("decode structured analysis: unexpected key %q", k)
		}
		out[i] = v
	}
	return out, nil
}

// RenderText writes a structured analysis in the canonical text form that
// ParseFeedback reads back.
func RenderText(s Structured) string {
	var b strings.Builder
	for i := 1; i <= store.QuestionCount; i++ {
		e, ok := s[i]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Question %d\n", i)
		fmt.Fprintf(&b, "Score : %d/10\n", e.Score)
		if fb := oneLine(e.Feedback); fb != "" {
			fmt.Fprintf(&b, "Commentaire : %s\n", fb)
		}
		if len(e.Suggestions) > 0 {
			b.WriteString("Suggestions :\n")
			for _, sug := range e.Suggestions {
				if sug = oneLine(sug); sug != "" {
					fmt.Fprintf(&b, "- %s\n", sug)
				}
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
