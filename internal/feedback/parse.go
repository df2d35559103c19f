package feedback

import (
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/enfinlibre/formation/internal/store"
)

// Parsed is a value extracted from free text, tagged with whether it was
// actually present. Absent values hold the zero default.
type Parsed[T any] struct {
	Value T
	Found bool
}

func found[T any](v T) Parsed[T] { return Parsed[T]{Value: v, Found: true} }

// MarshalJSON encodes only the value.
func (p Parsed[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value)
}

// QuestionFeedback is the structured view of one question's analysis.
type QuestionFeedback struct {
	Score       Parsed[int]
	Feedback    Parsed[string]
	Suggestions Parsed[[]string]
}

// Missing lists the fields that were not found in the text.
func (q QuestionFeedback) Missing() []string {
	var out []string
	if !q.Score.Found {
		out = append(out, "score")
	}
	if !q.Feedback.Found {
		out = append(out, "feedback")
	}
	if !q.Suggestions.Found {
		out = append(out, "suggestions")
	}
	return out
}

func (q QuestionFeedback) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Score       Parsed[int]      `json:"score"`
		Feedback    Parsed[string]   `json:"feedback"`
		Suggestions Parsed[[]string] `json:"suggestions"`
		Missing     []string         `json:"missing,omitempty"`
	}{q.Score, q.Feedback, q.Suggestions, q.Missing()})
}

// UnmarshalJSON reads the form written by MarshalJSON. Fields listed in
// "missing" are marked as not found.
func (q *QuestionFeedback) UnmarshalJSON(data []byte) error {
	var wire struct {
		Score       int      `json:"score"`
		Feedback    string   `json:"feedback"`
		Suggestions []string `json:"suggestions"`
		Missing     []string `json:"missing"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Suggestions == nil {
		wire.Suggestions = []string{}
	}
	q.Score = Parsed[int]{Value: wire.Score, Found: !slices.Contains(wire.Missing, "score")}
	q.Feedback = Parsed[string]{Value: wire.Feedback, Found: !slices.Contains(wire.Missing, "feedback")}
	q.Suggestions = Parsed[[]string]{Value: wire.Suggestions, Found: !slices.Contains(wire.Missing, "suggestions")}
	return nil
}

// Breakdown maps question indices 1..3 to their feedback. ParseFeedback
// always fills every index.
type Breakdown map[int]QuestionFeedback

// Scores returns the scores that were found, by question.
func (b Breakdown) Scores() map[int]int {
	out := make(map[int]int, len(b))
	for i, q := range b {
		if q.Score.Found {
			out[i] = q.Score.Value
		}
	}
	return out
}

var (
	headerRe = regexp.MustCompile(`(?i)^question\s*(\d+)\b`)
	scoreRe  = regexp.MustCompile(`(?:^|[^\d.,])(\d+)\s*/\s*10\b`)
	labelRe  = regexp.MustCompile(`(?i)^(feedback|commentaire|analyse)\s*:\s*`)
	// Lines that only announce a list or a score.
	skipRe = regexp.MustCompile(`(?i)^(score|note|suggestions?|pistes?)\b`)
)

type section struct {
	header string
	lines  []string
}

// ParseFeedback derives the per-question breakdown from analysis text.
// It never fails: fields it cannot find are reported as not found.
//
// A section starts at a line reading "Question <n>" once markdown
// emphasis is stripped. Within a section the score is the first "<n>/10"
// token, suggestions are bullet lines, and the feedback is the first
// sentence of the first prose line.
func ParseFeedback(text string) Breakdown {
	sections := make(map[int]*section, store.QuestionCount)
	var current *section

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if n, rest, ok := parseHeader(line); ok {
			current = nil
			if n >= 1 && n <= store.QuestionCount && sections[n] == nil {
				current = &section{header: rest}
				sections[n] = current
			}
			continue
		}
		if current != nil && line != "" {
			current.lines = append(current.lines, line)
		}
	}

	out := make(Breakdown, store.QuestionCount)
	for i := 1; i <= store.QuestionCount; i++ {
		q := QuestionFeedback{Suggestions: Parsed[[]string]{Value: []string{}}}
		if s := sections[i]; s != nil {
			q = s.parse()
		}
		out[i] = q
	}
	return out
}

func parseHeader(line string) (int, string, bool) {
	plain := stripEmphasis(line)
	m := headerRe.FindStringSubmatchIndex(plain)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(plain[m[2]:m[3]])
	if err != nil {
		return 0, "", false
	}
	rest := strings.TrimSpace(plain[m[1]:])
	rest = strings.TrimSpace(strings.TrimLeft(rest, ":-–.)"))
	return n, rest, true
}

func (s *section) parse() QuestionFeedback {
	q := QuestionFeedback{Suggestions: Parsed[[]string]{Value: []string{}}}

	for _, line := range append([]string{s.header}, s.lines...) {
		if m := scoreRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v >= 0 && v <= 10 {
				q.Score = found(v)
			}
			break
		}
	}

	var suggestions []string
	for _, line := range s.lines {
		item, bullet := bulletItem(line)
		if bullet {
			line = item
		}
		plain := stripEmphasis(line)
		if skipRe.MatchString(plain) || isBareScore(plain) {
			continue
		}
		if labelRe.MatchString(plain) {
			bullet = false
			plain = strings.TrimSpace(labelRe.ReplaceAllString(plain, ""))
		}
		if plain == "" {
			continue
		}
		if bullet {
			suggestions = append(suggestions, plain)
			continue
		}
		if !q.Feedback.Found {
			q.Feedback = found(firstSentence(plain))
		}
	}
	if !q.Feedback.Found {
		if text := s.headerFeedback(); text != "" {
			q.Feedback = found(firstSentence(text))
		}
	}
	if len(suggestions) > 0 {
		q.Suggestions = found(suggestions)
	}
	return q
}

// headerFeedback returns the prose that follows the score on the header
// line, as in "Question 2 - 8/10. Très bien.".
func (s *section) headerFeedback() string {
	loc := scoreRe.FindStringIndex(s.header)
	if loc == nil {
		return ""
	}
	text := strings.TrimSpace(strings.TrimLeft(s.header[loc[1]:], " :-–.,;)"))
	return strings.TrimSpace(labelRe.ReplaceAllString(text, ""))
}

func isBareScore(s string) bool {
	loc := scoreRe.FindStringIndex(s)
	return loc != nil && strings.TrimSpace(s[:loc[0]]+s[loc[1]:]) == ""
}

// bulletItem reports whether line is a list item and returns its text.
// "**bold**" is emphasis, not a bullet.
func bulletItem(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "•"):
		return strings.TrimSpace(strings.TrimPrefix(line, "•")), true
	case line == "-" || strings.HasPrefix(line, "- "):
		return strings.TrimSpace(line[1:]), true
	case line == "*" || strings.HasPrefix(line, "* "):
		return strings.TrimSpace(line[1:]), true
	}
	return "", false
}

func stripEmphasis(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '#', '*', '_':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// firstSentence returns s up to and including the first sentence
// terminator followed by a space, or all of s.
func firstSentence(s string) string {
	for i, r := range s {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next == len(s) || s[next] == ' ' {
			return strings.TrimSpace(s[:next])
		}
	}
	return s
}
