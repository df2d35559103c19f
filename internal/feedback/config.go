package feedback

import "time"

// Purposes recorded on LLM request events.
const (
	PurposeAnalysis = "quiz-feedback"
	PurposePreview  = "quiz-feedback-preview"
)

// Config holds analysis settings.
type Config struct {
	// Timeout bounds one generation, retries included.
	Timeout time.Duration `mapstructure:"timeout"`

	// StructuredOutput asks the provider for JSON matching FeedbackSchema
	// instead of free text.
	StructuredOutput bool `mapstructure:"structured_output"`

	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DefaultConfig returns sensible defaults for quiz analysis.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		MaxTokens:   1500,
		Temperature: 0.4,
	}
}
