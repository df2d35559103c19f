// Package events publishes quiz lifecycle events to a RabbitMQ topic
// exchange.
package events

const (
	EventTypeQuizSubmitted = "quiz.submitted"
	EventTypeQuizAnalyzed  = "quiz.analyzed"
)

// QuizSubmittedEvent is published after a submission is stored.
type QuizSubmittedEvent struct {
	EventType         string `json:"eventType"`
	SubmissionID      string `json:"submissionId"`
	Email             string `json:"email"`
	AnsweredQuestions int    `json:"answeredQuestions"`
	CompletedModules  int    `json:"completedModules"`
	TotalModules      int    `json:"totalModules"`
	HasAnalysis       bool   `json:"hasAnalysis"`
	Timestamp         int64  `json:"timestamp"`
}

// QuizAnalyzedEvent is published after a fresh analysis is persisted.
type QuizAnalyzedEvent struct {
	EventType    string      `json:"eventType"`
	SubmissionID string      `json:"submissionId"`
	Provider     string      `json:"provider"`
	Model        string      `json:"model"`
	Scores       map[int]int `json:"scores,omitempty"`
	Timestamp    int64       `json:"timestamp"`
}
