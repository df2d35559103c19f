package learn

import "github.com/enfinlibre/formation/internal/api"

// submittedMsg carries the server's answer to a quiz submission.
type submittedMsg struct {
	res *api.SubmitQuizResponse
	err error
}
