// Package quizerr defines the error types shared by the submission and
// analysis pipeline. Each type wraps its cause so callers can use
// errors.As at the HTTP boundary.
package quizerr

import (
	"fmt"
	"strings"
)

// ErrValidation indicates missing or malformed caller input. No side
// effects have happened when it is returned.
type ErrValidation struct {
	Fields []string
	Reason string
}

func (e *ErrValidation) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("missing user information: %s", strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// ErrNotFound indicates the referenced submission does not exist.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("submission %q not found", e.ID)
}

// ErrStore indicates the persistence layer rejected an operation.
type ErrStore struct {
	Op  string
	Err error
}

func (e *ErrStore) Error() string {
	return fmt.Sprintf("database error (%s): %v", e.Op, e.Err)
}

func (e *ErrStore) Unwrap() error { return e.Err }

// ErrGeneration indicates the feedback generator failed, timed out or
// returned no content.
type ErrGeneration struct {
	Err error
}

func (e *ErrGeneration) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feedback generation failed: %v", e.Err)
	}
	return "feedback generation failed"
}

func (e *ErrGeneration) Unwrap() error { return e.Err }

// ErrAnalysisTrigger reports that analysis of a freshly stored submission
// failed. The submission itself succeeded.
type ErrAnalysisTrigger struct {
	SubmissionID string
	Err          error
}

func (e *ErrAnalysisTrigger) Error() string {
	return fmt.Sprintf("analysis of submission %s failed: %v", e.SubmissionID, e.Err)
}

func (e *ErrAnalysisTrigger) Unwrap() error { return e.Err }
