package core

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the lifecycle error taxonomy. Handlers map these
// onto HTTP status codes; the controller and pipeline return them wrapped
// with context via fmt.Errorf("...: %w", ...).
var (
	// ErrValidation: missing required request fields. No state change.
	ErrValidation = errors.New("missing required fields")

	// ErrConflict: a recording session is already active. No state change.
	ErrConflict = errors.New("recording already in progress")

	// ErrNotFound: operation on an unknown session id. No state change.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidState: operation illegal for the session's current status.
	ErrInvalidState = errors.New("no active recording")

	// ErrNoData: stop requested but no captured asset exists. The session
	// is forced to failed.
	ErrNoData = errors.New("no audio data captured")
)

// PipelineError wraps any fault raised during transcription, summarization
// or persistence. The session carrying it has been force-transitioned to
// failed before the error is returned.
type PipelineError struct {
	SessionID string
	Step      string
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s for session %s: %v", e.Step, e.SessionID, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
