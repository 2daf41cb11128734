package core

import (
	"fmt"
	"time"
)

// Session status constants
const (
	StatusRecording  = "recording"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Status ledger step constants
const (
	StepProcessingStarted     = "processing_started"
	StepTranscriptionStarted  = "transcription_started"
	StepTranscriptionComplete = "transcription_complete"
	StepSummarizationStarted  = "summarization_started"
	StepSummarizationComplete = "summarization_complete"
	StepProcessingComplete    = "processing_complete"
	StepRecordingCancelled    = "recording_cancelled"
	StepError                 = "error"
)

// Status ledger event status constants
const (
	EventProcessing = "processing"
	EventSuccess    = "success"
	EventFailed     = "failed"
	EventCancelled  = "cancelled"
)

// TerminalStatus reports whether a session status admits no further transitions.
func TerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Session is one recording-to-summary attempt.
type Session struct {
	ID                    string     `json:"id"`
	OwnerID               string     `json:"ownerId"`
	Name                  string     `json:"name"`
	Status                string     `json:"status"` // recording, processing, completed, failed, cancelled
	Transcript            string     `json:"transcript,omitempty"`
	Summary               *Summary   `json:"summary,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt,omitempty"`
	ProcessingDurationMs  int64      `json:"processingDurationMs,omitempty"`
}

// ProcessingTimeSeconds renders the total processing duration as a
// two-decimal string, or "" when the session never finished processing.
func (s *Session) ProcessingTimeSeconds() string {
	if s.ProcessingDurationMs <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", float64(s.ProcessingDurationMs)/1000)
}

// Summary pairs the structured summary with its rendered markdown.
type Summary struct {
	JSON     SummaryJSON `json:"json"`
	Markdown string      `json:"markdown"`
}

// SummaryJSON is the structured summary schema the summarizer is contracted
// to return. Missing arrays are empty, never null, so clients can iterate
// without nil checks.
type SummaryJSON struct {
	Title          string   `json:"title"`
	Participants   []string `json:"participants"`
	Topics         []Topic  `json:"topics"`
	KeyDecisions   []string `json:"key_decisions"`
	NextSteps      []string `json:"next_steps"`
	Tone           string   `json:"tone"`
	OverallSummary string   `json:"overall_summary"`
}

// Topic is one discussion topic inside a summary.
type Topic struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
}

// StatusEvent is one append-only ledger row per lifecycle step observed.
// Events are never mutated or deleted; replay order is by timestamp.
type StatusEvent struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	Step         string    `json:"step"`
	Status       string    `json:"status"` // processing, success, failed, cancelled
	ErrorMessage string    `json:"errorMessage,omitempty"`
	DurationMs   int64     `json:"durationMs,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// DurationSeconds renders the event duration as a two-decimal string,
// or "" when the event carries no duration.
func (e *StatusEvent) DurationSeconds() string {
	if e.DurationMs <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", float64(e.DurationMs)/1000)
}

// Timing is the per-step breakdown returned by a pipeline run.
type Timing struct {
	TranscriptionMs      int64  `json:"transcriptionMs"`
	SummarizationMs      int64  `json:"summarizationMs"`
	TotalMs              int64  `json:"totalMs"`
	TranscriptionSeconds string `json:"transcriptionSeconds"`
	SummarizationSeconds string `json:"summarizationSeconds"`
	TotalSeconds         string `json:"totalSeconds"`
}

// NewTiming builds a Timing from raw millisecond measurements.
func NewTiming(transcriptionMs, summarizationMs, totalMs int64) Timing {
	return Timing{
		TranscriptionMs:      transcriptionMs,
		SummarizationMs:      summarizationMs,
		TotalMs:              totalMs,
		TranscriptionSeconds: fmt.Sprintf("%.2f", float64(transcriptionMs)/1000),
		SummarizationSeconds: fmt.Sprintf("%.2f", float64(summarizationMs)/1000),
		TotalSeconds:         fmt.Sprintf("%.2f", float64(totalMs)/1000),
	}
}

// PipelineResult is what a completed pipeline run hands back to the caller.
type PipelineResult struct {
	SessionID       string      `json:"sessionId"`
	Transcript      string      `json:"transcript"`
	SummaryJSON     SummaryJSON `json:"summaryJSON"`
	SummaryMarkdown string      `json:"summaryMarkdown"`
	Timing          Timing      `json:"timing"`
}

// User is a foreign reference only; sessions point at it via OwnerID.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
