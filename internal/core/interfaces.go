package core

import (
	"context"
	"time"
)

// Transcriber turns raw audio bytes into text.
// Implementations: ai.Transcriber (Whisper via OpenAI-compatible API).
//
// Execute never returns an error for recognition failures: empty or
// unrecognizable audio yields the sentinel transcript "No speech detected".
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// Summarizer turns a transcript into a structured summary.
// Implementations: ai.Summarizer (chat completion + strict-then-fallback parse).
//
// Summarize is contracted to always return a well-formed Summary, never an
// error: malformed model output degrades to a deterministic fallback derived
// from the transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) *Summary
}

// SessionStorage persists sessions and their status history.
// Implementations: storage.Store (SQLite).
type SessionStorage interface {
	CreateSession(session *Session) error
	GetSession(id string) (*Session, error)
	ListSessions(ownerID string) ([]*Session, error)
	SetProcessing(id string, startedAt time.Time) error
	SaveTranscript(id, transcript string) error
	CompleteSession(id string, summary *Summary, completedAt time.Time, durationMs int64) error
	FailSession(id string, completedAt time.Time, durationMs int64) error
	CancelSession(id string, completedAt time.Time) error
	AppendStatusEvent(event *StatusEvent) error
	StatusHistory(sessionID string) ([]*StatusEvent, error)
	EnsureUser(user *User) error
	Close() error
}

// LedgerWriter records lifecycle step outcomes. Writes are asynchronous and
// must never propagate failures into the caller's control path.
// Implementations: ledger.Ledger (bounded queue + background drain).
type LedgerWriter interface {
	Record(sessionID, step, status string)
	RecordError(sessionID, step, status, errorMessage string, durationMs int64)
	RecordDuration(sessionID, step, status string, durationMs int64)
}

// Recorder is the audio capture adapter: an exclusively-owned resource that
// acquires the capture streams, mixes them, and encodes one asset on demand.
// Implementations: capture.Recorder (ffmpeg).
type Recorder interface {
	// Start acquires the capture resource. A second Start before Stop
	// returns ErrConflict.
	Start(ctx context.Context) error

	// Stop halts capture and finalizes the encoded asset.
	Stop() error

	// LastAsset returns the most recently captured asset as a data-URL
	// string, or "" when nothing has been captured.
	LastAsset() (string, error)

	// Discard drops any in-memory captured audio.
	Discard()
}

// IDGenerator generates unique identifiers.
// Implementations: storage.GenerateID (UUID-based).
type IDGenerator interface {
	GenerateID() string
}
