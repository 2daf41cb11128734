package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
)

// Store handles SQLite persistence for sessions and their status history.
type Store struct {
	db *sql.DB
}

// GenerateID returns a new opaque identifier.
func GenerateID() string {
	return uuid.New().String()
}

// NewStore opens (and migrates) the session database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	// Expand ~ in path
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// migrate creates the necessary tables
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			transcript TEXT,
			summary TEXT,
			created_at DATETIME NOT NULL,
			processing_started_at DATETIME,
			processing_completed_at DATETIME,
			processing_duration_ms INTEGER,
			FOREIGN KEY (owner_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS status_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			step TEXT NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			duration_ms INTEGER,
			timestamp DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
		CREATE INDEX IF NOT EXISTS idx_events_session ON status_events(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureUser inserts the user if it does not already exist.
func (s *Store) EnsureUser(user *core.User) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO users (id, email, name) VALUES (?, ?, ?)
	`, user.ID, user.Email, user.Name)
	return err
}

// CreateSession persists a new session row.
func (s *Store) CreateSession(session *core.Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, owner_id, name, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID, session.OwnerID, session.Name, session.Status, session.CreatedAt)
	return err
}

// GetSession retrieves a session by ID, including its summary if present.
func (s *Store) GetSession(id string) (*core.Session, error) {
	row := s.db.QueryRow(`
		SELECT id, owner_id, name, status, transcript, summary, created_at,
		       processing_started_at, processing_completed_at, processing_duration_ms
		FROM sessions WHERE id = ?
	`, id)

	session, err := scanSession(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		return nil, err
	}
	return session, nil
}

// ListSessions returns all sessions for an owner, most recent first.
func (s *Store) ListSessions(ownerID string) ([]*core.Session, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, name, status, transcript, summary, created_at,
		       processing_started_at, processing_completed_at, processing_duration_ms
		FROM sessions
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*core.Session
	for rows.Next() {
		session, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// SetProcessing marks the session as processing and stamps the start time.
func (s *Store) SetProcessing(id string, startedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET status = ?, processing_started_at = ? WHERE id = ?
	`, core.StatusProcessing, startedAt, id)
	return err
}

// SaveTranscript persists the transcript as soon as transcription succeeds,
// before summarization begins.
func (s *Store) SaveTranscript(id, transcript string) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET transcript = ? WHERE id = ?
	`, transcript, id)
	return err
}

// CompleteSession writes the terminal success state in a single statement:
// summary, status, completion time and total duration land atomically.
func (s *Store) CompleteSession(id string, summary *core.Summary, completedAt time.Time, durationMs int64) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = s.db.Exec(`
		UPDATE sessions
		SET summary = ?, status = ?, processing_completed_at = ?, processing_duration_ms = ?
		WHERE id = ?
	`, string(summaryJSON), core.StatusCompleted, completedAt, durationMs, id)
	return err
}

// FailSession writes the terminal failure state.
func (s *Store) FailSession(id string, completedAt time.Time, durationMs int64) error {
	_, err := s.db.Exec(`
		UPDATE sessions
		SET status = ?, processing_completed_at = ?, processing_duration_ms = ?
		WHERE id = ?
	`, core.StatusFailed, completedAt, durationMs, id)
	return err
}

// CancelSession transitions the session to cancelled.
func (s *Store) CancelSession(id string, completedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET status = ?, processing_completed_at = ? WHERE id = ?
	`, core.StatusCancelled, completedAt, id)
	return err
}

// AppendStatusEvent appends one ledger row. Rows are never updated or deleted.
func (s *Store) AppendStatusEvent(event *core.StatusEvent) error {
	id := event.ID
	if id == "" {
		id = GenerateID()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO status_events (id, session_id, step, status, error_message, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, event.SessionID, event.Step, event.Status, nullString(event.ErrorMessage), nullInt(event.DurationMs), ts)
	return err
}

// StatusHistory retrieves the ordered ledger for a session.
func (s *Store) StatusHistory(sessionID string) ([]*core.StatusEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, step, status, error_message, duration_ms, timestamp
		FROM status_events
		WHERE session_id = ?
		ORDER BY timestamp ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*core.StatusEvent
	for rows.Next() {
		var event core.StatusEvent
		var errMsg sql.NullString
		var durationMs sql.NullInt64

		if err := rows.Scan(&event.ID, &event.SessionID, &event.Step, &event.Status,
			&errMsg, &durationMs, &event.Timestamp); err != nil {
			return nil, err
		}
		event.ErrorMessage = errMsg.String
		event.DurationMs = durationMs.Int64
		events = append(events, &event)
	}
	return events, rows.Err()
}

func scanSession(scan func(dest ...any) error) (*core.Session, error) {
	var session core.Session
	var transcript, summaryJSON sql.NullString
	var startedAt, completedAt sql.NullTime
	var durationMs sql.NullInt64

	err := scan(&session.ID, &session.OwnerID, &session.Name, &session.Status,
		&transcript, &summaryJSON, &session.CreatedAt,
		&startedAt, &completedAt, &durationMs)
	if err != nil {
		return nil, err
	}

	session.Transcript = transcript.String
	if summaryJSON.Valid && summaryJSON.String != "" {
		var summary core.Summary
		if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err == nil {
			session.Summary = &summary
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		session.ProcessingStartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		session.ProcessingCompletedAt = &t
	}
	session.ProcessingDurationMs = durationMs.Int64

	return &session, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
