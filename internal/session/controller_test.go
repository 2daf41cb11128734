package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
)

// mockRecorder is a scriptable core.Recorder.
type mockRecorder struct {
	mu        sync.Mutex
	startErr  error
	stopErr   error
	asset     string
	assetErr  error
	started   int
	stopped   int
	discarded int
}

func (m *mockRecorder) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started++
	return nil
}

func (m *mockRecorder) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	return m.stopErr
}

func (m *mockRecorder) LastAsset() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.asset, m.assetErr
}

func (m *mockRecorder) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded++
	m.asset = ""
}

// stubIDs hands out sequential ids so tests can predict them.
type stubIDs struct {
	mu sync.Mutex
	n  int
}

func (s *stubIDs) GenerateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("session-%d", s.n)
}

type controllerFixture struct {
	controller *Controller
	store      *fakeStore
	ledger     *syncLedger
	recorder   *mockRecorder
}

func newControllerFixture() *controllerFixture {
	store := newFakeStore()
	ledger := &syncLedger{}
	recorder := &mockRecorder{asset: encodedAsset("captured audio")}
	pipeline := NewPipeline(store, &mockTranscriber{}, &mockSummarizer{}, ledger)
	state := NewStateStore("")

	return &controllerFixture{
		controller: NewController(store, ledger, recorder, pipeline, state, &stubIDs{}),
		store:      store,
		ledger:     ledger,
		recorder:   recorder,
	}
}

func TestControllerStart(t *testing.T) {
	fx := newControllerFixture()

	sess, token, err := fx.controller.Start(context.Background(), "Standup", "user1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sess.Status != core.StatusRecording {
		t.Errorf("Status: got %q, want %q", sess.Status, core.StatusRecording)
	}
	if token == nil || token.SessionID() != sess.ID {
		t.Errorf("Token should name the started session, got %q", token.SessionID())
	}

	state := fx.controller.GetState()
	if !state.Recording || state.SessionID != sess.ID || state.Name != "Standup" {
		t.Errorf("State after Start: %+v", state)
	}
	if fx.recorder.started != 1 {
		t.Errorf("Recorder should be started once, got %d", fx.recorder.started)
	}
}

func TestControllerStart_Validation(t *testing.T) {
	tests := []struct {
		name    string
		meeting string
		ownerID string
	}{
		{"Given empty name When starting Then rejects", "", "user1"},
		{"Given empty owner When starting Then rejects", "Standup", ""},
		{"Given both empty When starting Then rejects", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newControllerFixture()
			_, _, err := fx.controller.Start(context.Background(), tt.meeting, tt.ownerID)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestControllerStart_ConflictWhileRecording(t *testing.T) {
	fx := newControllerFixture()

	if _, _, err := fx.controller.Start(context.Background(), "First", "user1"); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}

	_, _, err := fx.controller.Start(context.Background(), "Second", "user2")
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestControllerStart_CaptureFailureFailsSession(t *testing.T) {
	fx := newControllerFixture()
	fx.recorder.startErr = errors.New("no capture device")

	_, _, err := fx.controller.Start(context.Background(), "Standup", "user1")
	if err == nil {
		t.Fatal("Start() should fail when capture cannot be acquired")
	}

	// The session record exists and is terminal, never stuck in recording
	if got := fx.store.status(t, "session-1"); got != core.StatusFailed {
		t.Errorf("Session status: got %q, want %q", got, core.StatusFailed)
	}
	if fx.controller.GetState().Recording {
		t.Error("State must stay idle when Start fails")
	}
}

func TestControllerStopThenProcess(t *testing.T) {
	fx := newControllerFixture()

	sess, token, err := fx.controller.Start(context.Background(), "Standup", "user1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	result, err := fx.controller.Stop(context.Background(), token)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if result.SessionID != sess.ID {
		t.Errorf("Result session: got %q, want %q", result.SessionID, sess.ID)
	}
	if got := fx.store.status(t, sess.ID); got != core.StatusCompleted {
		t.Errorf("Session status: got %q, want %q", got, core.StatusCompleted)
	}
	if fx.controller.GetState().Recording {
		t.Error("State must be idle after Stop")
	}
	if fx.recorder.stopped != 1 {
		t.Errorf("Recorder should be stopped once, got %d", fx.recorder.stopped)
	}

	expectSteps(t, fx.ledger.steps(), []string{
		core.StepProcessingStarted,
		core.StepTranscriptionStarted,
		core.StepTranscriptionComplete,
		core.StepSummarizationStarted,
		core.StepSummarizationComplete,
		core.StepProcessingComplete,
	})
}

func TestControllerStop_TokenRequired(t *testing.T) {
	fx := newControllerFixture()

	// Stop with no active recording
	if _, err := fx.controller.Stop(context.Background(), nil); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("idle Stop: expected ErrInvalidState, got %v", err)
	}

	_, token, err := fx.controller.Start(context.Background(), "Standup", "user1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// A forged token must not release someone else's capture
	stale := &CaptureToken{sessionID: "someone-else"}
	if _, err := fx.controller.Stop(context.Background(), stale); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("stale token: expected ErrInvalidState, got %v", err)
	}

	// The rightful token still works
	if _, err := fx.controller.Stop(context.Background(), token); err != nil {
		t.Errorf("rightful Stop() error = %v", err)
	}

	// Second Stop with the consumed token
	if _, err := fx.controller.Stop(context.Background(), token); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("reused token: expected ErrInvalidState, got %v", err)
	}
}

func TestControllerStop_EmptyCapture(t *testing.T) {
	fx := newControllerFixture()
	fx.recorder.asset = ""

	sess, token, err := fx.controller.Start(context.Background(), "Standup", "user1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, err = fx.controller.Stop(context.Background(), token)
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	if got := fx.store.status(t, sess.ID); got != core.StatusFailed {
		t.Errorf("Session status: got %q, want %q", got, core.StatusFailed)
	}

	steps := fx.ledger.steps()
	if len(steps) != 1 || steps[0] != core.StepError {
		t.Errorf("Ledger should carry a single error event, got %v", steps)
	}
}

func TestControllerCancel(t *testing.T) {
	fx := newControllerFixture()

	sess, token, err := fx.controller.Start(context.Background(), "Standup", "user1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := fx.controller.Cancel(sess.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	if got := fx.store.status(t, sess.ID); got != core.StatusCancelled {
		t.Errorf("Session status: got %q, want %q", got, core.StatusCancelled)
	}
	if fx.controller.GetState().Recording {
		t.Error("State must be idle after Cancel")
	}
	if fx.recorder.discarded != 1 {
		t.Errorf("Captured audio should be discarded, got %d discards", fx.recorder.discarded)
	}

	events := fx.ledger.events
	if len(events) != 1 {
		t.Fatalf("Expected 1 ledger event, got %d", len(events))
	}
	if events[0].Step != core.StepRecordingCancelled || events[0].Status != core.EventCancelled {
		t.Errorf("Cancel event: got %s/%s", events[0].Step, events[0].Status)
	}
	if events[0].ErrorMessage != "User cancelled the recording" {
		t.Errorf("Cancel reason: got %q", events[0].ErrorMessage)
	}

	// The consumed token cannot stop a cancelled session
	if _, err := fx.controller.Stop(context.Background(), token); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Stop after Cancel: expected ErrInvalidState, got %v", err)
	}
}

func TestControllerCancel_TerminalIsIdempotent(t *testing.T) {
	for _, status := range []string{core.StatusCompleted, core.StatusFailed, core.StatusCancelled} {
		t.Run(status, func(t *testing.T) {
			fx := newControllerFixture()
			fx.store.CreateSession(&core.Session{
				ID: "s1", OwnerID: "u", Name: "Done", Status: status, CreatedAt: time.Now(),
			})

			if err := fx.controller.Cancel("s1"); err != nil {
				t.Errorf("Cancel on %s session should succeed, got %v", status, err)
			}
			// Status unchanged
			if got := fx.store.status(t, "s1"); got != status {
				t.Errorf("Status changed from %q to %q", status, got)
			}
			if len(fx.ledger.steps()) != 0 {
				t.Error("Idempotent cancel must not append ledger events")
			}
		})
	}
}

func TestControllerCancel_UnknownSession(t *testing.T) {
	fx := newControllerFixture()
	if err := fx.controller.Cancel("missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestControllerComplete(t *testing.T) {
	fx := newControllerFixture()

	sess, err := fx.controller.Create("Uploaded", "user1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := fx.controller.Complete(context.Background(), sess.ID, encodedAsset("client audio"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.SessionID != sess.ID {
		t.Errorf("Result session: got %q, want %q", result.SessionID, sess.ID)
	}
	if got := fx.store.status(t, sess.ID); got != core.StatusCompleted {
		t.Errorf("Session status: got %q, want %q", got, core.StatusCompleted)
	}
}

func TestControllerComplete_RejectsTerminal(t *testing.T) {
	fx := newControllerFixture()
	fx.store.CreateSession(&core.Session{
		ID: "s1", OwnerID: "u", Name: "Done", Status: core.StatusCompleted, CreatedAt: time.Now(),
	})

	_, err := fx.controller.Complete(context.Background(), "s1", encodedAsset("audio"))
	if !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestControllerComplete_UnknownSession(t *testing.T) {
	fx := newControllerFixture()
	_, err := fx.controller.Complete(context.Background(), "missing", encodedAsset("audio"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestControllerStartAfterStop(t *testing.T) {
	// The conflict window closes once the previous session leaves recording.
	fx := newControllerFixture()

	_, token, err := fx.controller.Start(context.Background(), "First", "user1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := fx.controller.Stop(context.Background(), token); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if _, _, err := fx.controller.Start(context.Background(), "Second", "user1"); err != nil {
		t.Errorf("Start after Stop should succeed, got %v", err)
	}
}
