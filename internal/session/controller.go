// Package session implements the recording-session lifecycle: the state
// machine governing one session from creation to terminal state, the
// persisted active-session snapshot, and the processing pipeline invoked on
// stop.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
)

// tickInterval is the cadence of recording-timer broadcasts. Each tick is
// scheduled one interval after the previous one fired; drift is acceptable.
const tickInterval = time.Second

// CaptureToken is the capability handle for an in-flight capture. Start
// returns it and Stop requires it back, so only the caller that acquired
// the capture resource can release it.
type CaptureToken struct {
	sessionID string
}

// SessionID names the session this token belongs to.
func (t *CaptureToken) SessionID() string {
	if t == nil {
		return ""
	}
	return t.sessionID
}

// Controller is the session lifecycle state machine. States:
//
//	idle -> recording -> processing -> {completed | failed | cancelled}
//
// idle is implicit (no active session); the three right-hand states are
// terminal. The capture adapter is a shared exclusively-owned resource, so
// Start rejects a concurrent start rather than queueing it.
type Controller struct {
	store    core.SessionStorage
	ledger   core.LedgerWriter
	recorder core.Recorder
	pipeline *Pipeline
	state    *StateStore
	ids      core.IDGenerator

	mu       sync.Mutex
	active   *CaptureToken
	stopTick chan struct{}
}

// NewController wires the lifecycle controller.
func NewController(store core.SessionStorage, ledger core.LedgerWriter, recorder core.Recorder, pipeline *Pipeline, state *StateStore, ids core.IDGenerator) *Controller {
	return &Controller{
		store:    store,
		ledger:   ledger,
		recorder: recorder,
		pipeline: pipeline,
		state:    state,
		ids:      ids,
	}
}

// Start creates a session in recording state, acquires the capture adapter
// and begins the wall-clock timer. Returns ErrConflict when a recording
// session is already active in this context.
func (c *Controller) Start(ctx context.Context, name, ownerID string) (*core.Session, *CaptureToken, error) {
	if name == "" || ownerID == "" {
		return nil, nil, fmt.Errorf("%w: name and ownerId", core.ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, nil, core.ErrConflict
	}

	if err := c.store.EnsureUser(&core.User{
		ID:    ownerID,
		Email: ownerID + "@temp.local",
		Name:  "Anonymous User",
	}); err != nil {
		return nil, nil, fmt.Errorf("ensuring owner: %w", err)
	}

	now := time.Now()
	sess := &core.Session{
		ID:        c.ids.GenerateID(),
		OwnerID:   ownerID,
		Name:      name,
		Status:    core.StatusRecording,
		CreatedAt: now,
	}
	if err := c.store.CreateSession(sess); err != nil {
		return nil, nil, fmt.Errorf("persisting session: %w", err)
	}

	if err := c.recorder.Start(ctx); err != nil {
		if failErr := c.store.FailSession(sess.ID, time.Now(), 0); failErr != nil {
			log.Printf("Warning: failed to mark session %s as failed: %v\n", sess.ID, failErr)
		}
		return nil, nil, fmt.Errorf("starting capture: %w", err)
	}

	token := &CaptureToken{sessionID: sess.ID}
	c.active = token
	c.state.Set(State{
		Recording: true,
		SessionID: sess.ID,
		Name:      name,
		OwnerID:   ownerID,
		StartTime: now,
	})
	c.startTickerLocked()

	return sess, token, nil
}

// Stop halts capture, retrieves the captured asset and hands the session to
// the processing pipeline. The token returned by Start is required; a nil or
// stale token yields ErrInvalidState. An empty capture yields ErrNoData with
// the session forced to failed.
func (c *Controller) Stop(ctx context.Context, token *CaptureToken) (*core.PipelineResult, error) {
	c.mu.Lock()
	if c.active == nil || token == nil || token.sessionID != c.active.sessionID {
		c.mu.Unlock()
		return nil, core.ErrInvalidState
	}

	sessionID := c.active.sessionID
	c.stopTickerLocked()
	c.active = nil

	if err := c.recorder.Stop(); err != nil {
		log.Printf("Warning: stopping capture for session %s: %v\n", sessionID, err)
	}
	asset, err := c.recorder.LastAsset()
	c.state.Clear()
	c.mu.Unlock()

	if err != nil || asset == "" {
		cause := err
		if cause == nil {
			cause = core.ErrNoData
		}
		c.ledger.RecordError(sessionID, core.StepError, core.EventFailed, cause.Error(), 0)
		if failErr := c.store.FailSession(sessionID, time.Now(), 0); failErr != nil {
			log.Printf("Warning: failed to mark session %s as failed: %v\n", sessionID, failErr)
		}
		return nil, fmt.Errorf("session %s: %w", sessionID, cause)
	}

	// Processing runs outside the lock: a long pipeline must not block
	// GetState or Cancel.
	return c.pipeline.Run(ctx, sessionID, asset)
}

// Cancel transitions a session directly to cancelled and releases capture if
// it owns it. Cancelling an already-terminal session is an idempotent no-op
// that still reports success, so UI races against pipeline completion do not
// surface spurious errors. Unknown ids return ErrNotFound.
func (c *Controller) Cancel(sessionID string) error {
	sess, err := c.store.GetSession(sessionID)
	if err != nil {
		return err
	}

	if core.TerminalStatus(sess.Status) {
		return nil
	}

	c.mu.Lock()
	if c.active != nil && c.active.sessionID == sessionID {
		c.stopTickerLocked()
		c.active = nil
		if err := c.recorder.Stop(); err != nil {
			log.Printf("Warning: stopping capture for session %s: %v\n", sessionID, err)
		}
		c.recorder.Discard()
		c.state.Clear()
	}
	c.mu.Unlock()

	if err := c.store.CancelSession(sessionID, time.Now()); err != nil {
		return fmt.Errorf("cancelling session: %w", err)
	}
	c.ledger.RecordError(sessionID, core.StepRecordingCancelled, core.EventCancelled, "User cancelled the recording", 0)
	return nil
}

// GetState returns the current snapshot; the idle sentinel when no session
// is active. Always succeeds.
func (c *Controller) GetState() State {
	return c.state.Get()
}

// Complete runs the pipeline for an externally captured asset, as uploaded
// by a client that recorded on its side. The session must exist and not be
// terminal.
func (c *Controller) Complete(ctx context.Context, sessionID, rawAsset string) (*core.PipelineResult, error) {
	sess, err := c.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if core.TerminalStatus(sess.Status) {
		return nil, fmt.Errorf("%w: session %s is %s", core.ErrInvalidState, sessionID, sess.Status)
	}
	return c.pipeline.Run(ctx, sessionID, rawAsset)
}

// Create registers a session in recording state without acquiring the local
// capture adapter, for clients that capture audio themselves.
func (c *Controller) Create(name, ownerID string) (*core.Session, error) {
	if name == "" || ownerID == "" {
		return nil, fmt.Errorf("%w: name and ownerId", core.ErrValidation)
	}

	if err := c.store.EnsureUser(&core.User{
		ID:    ownerID,
		Email: ownerID + "@temp.local",
		Name:  "Anonymous User",
	}); err != nil {
		return nil, fmt.Errorf("ensuring owner: %w", err)
	}

	sess := &core.Session{
		ID:        c.ids.GenerateID(),
		OwnerID:   ownerID,
		Name:      name,
		Status:    core.StatusRecording,
		CreatedAt: time.Now(),
	}
	if err := c.store.CreateSession(sess); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}
	return sess, nil
}

// startTickerLocked launches the best-effort recording timer: each tick is
// rescheduled one interval from the previous tick, not wall-clock
// compensated.
func (c *Controller) startTickerLocked() {
	stop := make(chan struct{})
	c.stopTick = stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(tickInterval):
				c.state.Tick()
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}
