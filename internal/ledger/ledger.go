// Package ledger provides the append-only status ledger: a non-blocking
// side-channel for lifecycle step outcomes. Writes are queued onto a bounded
// channel drained by a single background goroutine, so a slow or failing
// store is structurally incapable of stalling the recording or processing
// control path.
package ledger

import (
	"log"
	"sync"
	"time"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
)

const defaultQueueSize = 256

// Appender is the subset of storage the ledger needs.
type Appender interface {
	AppendStatusEvent(event *core.StatusEvent) error
}

// Ledger queues status events and drains them in the background.
// A failed write is retried once with no backoff, then dropped with a
// warning; a full queue drops the event immediately.
type Ledger struct {
	store Appender
	queue chan *core.StatusEvent
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a ledger draining into the given appender.
func New(store Appender) *Ledger {
	l := &Ledger{
		store: store,
		queue: make(chan *core.StatusEvent, defaultQueueSize),
	}
	l.wg.Add(1)
	go l.drain()
	return l
}

// Record appends a step transition with no duration or error detail.
func (l *Ledger) Record(sessionID, step, status string) {
	l.enqueue(&core.StatusEvent{
		SessionID: sessionID,
		Step:      step,
		Status:    status,
		Timestamp: time.Now(),
	})
}

// RecordDuration appends a step transition carrying its measured duration.
func (l *Ledger) RecordDuration(sessionID, step, status string, durationMs int64) {
	l.enqueue(&core.StatusEvent{
		SessionID:  sessionID,
		Step:       step,
		Status:     status,
		DurationMs: durationMs,
		Timestamp:  time.Now(),
	})
}

// RecordError appends a step transition carrying an error message and the
// elapsed duration at the point of failure.
func (l *Ledger) RecordError(sessionID, step, status, errorMessage string, durationMs int64) {
	l.enqueue(&core.StatusEvent{
		SessionID:    sessionID,
		Step:         step,
		Status:       status,
		ErrorMessage: errorMessage,
		DurationMs:   durationMs,
		Timestamp:    time.Now(),
	})
}

// Close stops accepting events, drains what is queued, and waits for the
// background writer to finish.
func (l *Ledger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *Ledger) enqueue(event *core.StatusEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	select {
	case l.queue <- event:
	default:
		log.Printf("Warning: status ledger queue full, dropping %s/%s\n", event.SessionID, event.Step)
	}
}

func (l *Ledger) drain() {
	defer l.wg.Done()
	for event := range l.queue {
		l.write(event)
	}
}

func (l *Ledger) write(event *core.StatusEvent) {
	err := l.store.AppendStatusEvent(event)
	if err == nil {
		return
	}

	// One retry, no backoff.
	if err = l.store.AppendStatusEvent(event); err != nil {
		log.Printf("Warning: failed to log status %s/%s: %v\n", event.SessionID, event.Step, err)
	}
}
