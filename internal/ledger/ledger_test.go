package ledger

import (
	"errors"
	"sync"
	"testing"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
)

// recordingAppender captures every event handed to it, optionally failing
// the first failUntil attempts.
type recordingAppender struct {
	mu        sync.Mutex
	events    []*core.StatusEvent
	attempts  int
	failUntil int
}

func (r *recordingAppender) AppendStatusEvent(event *core.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.attempts <= r.failUntil {
		return errors.New("database locked")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAppender) snapshot() []*core.StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*core.StatusEvent(nil), r.events...)
}

func TestLedgerDrainsQueuedEvents(t *testing.T) {
	appender := &recordingAppender{}
	ledger := New(appender)

	ledger.Record("s1", core.StepProcessingStarted, core.EventProcessing)
	ledger.RecordDuration("s1", core.StepTranscriptionComplete, core.EventSuccess, 1200)
	ledger.RecordError("s1", core.StepError, core.EventFailed, "transcription failed", 900)

	ledger.Close()

	events := appender.snapshot()
	if len(events) != 3 {
		t.Fatalf("Expected 3 events written, got %d", len(events))
	}

	if events[0].Step != core.StepProcessingStarted || events[0].Status != core.EventProcessing {
		t.Errorf("Event 0: got %s/%s", events[0].Step, events[0].Status)
	}
	if events[1].DurationMs != 1200 {
		t.Errorf("Event 1 duration: got %d, want 1200", events[1].DurationMs)
	}
	if events[2].ErrorMessage != "transcription failed" {
		t.Errorf("Event 2 error: got %q", events[2].ErrorMessage)
	}
	for i, event := range events {
		if event.SessionID != "s1" {
			t.Errorf("Event %d session: got %q, want %q", i, event.SessionID, "s1")
		}
		if event.Timestamp.IsZero() {
			t.Errorf("Event %d has zero timestamp", i)
		}
	}
}

func TestLedgerRetriesFailedWriteOnce(t *testing.T) {
	appender := &recordingAppender{failUntil: 1}
	ledger := New(appender)

	ledger.Record("s1", core.StepProcessingStarted, core.EventProcessing)
	ledger.Close()

	if got := len(appender.snapshot()); got != 1 {
		t.Fatalf("Expected event written on retry, got %d events", got)
	}
	if appender.attempts != 2 {
		t.Errorf("Expected 2 write attempts, got %d", appender.attempts)
	}
}

func TestLedgerDropsAfterRetryFails(t *testing.T) {
	appender := &recordingAppender{failUntil: 2}
	ledger := New(appender)

	ledger.Record("s1", core.StepProcessingStarted, core.EventProcessing)
	ledger.Close()

	if got := len(appender.snapshot()); got != 0 {
		t.Fatalf("Expected event dropped after retry, got %d events", got)
	}
	if appender.attempts != 2 {
		t.Errorf("Expected exactly 2 attempts (original + one retry), got %d", appender.attempts)
	}
}

func TestLedgerCloseIsIdempotentAndStopsAcceptance(t *testing.T) {
	appender := &recordingAppender{}
	ledger := New(appender)

	ledger.Record("s1", core.StepProcessingStarted, core.EventProcessing)
	ledger.Close()
	ledger.Close()

	// Must not panic or write after close
	ledger.Record("s1", core.StepProcessingComplete, core.EventSuccess)

	if got := len(appender.snapshot()); got != 1 {
		t.Errorf("Expected 1 event (pre-close only), got %d", got)
	}
}

func TestLedgerConcurrentRecords(t *testing.T) {
	appender := &recordingAppender{}
	ledger := New(appender)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				ledger.Record("s1", core.StepTranscriptionStarted, core.EventProcessing)
			}
		}()
	}
	wg.Wait()
	ledger.Close()

	if got := len(appender.snapshot()); got != 100 {
		t.Errorf("Expected 100 events, got %d", got)
	}
}
