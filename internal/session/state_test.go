package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStateStore_SetGetClear(t *testing.T) {
	store := NewStateStore("")

	if state := store.Get(); state.Recording {
		t.Error("Fresh store should be idle")
	}

	start := time.Now()
	store.Set(State{Recording: true, SessionID: "s1", Name: "Standup", OwnerID: "u1", StartTime: start})

	state := store.Get()
	if !state.Recording || state.SessionID != "s1" || state.Name != "Standup" {
		t.Errorf("State after Set: %+v", state)
	}

	store.Clear()
	if state := store.Get(); state.Recording || state.SessionID != "" {
		t.Errorf("State after Clear should be the idle sentinel, got %+v", state)
	}
}

func TestStateStore_PersistsAcrossRestarts(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "meetmate-state-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	path := filepath.Join(tmpDir, "state.json")

	first := NewStateStore(path)
	start := time.Now().Truncate(time.Second)
	first.Set(State{Recording: true, SessionID: "s1", Name: "Standup", OwnerID: "u1", StartTime: start})

	second := NewStateStore(path)
	state := second.Get()
	if !state.Recording || state.SessionID != "s1" {
		t.Errorf("Restored state: %+v", state)
	}
	if !state.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", state.StartTime, start)
	}
}

func TestStateStore_SubscribeReceivesTransitions(t *testing.T) {
	store := NewStateStore("")

	ch, cancel := store.Subscribe()
	defer cancel()

	store.Set(State{Recording: true, SessionID: "s1"})

	select {
	case state := <-ch:
		if !state.Recording || state.SessionID != "s1" {
			t.Errorf("Broadcast state: %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for broadcast")
	}

	store.Clear()
	select {
	case state := <-ch:
		if state.Recording {
			t.Errorf("Expected idle broadcast, got %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for clear broadcast")
	}
}

func TestStateStore_TickOnlyWhileRecording(t *testing.T) {
	store := NewStateStore("")

	ch, cancel := store.Subscribe()
	defer cancel()

	// Idle ticks are suppressed
	store.Tick()
	select {
	case state := <-ch:
		t.Errorf("Idle Tick should not broadcast, got %+v", state)
	case <-time.After(50 * time.Millisecond):
	}

	store.Set(State{Recording: true, SessionID: "s1"})
	<-ch // consume the Set broadcast

	store.Tick()
	select {
	case state := <-ch:
		if state.SessionID != "s1" {
			t.Errorf("Tick broadcast: %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for tick broadcast")
	}
}

func TestStateElapsed(t *testing.T) {
	idle := State{}
	if idle.Elapsed() != 0 {
		t.Error("Idle state should report zero elapsed")
	}

	recording := State{Recording: true, StartTime: time.Now().Add(-2 * time.Second)}
	if elapsed := recording.Elapsed(); elapsed < 2*time.Second {
		t.Errorf("Elapsed: got %v, want >= 2s", elapsed)
	}
}
