package session

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State is the snapshot of the active recording session that observers see.
// The zero value is the idle sentinel.
type State struct {
	Recording bool      `json:"recording"`
	SessionID string    `json:"sessionId,omitempty"`
	Name      string    `json:"name,omitempty"`
	OwnerID   string    `json:"ownerId,omitempty"`
	StartTime time.Time `json:"startTime,omitempty"`
}

// Elapsed returns the wall-clock recording duration so far. Observers derive
// timers from StartTime rather than counting broadcasts.
func (s State) Elapsed() time.Duration {
	if !s.Recording || s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}

// StateStore holds the single active session's identity and timing. The
// snapshot is persisted to a JSON file so it survives process restarts, and
// every transition is broadcast to subscribed observers.
type StateStore struct {
	path string

	mu    sync.Mutex
	state State
	subs  map[int]chan State
	next  int
}

// NewStateStore creates a state store backed by the given file, restoring
// any previously persisted snapshot.
func NewStateStore(path string) *StateStore {
	s := &StateStore{
		path: path,
		subs: make(map[int]chan State),
	}
	s.restore()
	return s
}

// Get returns the current snapshot; the idle sentinel when nothing is active.
func (s *StateStore) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set persists the new snapshot and notifies all observers.
func (s *StateStore) Set(state State) {
	s.mu.Lock()
	s.state = state
	s.persistLocked()
	s.broadcastLocked(state)
	s.mu.Unlock()
}

// Clear resets to the idle sentinel.
func (s *StateStore) Clear() {
	s.Set(State{})
}

// Tick rebroadcasts the current snapshot without persisting it. The
// controller calls this once a second while recording so UI timers can
// refresh; slow observers simply miss ticks.
func (s *StateStore) Tick() {
	s.mu.Lock()
	if s.state.Recording {
		s.broadcastLocked(s.state)
	}
	s.mu.Unlock()
}

// Subscribe registers an observer. The returned cancel function must be
// called to release it.
func (s *StateStore) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan State, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (s *StateStore) broadcastLocked(state State) {
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

func (s *StateStore) persistLocked() {
	if s.path == "" {
		return
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		log.Printf("Warning: failed to persist recording state: %v\n", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		log.Printf("Warning: failed to persist recording state: %v\n", err)
	}
}

func (s *StateStore) restore() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return
	}
	s.state = state
}
