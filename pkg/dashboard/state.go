package dashboard

import (
	"sync"
	"time"

	"backupmon/pkg/models"
)

// State is a snapshot of everything the dashboard shows.
type State struct {
	Health    models.HealthStatus
	Backups   models.BackupPage
	Logs      []models.LogEntry
	UpdatedAt time.Time // zero until the first successful refresh
}

// DefaultState is the state before the first refresh.
func DefaultState() State {
	return State{
		Health:  models.DefaultHealth(),
		Backups: models.DefaultBackupPage(),
		Logs:    []models.LogEntry{},
	}
}

func (s State) clone() State {
	out := s
	out.Backups.Items = append([]models.BackupRecord(nil), s.Backups.Items...)
	out.Logs = append([]models.LogEntry(nil), s.Logs...)
	return out
}

// Listener is notified with a snapshot after every state change.
type Listener func(State)

// Store owns the dashboard state and notifies listeners on change.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store holding DefaultState.
func NewStore() *Store {
	return &Store{
		state:     DefaultState(),
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns a copy of the current state.
func (st *Store) Snapshot() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.clone()
}

// Subscribe registers l and returns a function that removes it.
func (st *Store) Subscribe(l Listener) (unsubscribe func()) {
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.listeners[id] = l
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.listeners, id)
		st.mu.Unlock()
	}
}

// Update applies fn to the state under the write lock, then notifies
// listeners outside of it.
func (st *Store) Update(fn func(*State)) {
	st.mu.Lock()
	fn(&st.state)
	snapshot := st.state.clone()
	listeners := make([]Listener, 0, len(st.listeners))
	for _, l := range st.listeners {
		listeners = append(listeners, l)
	}
	st.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}
