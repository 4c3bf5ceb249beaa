// internal/store/memory.go
//
// In-memory implementation of the Store interface for hosted sessions.
//
// Characteristics:
//   - Stores *session.Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts; finished games live on in the results DB.
//   - Sweep closes and drops sessions that have been idle longer than a cutoff.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/memory/internal/session"
)

// ErrNotFound is returned by Get for unknown or swept session IDs.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for live sessions.
type Store interface {
	// Save persists or replaces a session.
	Save(ctx context.Context, s *session.Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*session.Session, error)

	// Delete closes and removes a session. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Sweep closes and removes sessions last used before cutoff, returning how many went.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	onDrop   func(*session.Session)
}

// Option customises the memory store.
type Option func(*memory)

// OnDrop registers a callback run after a session is deleted or swept.
func OnDrop(fn func(*session.Session)) Option {
	return func(m *memory) { m.onDrop = fn }
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore(opts ...Option) Store {
	m := &memory{sessions: make(map[string]*session.Session)}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *memory) Save(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.drop(s)
	}
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []*session.Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.drop(s)
	}
	return len(stale), ctx.Err()
}

func (m *memory) drop(s *session.Session) {
	s.Close()
	if m.onDrop != nil {
		m.onDrop(s)
	}
}
