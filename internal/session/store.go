// Package session persists booking sessions between requests.
//
// Sessions are stored as JSON documents with a time-to-live. Every save is a
// compare-and-swap on Session.Version: a caller that read version N can only
// write if the stored session is still at version N, otherwise the save fails
// with domain.ErrConflict and the caller must reload.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/busops/ticket-counter/internal/domain"
)

// Store is the persistence contract for booking sessions.
// The service layer depends on this interface so it can run against the
// in-memory store in tests and single-instance deployments, and Redis
// everywhere else.
type Store interface {
	// Create stores a new session at version 1.
	Create(ctx context.Context, s *domain.Session) error

	// Get returns the session with the given id.
	// Returns domain.ErrNotFound if it does not exist or has expired.
	Get(ctx context.Context, id uuid.UUID) (domain.Session, error)

	// Save writes s if the stored version still equals s.Version, then
	// increments s.Version and refreshes the TTL.
	// Returns domain.ErrConflict on a version mismatch and domain.ErrNotFound
	// if the session is gone.
	Save(ctx context.Context, s *domain.Session) error

	// Delete removes a session. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type memEntry struct {
	version   int64
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Sessions are kept encoded so callers
// never share maps or slices with the stored copy.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	byID map[uuid.UUID]memEntry
}

// NewMemoryStore constructs a MemoryStore whose sessions expire after ttl of
// inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, byID: map[uuid.UUID]memEntry{}}
}

func (m *MemoryStore) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep()
	if _, ok := m.live(s.ID); ok {
		return fmt.Errorf("session.MemoryStore.Create: %w: session %s already exists", domain.ErrConflict, s.ID)
	}
	s.Version = 1
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session.MemoryStore.Create: encode: %w", err)
	}
	m.byID[s.ID] = memEntry{version: s.Version, data: data, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (domain.Session, error) {
	m.mu.Lock()
	e, ok := m.live(id)
	m.mu.Unlock()
	if !ok {
		return domain.Session{}, fmt.Errorf("session.MemoryStore.Get: %w", domain.ErrNotFound)
	}

	var s domain.Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return domain.Session{}, fmt.Errorf("session.MemoryStore.Get: decode: %w", err)
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(s.ID)
	if !ok {
		return fmt.Errorf("session.MemoryStore.Save: %w", domain.ErrNotFound)
	}
	if e.version != s.Version {
		return fmt.Errorf("session.MemoryStore.Save: %w", domain.ErrConflict)
	}

	next := *s
	next.Version++
	next.UpdatedAt = m.now().UTC()
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("session.MemoryStore.Save: encode: %w", err)
	}
	m.byID[s.ID] = memEntry{version: next.Version, data: data, expiresAt: m.now().Add(m.ttl)}
	s.Version, s.UpdatedAt = next.Version, next.UpdatedAt
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live(id); !ok {
		return fmt.Errorf("session.MemoryStore.Delete: %w", domain.ErrNotFound)
	}
	delete(m.byID, id)
	return nil
}

// live returns the entry for id, evicting it if it has expired.
// Callers must hold m.mu.
func (m *MemoryStore) live(id uuid.UUID) (memEntry, bool) {
	e, ok := m.byID[id]
	if !ok {
		return memEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.byID, id)
		return memEntry{}, false
	}
	return e, true
}

// sweep evicts every expired entry so abandoned sessions do not pile up.
// Callers must hold m.mu.
func (m *MemoryStore) sweep() {
	now := m.now()
	for id, e := range m.byID {
		if !now.Before(e.expiresAt) {
			delete(m.byID, id)
		}
	}
}
