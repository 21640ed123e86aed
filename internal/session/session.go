// Package session keeps the single credential record a user logs in with.
//
// The web front end stores it server-side behind an opaque cookie id; the
// CLI keeps it in a file. Either way the record is handed explicitly to the
// code that talks to the API.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"cashcount/internal/core"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session is a logged-in user's credential record.
type Session struct {
	ID          string
	Credentials core.Credentials
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// New creates a session with a random id. A zero ttl never expires.
func New(creds core.Credentials, now time.Time, ttl time.Duration) Session {
	s := Session{
		ID:          uuid.NewString(),
		Credentials: creds,
		CreatedAt:   now.UTC(),
	}
	if ttl > 0 {
		s.ExpiresAt = s.CreatedAt.Add(ttl)
	}
	return s
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ValidID reports whether id looks like an id produced by New.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store persists sessions by id.
type Store interface {
	Save(ctx context.Context, s Session) error
	// Load returns ErrNotFound for unknown ids and ErrExpired for stale ones.
	Load(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a Store backed by a map. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}, now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Expired(m.now()) {
		_ = m.Delete(context.Background(), id)
		return Session{}, ErrExpired
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// PurgeExpired drops stale sessions and returns how many were removed.
func (m *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
