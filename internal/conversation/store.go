package conversation

import (
	"context"
	"sync"
	"time"
)

// Store keeps open dialogues keyed by phone. Get returns (nil, nil) when the
// phone has no open session. Sessions held in memory are lost on restart.
type Store interface {
	Get(ctx context.Context, phone string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, phone string) error
	Sweep(ctx context.Context) (int, error)
}

// MemoryStore is a process-local Store with idle expiry.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	idleTTL  time.Duration
	now      func() time.Time
}

// NewMemoryStore builds an in-memory store. A non-positive idleTTL keeps
// sessions until they are deleted.
func NewMemoryStore(idleTTL time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[string]Session),
		idleTTL:  idleTTL,
		now:      now,
	}
}

func (m *MemoryStore) Get(_ context.Context, phone string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[phone]
	if !ok {
		return nil, nil
	}
	if m.expired(sess) {
		delete(m.sessions, phone)
		return nil, nil
	}
	return &sess, nil
}

func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *sess
	stored.UpdatedAt = m.now()
	m.sessions[sess.Phone] = stored
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, phone)
	return nil
}

// Sweep evicts sessions idle longer than the store's TTL.
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for phone, sess := range m.sessions {
		if m.expired(sess) {
			delete(m.sessions, phone)
			evicted++
		}
	}
	return evicted, nil
}

// Len reports how many sessions are held.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) expired(sess Session) bool {
	return m.idleTTL > 0 && m.now().Sub(sess.UpdatedAt) > m.idleTTL
}
