package booking

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session   *Session
	touchedAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions idle longer than the
// TTL are treated as absent and removed by Run.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store; ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, identity string) (*Session, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[identity]
	s.mu.RUnlock()
	if !ok || s.expired(entry) {
		return nil, false, nil
	}
	return entry.session.Clone(), true, nil
}

func (s *MemoryStore) Put(_ context.Context, identity string, session *Session) error {
	s.mu.Lock()
	s.sessions[identity] = memoryEntry{session: session.Clone(), touchedAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	delete(s.sessions, identity)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Has(ctx context.Context, identity string) (bool, error) {
	_, ok, err := s.Get(ctx, identity)
	return ok, err
}

// Len reports stored sessions, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.sessions {
		if s.expired(entry) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on an interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return s.ttl > 0 && s.now().Sub(entry.touchedAt) > s.ttl
}
