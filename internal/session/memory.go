package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process session store with idle-TTL eviction.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a memory store. A background janitor evicts
// sessions idle longer than ttl; ttl <= 0 disables eviction.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor()
	}
	return s
}

// Get returns the session for key, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}
	if s.ttl > 0 && time.Since(sess.UpdatedAt) > s.ttl {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

// Put stores a copy of the session and refreshes its idle timestamp.
func (s *MemoryStore) Put(ctx context.Context, sess *Session) error {
	cp := *sess
	cp.UpdatedAt = time.Now()
	s.mu.Lock()
	s.sessions[cp.Key()] = &cp
	s.mu.Unlock()
	return nil
}

// Delete removes the session for key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
	return nil
}

// Close stops the janitor.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl)
			s.mu.Lock()
			for key, sess := range s.sessions {
				if sess.UpdatedAt.Before(cutoff) {
					delete(s.sessions, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
