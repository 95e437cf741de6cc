package auth

import (
	"sync"
	"time"
)

// MemorySessionStore is a thread-safe in-memory SessionStore.
// Sessions are lost on server restart.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string]Session)}
}

func (s *MemorySessionStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	session, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if time.Now().After(session.ExpiresAt) {
		s.Delete(id)
		return Session{}, false
	}
	return session, true
}

func (s *MemorySessionStore) Put(session Session) {
	s.mu.Lock()
	s.data[session.ID] = session
	s.mu.Unlock()
}

func (s *MemorySessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
}

func (s *MemorySessionStore) All() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	sessions := make([]Session, 0, len(s.data))
	for _, session := range s.data {
		if now.After(session.ExpiresAt) {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions
}
