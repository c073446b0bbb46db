package session

import (
	"fmt"
	"sync"

	"github.com/hupe1980/webdevchat/core"
)

// InMemoryStore is a volatile SessionStore implementation storing sessions in
// a process local map. It is safe for concurrent access and best suited for
// tests, the terminal UI and single-instance servers. Returned sessions are
// clones so callers cannot mutate internal state.
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*core.Session
	maxSessions int
	order       []string
}

// Options configures an InMemoryStore.
type Options struct {
	// MaxSessions bounds the number of retained sessions; the oldest session is
	// evicted first. Zero means unbounded.
	MaxSessions int
}

// NewInMemoryStore constructs an empty in‑memory session store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{sessions: make(map[string]*core.Session), maxSessions: opts.MaxSessions}
}

// Get returns a clone of the stored session. An unknown id yields a fresh,
// empty session that is not retained; only AppendEvent allocates.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id must not be empty")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}
	return core.NewSession(sessionID), nil
}

// AppendEvent adds an event to an existing or newly created session.
func (s *InMemoryStore) AppendEvent(sessionID string, ev core.Event) error {
	if sessionID == "" {
		return fmt.Errorf("session id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(sessionID).AddEvent(ev)
	return nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil
	}
	delete(s.sessions, sessionID)
	for i, id := range s.order {
		if id == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of retained sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// getOrCreateLocked returns the stored session, allocating (and possibly
// evicting the oldest) when missing; caller must hold the write lock.
func (s *InMemoryStore) getOrCreateLocked(sessionID string) *core.Session {
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	if s.maxSessions > 0 && len(s.order) >= s.maxSessions {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.sessions, oldest)
	}
	sess := core.NewSession(sessionID)
	s.sessions[sessionID] = sess
	s.order = append(s.order, sessionID)
	return sess
}
