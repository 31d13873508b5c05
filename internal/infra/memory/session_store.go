package memory

import (
	"sync"

	"prepsnap-quiz/internal/app"
	"prepsnap-quiz/internal/telemetry"
)

// SessionRegistry tracks live quiz sessions so they can be torn down together.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionRegistry) Add(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID()]; ok {
		return
	}
	s.sessions[session.ID()] = session
	telemetry.SessionRegistered(1)
}

func (s *SessionRegistry) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Remove closes and forgets the session.
func (s *SessionRegistry) Remove(id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		telemetry.SessionRegistered(-1)
	}
	s.mu.Unlock()

	if ok {
		session.Close()
	}
}

func (s *SessionRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll closes every session, stopping their countdowns.
func (s *SessionRegistry) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*app.Session)
	telemetry.SessionRegistered(-len(sessions))
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
