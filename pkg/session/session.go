// Package session tracks conversational state for the query endpoint.
//
// Sessions are in-memory only. A session carries a bounded window of
// recent turns so follow-up questions ("and how long will that take?")
// can be answered with context. Restarting the gateway forgets all
// conversations.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxHistoryTurns bounds the per-session turn window. Older turns fall
// off; the prompt only ever includes the tail anyway.
const maxHistoryTurns = 20

// Turn is one utterance in a conversation.
type Turn struct {
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Session is one conversation with the co-passenger.
type Session struct {
	mu         sync.RWMutex
	id         string
	createdAt  time.Time
	lastActive time.Time
	turns      []Turn
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		createdAt:  now,
		lastActive: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// LastActive returns when the session last recorded activity.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Touch marks the session as active now.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// AddTurn appends an utterance and marks the session active. The turn
// window is capped; the oldest turns are dropped first.
func (s *Session) AddTurn(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	s.turns = append(s.turns, Turn{Role: role, Text: text, Time: s.lastActive})
	if len(s.turns) > maxHistoryTurns {
		s.turns = s.turns[len(s.turns)-maxHistoryTurns:]
	}
}

// Turns returns a copy of the recorded turns, oldest first.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// TurnCount returns the number of turns currently held.
func (s *Session) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Manager is the in-memory session registry.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the session with the given id, if present.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate returns the existing session for id, or registers a new
// one. An empty id mints a fresh UUID, so callers can always pass
// through whatever the client sent.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return s
		}
	} else {
		id = uuid.New().String()
	}

	s := newSession(id)
	m.sessions[id] = s
	return s
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the registered session ids, in no particular order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Prune drops sessions idle for longer than maxIdle and returns how
// many were removed.
func (m *Manager) Prune(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	dropped := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}
