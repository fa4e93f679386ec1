package voice

import (
	"sync"

	"github.com/sunosaarthi/go-saarthi/pkg/command"
)

// Session holds the mutable interaction state shared between the
// controller goroutine and callers polling it. All methods are safe
// for concurrent use.
type Session struct {
	mu             sync.RWMutex
	id             string
	muted          bool
	processing     bool
	lastTranscript string
	lastResponse   *command.Response
	cycles         int
}

// ID returns the conversation session id, empty until the command
// processor adopts one from the backend.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) setID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// Muted reports whether spoken output is suppressed.
func (s *Session) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

func (s *Session) setMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

// Processing reports whether a command is mid-flight.
func (s *Session) Processing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processing
}

func (s *Session) setProcessing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = v
}

// LastTranscript returns the most recent accepted command transcript.
func (s *Session) LastTranscript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTranscript
}

func (s *Session) setLastTranscript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTranscript = text
}

// LastResponse returns the most recent response, nil before the first
// completed cycle.
func (s *Session) LastResponse() *command.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResponse
}

func (s *Session) setLastResponse(resp *command.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResponse = resp
}

// Cycles returns the number of completed wake→response cycles.
func (s *Session) Cycles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles
}

func (s *Session) bumpCycles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
}
