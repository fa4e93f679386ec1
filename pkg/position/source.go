// Package position acquires and distributes journey positions. A
// Source produces fixes; the Watcher adds retry with growing timeouts
// and a fixed fallback center so the engine always has somewhere to
// put the traveler.
package position

import (
	"context"
	"errors"
	"sync"

	"github.com/sunosaarthi/go-saarthi/pkg/nav"
)

var (
	// ErrNoFix is returned when a source has no position yet.
	ErrNoFix = errors.New("position: no fix available")

	// ErrClosed is returned when the source has been closed.
	ErrClosed = errors.New("position: source closed")
)

// Source produces position fixes.
type Source interface {
	// Current returns the present position, blocking until one is
	// available or ctx expires.
	Current(ctx context.Context) (nav.Position, error)

	// Watch streams position updates until ctx is canceled. The
	// returned channel is closed when the source stops.
	Watch(ctx context.Context) (<-chan nav.Position, error)

	// Close releases the source.
	Close() error
}

// PushSource is a Source fed by external callers, such as the gateway
// receiving browser geolocation updates.
type PushSource struct {
	mu     sync.RWMutex
	last   *nav.Position
	subs   map[int]chan nav.Position
	nextID int
	closed bool
}

var _ Source = (*PushSource)(nil)

// NewPushSource creates an empty push source.
func NewPushSource() *PushSource {
	return &PushSource{subs: make(map[int]chan nav.Position)}
}

// Push records a fix and fans it out to watchers. Watchers that have
// fallen behind miss updates rather than blocking the pusher.
func (s *PushSource) Push(pos nav.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	p := pos
	s.last = &p
	for _, ch := range s.subs {
		select {
		case ch <- pos:
		default:
		}
	}
}

// Current returns the most recent fix, or ErrNoFix when nothing has
// been pushed yet.
func (s *PushSource) Current(ctx context.Context) (nav.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nav.Position{}, ErrClosed
	}
	if s.last == nil {
		return nav.Position{}, ErrNoFix
	}
	return *s.last, nil
}

// Watch streams pushed fixes until ctx is canceled.
func (s *PushSource) Watch(ctx context.Context) (<-chan nav.Position, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	id := s.nextID
	s.nextID++
	ch := make(chan nav.Position, 16)
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}()
	return ch, nil
}

// Close stops the source and closes all watcher channels.
func (s *PushSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	return nil
}
