package position

import (
	"context"
	"sync"

	"github.com/sunosaarthi/go-saarthi/pkg/nav"
)

// MockSource is a Source for testing. It serves a fixed position and
// can be told to fail the first N Current calls.
type MockSource struct {
	mu sync.Mutex

	// Position is returned by Current once failures are exhausted.
	Position nav.Position

	// FailCount makes the first N Current calls return ErrNoFix.
	FailCount int

	// CurrentFunc overrides Current entirely when set.
	CurrentFunc func(ctx context.Context) (nav.Position, error)

	calls  int
	stream chan nav.Position
	closed bool
}

var _ Source = (*MockSource)(nil)

// NewMockSource creates a mock source serving pos.
func NewMockSource(pos nav.Position) *MockSource {
	return &MockSource{
		Position: pos,
		stream:   make(chan nav.Position, 16),
	}
}

// Current returns the configured position, honoring FailCount.
func (m *MockSource) Current(ctx context.Context) (nav.Position, error) {
	m.mu.Lock()
	m.calls++
	fn := m.CurrentFunc
	shouldFail := m.calls <= m.FailCount
	pos := m.Position
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	if shouldFail {
		return nav.Position{}, ErrNoFix
	}
	return pos, nil
}

// Watch returns the mock stream. Feed it with Emit.
func (m *MockSource) Watch(ctx context.Context) (<-chan nav.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.stream, nil
}

// Emit pushes a position to watchers.
func (m *MockSource) Emit(pos nav.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.stream <- pos
}

// CurrentCalls returns how many times Current was called.
func (m *MockSource) CurrentCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close stops the mock stream.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.stream)
	return nil
}
