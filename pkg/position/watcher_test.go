package position

import (
	"context"
	"testing"
	"time"

	"github.com/sunosaarthi/go-saarthi/pkg/geo"
	"github.com/sunosaarthi/go-saarthi/pkg/nav"
)

var testFix = nav.Position{
	LatLng:    geo.LatLng{Lat: 28.6139, Lng: 77.2090},
	Accuracy:  10,
	Timestamp: time.Now(),
}

func TestAcquireFirstTry(t *testing.T) {
	source := NewMockSource(testFix)
	watcher := NewWatcher(source, WithBaseTimeout(50*time.Millisecond))

	pos := watcher.Acquire(context.Background())
	if pos.LatLng != testFix.LatLng {
		t.Errorf("Acquire() = %+v, want %+v", pos.LatLng, testFix.LatLng)
	}
	if source.CurrentCalls() != 1 {
		t.Errorf("source saw %d calls, want 1", source.CurrentCalls())
	}
	if _, ok := watcher.LastKnown(); !ok {
		t.Error("LastKnown() has no fix after successful acquire")
	}
}

func TestAcquireRetries(t *testing.T) {
	source := NewMockSource(testFix)
	source.FailCount = 2
	watcher := NewWatcher(source, WithBaseTimeout(50*time.Millisecond))

	pos := watcher.Acquire(context.Background())
	if pos.LatLng != testFix.LatLng {
		t.Errorf("Acquire() = %+v, want fix %+v", pos.LatLng, testFix.LatLng)
	}
	if source.CurrentCalls() != 3 {
		t.Errorf("source saw %d calls, want 3", source.CurrentCalls())
	}
}

func TestAcquireFallsBack(t *testing.T) {
	source := NewMockSource(testFix)
	source.FailCount = 10
	fallback := geo.LatLng{Lat: 12.9716, Lng: 77.5946}
	watcher := NewWatcher(source,
		WithBaseTimeout(10*time.Millisecond),
		WithMaxAttempts(3),
		WithFallback(fallback),
	)

	pos := watcher.Acquire(context.Background())
	if pos.LatLng != fallback {
		t.Errorf("Acquire() = %+v, want fallback %+v", pos.LatLng, fallback)
	}
	if source.CurrentCalls() != 3 {
		t.Errorf("source saw %d calls, want 3", source.CurrentCalls())
	}
	if _, ok := watcher.LastKnown(); ok {
		t.Error("LastKnown() reports a fix after fallback")
	}
}

func TestDefaultFallbackCenter(t *testing.T) {
	source := NewMockSource(testFix)
	source.FailCount = 10
	watcher := NewWatcher(source, WithBaseTimeout(10*time.Millisecond))

	pos := watcher.Acquire(context.Background())
	if pos.LatLng != nav.DefaultCenter {
		t.Errorf("fallback = %+v, want default center %+v", pos.LatLng, nav.DefaultCenter)
	}
}

func TestWatchForwardsUpdates(t *testing.T) {
	source := NewMockSource(testFix)
	watcher := NewWatcher(source, WithRetryDelay(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan nav.Position, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		watcher.Watch(ctx, func(pos nav.Position) { got <- pos })
	}()

	source.Emit(testFix)
	select {
	case pos := <-got:
		if pos.LatLng != testFix.LatLng {
			t.Errorf("forwarded %+v, want %+v", pos.LatLng, testFix.LatLng)
		}
	case <-time.After(time.Second):
		t.Fatal("no position forwarded")
	}

	if last, ok := watcher.LastKnown(); !ok || last.LatLng != testFix.LatLng {
		t.Errorf("LastKnown() = %+v, %v", last.LatLng, ok)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch() did not stop on cancel")
	}
}
