package position

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/geo"
	"github.com/sunosaarthi/go-saarthi/pkg/nav"
)

// Config holds watcher settings.
type Config struct {
	// MaxAttempts is how many times Acquire asks the source for a
	// fix before falling back.
	MaxAttempts int

	// BaseTimeout is the first attempt's timeout. Each further
	// attempt waits one BaseTimeout longer.
	BaseTimeout time.Duration

	// RetryDelay is the pause before re-subscribing after a watch
	// stream fails.
	RetryDelay time.Duration

	// Fallback is the position reported when no fix can be acquired.
	Fallback geo.LatLng
}

// DefaultConfig returns watcher defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseTimeout: 5 * time.Second,
		RetryDelay:  2 * time.Second,
		Fallback:    nav.DefaultCenter,
	}
}

// Option configures the watcher.
type Option func(*Config)

// WithMaxAttempts sets the acquire attempt count.
func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

// WithBaseTimeout sets the first attempt timeout.
func WithBaseTimeout(d time.Duration) Option {
	return func(c *Config) { c.BaseTimeout = d }
}

// WithRetryDelay sets the watch re-subscribe delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) { c.RetryDelay = d }
}

// WithFallback sets the fallback center.
func WithFallback(p geo.LatLng) Option {
	return func(c *Config) { c.Fallback = p }
}

// Watcher wraps a Source with retry and fallback behavior.
type Watcher struct {
	source Source
	config *Config
	logger *slog.Logger

	mu      sync.RWMutex
	last    nav.Position
	haveFix bool
}

// NewWatcher creates a watcher over source.
func NewWatcher(source Source, opts ...Option) *Watcher {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Watcher{
		source: source,
		config: config,
		logger: log.With("component", "position.watcher"),
	}
}

// Acquire obtains an initial fix. Each attempt gets a longer timeout;
// after MaxAttempts failures the configured fallback center is
// returned so callers always have a usable position.
func (w *Watcher) Acquire(ctx context.Context) nav.Position {
	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		timeout := w.config.BaseTimeout * time.Duration(attempt)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		pos, err := w.source.Current(attemptCtx)
		cancel()
		if err == nil {
			w.store(pos)
			return pos
		}
		w.logger.Warn("position fix failed",
			"attempt", attempt,
			"timeout", timeout,
			"error", err)
		if ctx.Err() != nil {
			break
		}
	}

	w.logger.Warn("no fix acquired, using fallback center",
		"lat", w.config.Fallback.Lat,
		"lng", w.config.Fallback.Lng)
	return nav.Position{
		LatLng:    w.config.Fallback,
		Timestamp: time.Now(),
	}
}

// Watch forwards source updates to fn until ctx is canceled,
// re-subscribing with a delay when the stream fails or closes.
func (w *Watcher) Watch(ctx context.Context, fn func(nav.Position)) error {
	for {
		ch, err := w.source.Watch(ctx)
		if err != nil {
			w.logger.Warn("watch subscribe failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.config.RetryDelay):
				continue
			}
		}

	stream:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case pos, ok := <-ch:
				if !ok {
					break stream
				}
				w.store(pos)
				fn(pos)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.config.RetryDelay):
		}
	}
}

// LastKnown returns the most recent real fix, if any. Fallback
// positions are never stored here.
func (w *Watcher) LastKnown() (nav.Position, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.haveFix
}

func (w *Watcher) store(pos nav.Position) {
	w.mu.Lock()
	w.last = pos
	w.haveFix = true
	w.mu.Unlock()
}
