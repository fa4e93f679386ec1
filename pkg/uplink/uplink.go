// Package uplink streams engine events to a remote collector over a
// WebSocket connection.
//
// The uplink is fire-and-forget: events are queued locally and
// drained by a single writer goroutine that dials, redials with
// capped exponential backoff, and keeps the connection alive with
// pings. A full queue drops the newest event rather than blocking
// the engine.
package uplink

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/protocol"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

// Sentinel errors.
var (
	ErrMissingURL     = errors.New("uplink: url required")
	ErrAlreadyRunning = errors.New("uplink: already running")
)

// Config holds uplink tuning knobs.
type Config struct {
	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration

	// ReconnectDelay is the initial redial delay; it doubles per
	// failed attempt up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	// QueueSize is the outbound event buffer.
	QueueSize int

	Logger *slog.Logger
}

// Option is a functional option for configuring the uplink.
type Option func(*Config)

// WithHandshakeTimeout sets the dial timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

// WithReconnectDelay sets the initial and maximum redial delays.
func WithReconnectDelay(initial, max time.Duration) Option {
	return func(c *Config) {
		c.ReconnectDelay = initial
		c.MaxReconnectDelay = max
	}
}

// WithQueueSize sets the outbound buffer size.
func WithQueueSize(n int) Option {
	return func(c *Config) { c.QueueSize = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the default uplink configuration.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout:  10 * time.Second,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		QueueSize:         256,
		Logger:            slog.Default(),
	}
}

// Stats is a point-in-time uplink counters snapshot.
type Stats struct {
	Connected bool   `json:"connected"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
}

// Uplink is an outbound event stream to a collector URL.
type Uplink struct {
	url    string
	config *Config
	logger *slog.Logger

	send chan []byte

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New creates an uplink for the given ws:// or wss:// URL.
func New(url string, opts ...Option) (*Uplink, error) {
	if url == "" {
		return nil, ErrMissingURL
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Uplink{
		url:    url,
		config: cfg,
		logger: log.With("component", "uplink"),
		send:   make(chan []byte, cfg.QueueSize),
	}, nil
}

// Start launches the connection loop. Events queued before Start are
// delivered once the first connection is up.
func (u *Uplink) Start(ctx context.Context) error {
	u.mu.Lock()
	if u.running {
		u.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	u.running = true
	u.cancel = cancel
	u.done = make(chan struct{})
	done := u.done
	u.mu.Unlock()

	u.logger.Info("uplink starting", "url", u.url)

	go func() {
		defer close(done)
		u.run(runCtx)
	}()
	return nil
}

// Stop tears down the connection loop and waits for it to exit.
func (u *Uplink) Stop() {
	u.mu.Lock()
	cancel := u.cancel
	done := u.done
	u.running = false
	u.cancel = nil
	u.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	u.logger.Info("uplink stopped")
}

// Send queues a protocol message for delivery. A full queue drops the
// message and bumps the dropped counter.
func (u *Uplink) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	select {
	case u.send <- data:
	default:
		u.dropped.Add(1)
		u.logger.Debug("uplink queue full, dropping event", "type", msg.Type)
	}
	return nil
}

// Connected reports whether a connection is currently up.
func (u *Uplink) Connected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn != nil
}

// Stats returns the uplink counters.
func (u *Uplink) Stats() Stats {
	return Stats{
		Connected: u.Connected(),
		Sent:      u.sent.Load(),
		Dropped:   u.dropped.Load(),
	}
}

// run dials and pumps until the context ends, redialing on failure.
func (u *Uplink) run(ctx context.Context) {
	delay := u.config.ReconnectDelay
	for {
		conn, err := u.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			u.logger.Warn("uplink dial failed, retrying",
				"delay", delay,
				"error", err)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay *= 2
			if delay > u.config.MaxReconnectDelay {
				delay = u.config.MaxReconnectDelay
			}
			continue
		}
		delay = u.config.ReconnectDelay

		u.setConn(conn)
		u.logger.Info("uplink connected", "url", u.url)

		err = u.pump(ctx, conn)
		u.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		u.logger.Warn("uplink disconnected, reconnecting", "error", err)
	}
}

func (u *Uplink) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: u.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, u.url, nil)
	return conn, err
}

func (u *Uplink) setConn(conn *websocket.Conn) {
	u.mu.Lock()
	u.conn = conn
	u.mu.Unlock()
}

// pump drains the queue into the connection until it dies.
func (u *Uplink) pump(ctx context.Context, conn *websocket.Conn) error {
	readErr := make(chan error, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			// Collectors don't talk back; reading detects closure
			// and services pong frames.
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(writeWait)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				deadline)
			return ctx.Err()

		case err := <-readErr:
			return err

		case data := <-u.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
			u.sent.Add(1)

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

// sleepCtx sleeps for d, returning false if the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
