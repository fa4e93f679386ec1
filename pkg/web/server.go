// Package web is the HTTP and WebSocket gateway. It serves the REST
// endpoints for wake detection, assistant queries and navigation
// lookups, and streams engine events to dashboard clients over two
// hub-backed sockets (/ws/events, /ws/state).
package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/hub"
	"github.com/sunosaarthi/go-saarthi/pkg/llm"
	"github.com/sunosaarthi/go-saarthi/pkg/nav"
	"github.com/sunosaarthi/go-saarthi/pkg/protocol"
	"github.com/sunosaarthi/go-saarthi/pkg/session"
	"github.com/sunosaarthi/go-saarthi/pkg/wake"
)

// maxLogEntries bounds the debug log ring served by /api/logs.
const maxLogEntries = 100

// LogEntry is one line in the gateway's debug log ring.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

// Server is the gateway server.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	sessions *session.Manager
	llm      llm.Provider
	nav      nav.Provider
	wake     wake.Detector

	// API key presence reported by /health, name → configured.
	keys map[string]bool

	eventHub *hub.Hub
	stateHub *hub.Hub

	// OnDestinationChange fires when an assistant reply changes the
	// destination, after the HTTP response metadata is assembled.
	OnDestinationChange func(destination string)

	state   protocol.StateData
	stateMu sync.RWMutex

	logs   []LogEntry
	logsMu sync.RWMutex
}

// Option configures the server.
type Option func(*Server)

// WithLLM sets the completion provider behind /api/llm/query.
func WithLLM(p llm.Provider) Option {
	return func(s *Server) { s.llm = p }
}

// WithNav sets the navigation provider behind /api/navigation/*.
func WithNav(p nav.Provider) Option {
	return func(s *Server) { s.nav = p }
}

// WithWake sets the wake word detector behind /api/wake/detect.
func WithWake(d wake.Detector) Option {
	return func(s *Server) { s.wake = d }
}

// WithSessions sets the conversation session registry.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) { s.sessions = m }
}

// WithKeyStatus reports which API keys are configured on /health.
func WithKeyStatus(keys map[string]bool) Option {
	return func(s *Server) { s.keys = keys }
}

// New creates a gateway server listening on addr. Without options it
// runs entirely on the offline providers, so a keyless deployment
// still answers every endpoint.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		logger:   log.With("component", "web.server"),
		sessions: session.NewManager(),
		llm:      llm.NewMock(),
		nav:      nav.NewMockProvider(),
		wake:     wake.NewLocal(),
		keys:     map[string]bool{},
		eventHub: hub.New("events"),
		stateHub: hub.New("state"),
		logs:     make([]LogEntry, 0, maxLogEntries),
		state:    protocol.StateData{Phase: "idle"},
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "Suno Saarthi Gateway",
		DisableStartupMessage: true,
	})

	// CORS for the browser dashboard
	app.Use(cors.New())

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/wake/detect", s.handleWakeDetect)
	api.Post("/llm/query", s.handleLLMQuery)
	api.Get("/navigation/directions", s.handleDirections)
	api.Get("/navigation/geocode", s.handleGeocode)
	api.Get("/navigation/places", s.handlePlaces)
	api.Get("/navigation/traffic", s.handleTraffic)
	api.Get("/state", s.handleState)
	api.Get("/logs", s.handleLogs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// Start runs the broadcast hubs and serves HTTP. It blocks until
// Shutdown is called or the listener fails.
func (s *Server) Start() error {
	go s.eventHub.Run()
	go s.stateHub.Run()

	s.logger.Info("gateway listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.logger.Info("gateway shutting down")
	return s.app.Shutdown()
}

// App exposes the fiber app, mainly for handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// EventHub returns the hub behind /ws/events.
func (s *Server) EventHub() *hub.Hub {
	return s.eventHub
}

// StateHub returns the hub behind /ws/state.
func (s *Server) StateHub() *hub.Hub {
	return s.stateHub
}

// State returns a copy of the current gateway state.
func (s *Server) State() protocol.StateData {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// UpdateState applies a mutation to the gateway state and broadcasts
// the result to state subscribers.
func (s *Server) UpdateState(update func(*protocol.StateData)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	if msg, err := protocol.NewStateMessage(state); err == nil {
		s.stateHub.BroadcastEvent(msg)
	}
}

// PublishEvent broadcasts a protocol message on the events stream.
func (s *Server) PublishEvent(msg *protocol.Message) {
	s.eventHub.BroadcastEvent(msg)
}

// AddLog appends an entry to the debug ring and streams it to event
// subscribers. logType follows the dashboard's categories (info,
// wake_word, command, error).
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Timestamp: time.Now().Format("2006-01-02 15:04:05.000"),
		Message:   message,
		Type:      logType,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	level := "info"
	if logType == "error" {
		level = "error"
	}
	if msg, err := protocol.NewLogMessage(level, logType, message); err == nil {
		s.eventHub.BroadcastEvent(msg)
	}
}

// Logs returns a copy of the debug log ring, oldest first.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// handleEventsWS streams engine events to a dashboard client.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.eventHub, c)
	client.Run()
}

// handleStateWS streams state snapshots. The current state is sent
// immediately so late subscribers render without waiting for a change.
func (s *Server) handleStateWS(c *websocket.Conn) {
	s.stateMu.RLock()
	state := s.state
	s.stateMu.RUnlock()

	if msg, err := protocol.NewStateMessage(state); err == nil {
		if data, err := msg.Bytes(); err == nil {
			c.WriteMessage(websocket.TextMessage, data)
		}
	}

	client := hub.NewClient(s.stateHub, c)
	client.Run()
}
