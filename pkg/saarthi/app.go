package saarthi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/llm"
	"github.com/sunosaarthi/go-saarthi/pkg/nav"
	"github.com/sunosaarthi/go-saarthi/pkg/position"
	"github.com/sunosaarthi/go-saarthi/pkg/progress"
	"github.com/sunosaarthi/go-saarthi/pkg/protocol"
	"github.com/sunosaarthi/go-saarthi/pkg/session"
	"github.com/sunosaarthi/go-saarthi/pkg/sim"
	"github.com/sunosaarthi/go-saarthi/pkg/uplink"
	"github.com/sunosaarthi/go-saarthi/pkg/wake"
	"github.com/sunosaarthi/go-saarthi/pkg/web"
)

// ErrNotInitialized is returned by Run before Init has succeeded.
var ErrNotInitialized = errors.New("saarthi: app not initialized")

// Session housekeeping cadence.
const (
	sessionPruneInterval = 10 * time.Minute
	sessionMaxIdle       = 30 * time.Minute
)

// rerouteTimeout bounds the geocode and directions lookups for one
// destination change.
const rerouteTimeout = 30 * time.Second

// App is the main application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	// Providers
	llm llm.Provider
	nav nav.Provider

	// Conversation state
	sessions *session.Manager

	// Gateway
	server *web.Server
	uplink *uplink.Uplink

	// Drive tracking
	tracker *progress.Tracker
	sim     *sim.Simulator
	watcher *position.Watcher

	mu      sync.Mutex
	runCtx  context.Context
	lastPos *nav.Position
}

// New creates the application with the given configuration.
func New(cfg Config) (*App, error) {
	// Apply environment overrides
	cfg.LoadEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logLevel := "info"
	if cfg.Debug {
		logLevel = "debug"
	}
	log.Init(logLevel)

	return &App{
		config: cfg,
		logger: log.With("component", "saarthi.app"),
	}, nil
}

// Config returns the effective configuration.
func (a *App) Config() Config {
	return a.config
}

// Init builds all components.
// Call this after New() and before Run().
func (a *App) Init() error {
	a.sessions = session.NewManager()

	if err := a.initLLM(); err != nil {
		return fmt.Errorf("llm init: %w", err)
	}
	if err := a.initNav(); err != nil {
		return fmt.Errorf("nav init: %w", err)
	}
	a.initTracking()

	if err := a.initGateway(); err != nil {
		return fmt.Errorf("gateway init: %w", err)
	}
	return nil
}

// initLLM builds the completion provider chain from the configured
// keys. Without any key the canned offline provider answers alone, so
// genuine provider failures still surface the spoken fallback when a
// real chain is configured.
func (a *App) initLLM() error {
	shared := []llm.Option{
		llm.WithMaxTokens(a.config.LLMMaxTokens),
		llm.WithTemperature(a.config.LLMTemperature),
	}
	if a.config.LLMModel != "" {
		shared = append(shared, llm.WithModel(a.config.LLMModel))
	}
	if a.config.LLMBaseURL != "" {
		shared = append(shared, llm.WithBaseURL(a.config.LLMBaseURL))
	}

	var providers []llm.Provider
	if a.config.GeminiKey != "" {
		opts := append([]llm.Option{llm.WithAPIKey(a.config.GeminiKey)}, shared...)
		gemini, err := llm.NewGemini(opts...)
		if err != nil {
			return err
		}
		providers = append(providers, gemini)
	}
	if a.config.OpenAIKey != "" {
		opts := append([]llm.Option{llm.WithAPIKey(a.config.OpenAIKey)}, shared...)
		openai, err := llm.NewOpenAI(opts...)
		if err != nil {
			return err
		}
		providers = append(providers, openai)
	}

	if len(providers) == 0 {
		a.logger.Warn("no LLM API key configured, using canned replies")
		a.llm = llm.NewMock()
		return nil
	}

	chain, err := llm.NewChain(providers...)
	if err != nil {
		return err
	}
	a.llm = chain
	return nil
}

// initNav builds the navigation chain: Google when a key is present,
// always backed by the deterministic offline provider.
func (a *App) initNav() error {
	mock := nav.NewMockProvider()
	if a.config.GoogleMapsKey == "" {
		a.logger.Warn("no Google Maps API key configured, using offline routes")
		a.nav = mock
		return nil
	}

	google, err := nav.NewGoogleProvider(nav.WithAPIKey(a.config.GoogleMapsKey))
	if err != nil {
		return err
	}
	a.nav = nav.NewChain(google, mock)
	return nil
}

func (a *App) initTracking() {
	a.tracker = progress.New(progress.Callbacks{
		OnManeuverNear: a.onManeuverNear,
		OnStepAdvance:  a.onStepAdvance,
		OnArrived:      a.onArrived,
		OnStateChange:  a.onTrackingState,
	})
	a.sim = sim.New(a.onPosition)
}

func (a *App) initGateway() error {
	a.server = web.New(a.config.Addr(),
		web.WithLLM(a.llm),
		web.WithNav(a.nav),
		web.WithSessions(a.sessions),
		web.WithWake(wake.NewLocal()),
		web.WithKeyStatus(map[string]bool{
			"GOOGLE_MAPS_API_KEY": a.config.GoogleMapsKey != "",
			"GEMINI_API_KEY":      a.config.GeminiKey != "",
			"OPENAI_API_KEY":      a.config.OpenAIKey != "",
		}),
	)
	a.server.OnDestinationChange = a.onDestinationChange

	if a.config.UplinkURL != "" {
		u, err := uplink.New(a.config.UplinkURL)
		if err != nil {
			return err
		}
		a.uplink = u
	}
	return nil
}

// UsePositionSource attaches a live position feed. Fixes flow into
// the tracker exactly like simulated ones; the watcher re-subscribes
// when the stream fails and the default center stands in until the
// first fix.
func (a *App) UsePositionSource(src position.Source) {
	a.watcher = position.NewWatcher(src)
}

// Run starts the gateway and blocks until ctx is cancelled or the
// listener fails.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return ErrNotInitialized
	}

	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	if a.uplink != nil {
		if err := a.uplink.Start(ctx); err != nil {
			return err
		}
	}

	if a.watcher != nil {
		initial := a.watcher.Acquire(ctx)
		a.storePosition(initial)
		go func() { _ = a.watcher.Watch(ctx, a.onPosition) }()
	}

	go a.pruneSessions(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	a.logger.Info("saarthi running",
		"addr", a.config.Addr(),
		"llm", a.llm.Name(),
		"nav", a.nav.Name(),
		"simulate", a.config.Simulate)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() {
	if a.sim != nil {
		a.sim.Stop()
	}
	if a.uplink != nil {
		a.uplink.Stop()
	}
	if a.server != nil {
		a.server.Shutdown()
	}
	if a.llm != nil {
		a.llm.Close()
	}
	if a.nav != nil {
		a.nav.Close()
	}
	a.logger.Info("saarthi stopped")
}

// Server returns the gateway server.
func (a *App) Server() *web.Server {
	return a.server
}

// Tracker returns the route tracker.
func (a *App) Tracker() *progress.Tracker {
	return a.tracker
}

// Simulator returns the drive simulator.
func (a *App) Simulator() *sim.Simulator {
	return a.sim
}

// onDestinationChange runs a reroute off the gateway's request
// goroutine when an assistant reply changes the destination.
func (a *App) onDestinationChange(destination string) {
	ctx, cancel := context.WithTimeout(a.runContext(), rerouteTimeout)
	defer cancel()

	if err := a.Reroute(ctx, destination); err != nil {
		a.logger.Error("reroute failed", "destination", destination, "error", err)
		a.server.AddLog("error", "reroute failed: "+err.Error())
	}
}

// Reroute resolves destination, fetches directions from the best
// known position, and attaches the route to the tracker. With
// simulation enabled the drive restarts from the route's first
// coordinate.
func (a *App) Reroute(ctx context.Context, destination string) error {
	geocoded, err := a.nav.Geocode(ctx, destination)
	if err != nil {
		return fmt.Errorf("geocode %q: %w", destination, err)
	}

	resp, err := a.nav.Directions(ctx, &nav.DirectionsRequest{
		Origin:      a.origin(),
		Destination: nav.FormatLatLng(geocoded.Location),
		Mode:        a.config.Mode,
	})
	if err != nil {
		return fmt.Errorf("directions to %q: %w", destination, err)
	}
	route := resp.Best()
	if route == nil {
		return fmt.Errorf("saarthi: no route to %q", destination)
	}

	a.tracker.Attach(route)

	tracking := trackingInfo(a.tracker.Snapshot())
	a.server.UpdateState(func(s *protocol.StateData) {
		s.Destination = destination
		s.Running = true
		s.Tracking = &tracking
	})
	a.publishRoute(destination, route)

	distance := route.TotalDistanceMeters()
	duration := int(route.TotalDuration().Seconds())
	a.server.AddLog("info", fmt.Sprintf("destination set to %q (%s, %s)",
		destination, nav.FormatDistance(distance), nav.FormatDuration(duration)))
	a.logger.Info("route attached",
		"destination", destination,
		"distance_m", distance,
		"duration_s", duration)

	if a.config.Simulate {
		if err := a.sim.Start(a.runContext(), route, sim.MinSpeedMultiplier); err != nil {
			return fmt.Errorf("simulator: %w", err)
		}
	}
	return nil
}

// onPosition bridges position fixes into the tracker and the event
// stream. Both the simulator and a live watcher deliver here.
func (a *App) onPosition(pos nav.Position) {
	a.storePosition(pos)
	a.tracker.OnPosition(pos)

	state := a.tracker.Snapshot()
	a.publish(protocol.NewPositionMessage(pos.Lat, pos.Lng, pos.Heading, pos.Speed, state.StepIndex))
}

func (a *App) storePosition(pos nav.Position) {
	a.mu.Lock()
	a.lastPos = &pos
	a.mu.Unlock()
}

// origin is the best known vehicle position, falling back to the
// default map center before any fix arrives.
func (a *App) origin() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastPos != nil {
		return nav.FormatLatLng(a.lastPos.LatLng)
	}
	return nav.FormatLatLng(nav.DefaultCenter)
}

func (a *App) runContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runCtx != nil {
		return a.runCtx
	}
	return context.Background()
}

func (a *App) onManeuverNear(ev progress.ManeuverEvent) {
	text := announceText(ev)
	a.publish(protocol.NewAnnouncementMessage(text, ev.StepIndex, ev.DistanceMeters))
	a.server.AddLog("info", "announce: "+text)
}

func (a *App) onStepAdvance(ev progress.ManeuverEvent) {
	a.logger.Debug("step advanced", "step", ev.StepIndex, "instruction", ev.Step.Instruction())
}

func (a *App) onArrived() {
	state := a.tracker.Snapshot()
	text := "You have arrived at your destination."
	a.publish(protocol.NewAnnouncementMessage(text, state.StepIndex, 0))
	a.server.AddLog("info", "arrived at destination")
}

func (a *App) onTrackingState(state progress.TrackingState) {
	tracking := trackingInfo(state)
	status := a.sim.Status()

	a.server.UpdateState(func(s *protocol.StateData) {
		s.Tracking = &tracking
		if a.config.Simulate {
			s.Simulation = &protocol.SimulationInfo{
				Running: status.Running,
				Paused:  status.Paused,
				Speed:   status.Multiplier,
			}
		}
	})
}

// publish fans an event out to dashboard clients and the uplink.
func (a *App) publish(msg *protocol.Message, err error) {
	if err != nil || msg == nil {
		return
	}
	a.server.PublishEvent(msg)
	if a.uplink != nil {
		a.uplink.Send(msg)
	}
}

func (a *App) publishRoute(destination string, route *nav.Route) {
	distance := route.TotalDistanceMeters()
	duration := int(route.TotalDuration().Seconds())
	a.publish(protocol.NewRouteMessage(protocol.RouteData{
		Summary:         route.Summary,
		Destination:     destination,
		DistanceMeters:  distance,
		DurationSeconds: duration,
		DistanceText:    nav.FormatDistance(distance),
		DurationText:    nav.FormatDuration(duration),
		Polyline:        route.OverviewPolyline.Points,
	}))
}

func (a *App) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Prune(sessionMaxIdle); n > 0 {
				a.logger.Debug("pruned idle sessions", "count", n)
			}
		}
	}
}

// announceText phrases a maneuver announcement. Nearing a step's end
// means the next step's instruction is what the driver must do; on
// the final step the destination itself is ahead.
func announceText(ev progress.ManeuverEvent) string {
	if ev.Next == nil {
		return "Your destination is ahead."
	}
	return fmt.Sprintf("In %d meters, %s", int(math.Round(ev.DistanceMeters)), ev.Next.Instruction())
}

func trackingInfo(state progress.TrackingState) protocol.TrackingInfo {
	return protocol.TrackingInfo{
		Active:       state.Active,
		Arrived:      state.Arrived,
		StepIndex:    state.StepIndex,
		StepCount:    state.StepCount,
		Instruction:  state.Instruction,
		DistanceText: state.DistanceText,
		DurationText: state.DurationText,
	}
}
