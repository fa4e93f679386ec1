// Package sim emits synthetic positions along a route's geometry,
// standing in for a live position source during demos and tests.
//
// The simulator decodes the route's overview polyline and feeds one
// coordinate per tick into its sink, typically the progress tracker.
// The tick interval is the base interval divided by the current speed
// multiplier. Pausing keeps the place in the sequence; the run ends
// after the final coordinate with exactly one arrival notification.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/geo"
	"github.com/sunosaarthi/go-saarthi/pkg/nav"
)

// BaseTickInterval is the emission interval at 1x speed.
const BaseTickInterval = 500 * time.Millisecond

// Speed multipliers cycle 1x, 2x, 3x and back to 1x.
const (
	MinSpeedMultiplier = 1
	MaxSpeedMultiplier = 3
)

var (
	// ErrNoRoute is returned when Start is called without a route.
	ErrNoRoute = errors.New("sim: no route")

	// ErrRouteTooShort is returned when the route geometry has fewer
	// than two points.
	ErrRouteTooShort = errors.New("sim: route geometry has fewer than two points")
)

// Status is a snapshot of the simulator.
type Status struct {
	Running    bool `json:"running"`
	Paused     bool `json:"paused"`
	Arrived    bool `json:"arrived"`
	Index      int  `json:"index"`
	PointCount int  `json:"point_count"`
	Multiplier int  `json:"speed_multiplier"`
}

// Option configures the simulator.
type Option func(*Simulator)

// WithTickInterval overrides the base tick interval. Tests use this
// to run simulations quickly.
func WithTickInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithOnArrive sets a callback fired once when the final coordinate
// has been emitted.
func WithOnArrive(fn func()) Option {
	return func(s *Simulator) { s.onArrive = fn }
}

// Simulator walks a route's geometry on a timer.
type Simulator struct {
	sink     func(nav.Position)
	onArrive func()
	tick     time.Duration
	logger   *slog.Logger
	nudge    chan struct{}

	mu         sync.Mutex
	points     []geo.LatLng
	index      int
	multiplier int
	running    bool
	paused     bool
	arrived    bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a simulator that delivers positions to sink.
func New(sink func(nav.Position), opts ...Option) *Simulator {
	if sink == nil {
		sink = func(nav.Position) {}
	}
	s := &Simulator{
		sink:       sink,
		tick:       BaseTickInterval,
		multiplier: MinSpeedMultiplier,
		nudge:      make(chan struct{}, 1),
		logger:     log.With("component", "sim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins emitting positions along route, replacing any active
// run. The multiplier is clamped into the supported range.
func (s *Simulator) Start(ctx context.Context, route *nav.Route, multiplier int) error {
	if route == nil {
		return ErrNoRoute
	}
	points := route.Path()
	if len(points) < 2 {
		return ErrRouteTooShort
	}

	s.Stop()

	s.mu.Lock()
	s.points = points
	s.index = 0
	s.multiplier = clampMultiplier(multiplier)
	s.running = true
	s.paused = false
	s.arrived = false
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	mult := s.multiplier
	s.mu.Unlock()

	s.logger.Info("simulation started",
		"points", len(points),
		"speed", mult)
	go s.run(runCtx, done)
	return nil
}

// Pause suspends emission without losing the place in the sequence.
// Pausing an idle or already paused simulator is a no-op.
func (s *Simulator) Pause() {
	s.mu.Lock()
	if !s.running || s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = true
	index := s.index
	s.mu.Unlock()

	s.logger.Info("simulation paused", "index", index)
	s.wake()
}

// Resume continues emission from the paused position. Resuming a
// running or idle simulator is a no-op.
func (s *Simulator) Resume() {
	s.mu.Lock()
	if !s.running || !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	index := s.index
	s.mu.Unlock()

	s.logger.Info("simulation resumed", "index", index)
	s.wake()
}

// CycleSpeed advances the multiplier 1x, 2x, 3x and back to 1x,
// returning the new value. Takes effect on the next tick.
func (s *Simulator) CycleSpeed() int {
	s.mu.Lock()
	if s.multiplier >= MaxSpeedMultiplier {
		s.multiplier = MinSpeedMultiplier
	} else {
		s.multiplier++
	}
	m := s.multiplier
	s.mu.Unlock()

	s.logger.Info("simulation speed changed", "speed", m)
	s.wake()
	return m
}

// SetSpeed sets the multiplier directly.
func (s *Simulator) SetSpeed(multiplier int) error {
	if multiplier < MinSpeedMultiplier || multiplier > MaxSpeedMultiplier {
		return fmt.Errorf("sim: speed multiplier %d out of range %d-%d",
			multiplier, MinSpeedMultiplier, MaxSpeedMultiplier)
	}
	s.mu.Lock()
	s.multiplier = multiplier
	s.mu.Unlock()

	s.logger.Info("simulation speed changed", "speed", multiplier)
	s.wake()
	return nil
}

// Stop cancels the active run. The place in the sequence is kept for
// inspection but the run cannot be resumed, only restarted.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Status returns a snapshot of the simulator.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:    s.running,
		Paused:     s.paused,
		Arrived:    s.arrived,
		Index:      s.index,
		PointCount: len(s.points),
		Multiplier: s.multiplier,
	}
}

func (s *Simulator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if !s.running || s.index >= len(s.points) {
			s.mu.Unlock()
			return
		}
		interval := s.tick / time.Duration(s.multiplier)
		paused := s.paused
		s.mu.Unlock()

		var timer *time.Timer
		var tickC <-chan time.Time
		if !paused {
			timer = time.NewTimer(interval)
			tickC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.nudge:
			// Speed or pause state changed; recompute the wait.
			if timer != nil {
				timer.Stop()
			}
		case <-tickC:
			s.emitNext(interval)
		}
	}
}

// emitNext delivers the next coordinate to the sink. The heading is
// the bearing from the previous point; the first point travels with
// heading zero. Emitting the final coordinate ends the run and fires
// the arrival callback once.
func (s *Simulator) emitNext(interval time.Duration) {
	s.mu.Lock()
	if s.paused || !s.running || s.index >= len(s.points) {
		s.mu.Unlock()
		return
	}

	current := s.points[s.index]
	var heading, speed float64
	if s.index > 0 {
		prev := s.points[s.index-1]
		heading = geo.Bearing(prev, current)
		if secs := interval.Seconds(); secs > 0 {
			speed = geo.Distance(prev, current) / secs
		}
	}
	pos := nav.Position{
		LatLng:    current,
		Heading:   heading,
		Speed:     speed,
		Timestamp: time.Now(),
	}

	s.index++
	last := s.index >= len(s.points)
	if last {
		s.arrived = true
		s.running = false
	}
	sink := s.sink
	onArrive := s.onArrive
	s.mu.Unlock()

	sink(pos)
	if last {
		s.logger.Info("simulation arrived", "points", s.Status().PointCount)
		if onArrive != nil {
			onArrive()
		}
	}
}

// wake nudges the run loop so control changes apply immediately.
func (s *Simulator) wake() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

func clampMultiplier(m int) int {
	if m < MinSpeedMultiplier {
		return MinSpeedMultiplier
	}
	if m > MaxSpeedMultiplier {
		return MaxSpeedMultiplier
	}
	return m
}
