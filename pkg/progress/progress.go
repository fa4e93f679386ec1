// Package progress tracks a traveler along a route. The Tracker owns
// the current step index and the remaining distance and time, and
// emits maneuver events as position samples arrive.
//
// Position samples may come from a live source or from the route
// simulator; both feed OnPosition. Calls are serialized internally so
// a simulator goroutine and gateway reads can share one tracker.
package progress

import (
	"log/slog"
	"sync"

	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/geo"
	"github.com/sunosaarthi/go-saarthi/pkg/nav"
)

// Proximity thresholds for maneuver handling, in meters.
const (
	// AnnounceRadiusMeters is how close the traveler must be to the
	// current maneuver before it is announced.
	AnnounceRadiusMeters = 30.0

	// AdvanceRadiusMeters is how close the traveler must be before
	// the tracker advances to the next step.
	AdvanceRadiusMeters = 15.0
)

// TrackingState is the tracker's published view: step position and
// remaining distance and time. Owned by the Tracker; everything else
// reads it through Snapshot.
type TrackingState struct {
	Active                   bool    `json:"active"`
	Arrived                  bool    `json:"arrived"`
	StepIndex                int     `json:"step_index"`
	StepCount                int     `json:"step_count"`
	Instruction              string  `json:"instruction,omitempty"`
	DistanceRemainingMeters  float64 `json:"distance_remaining_meters"`
	DurationRemainingSeconds float64 `json:"duration_remaining_seconds"`
	DistanceText             string  `json:"distance_remaining_text,omitempty"`
	DurationText             string  `json:"duration_remaining_text,omitempty"`
}

// ManeuverEvent describes a maneuver the traveler is close to.
type ManeuverEvent struct {
	// StepIndex is the step the event concerns.
	StepIndex int

	// Step is the step at StepIndex.
	Step nav.Step

	// Next is the step after this one, nil on the final step.
	// Announcements speak Next's instruction: the maneuver at the
	// end of the current step is what the next step tells you to do.
	Next *nav.Step

	// DistanceMeters is the distance to the step's maneuver point.
	DistanceMeters float64
}

// Callbacks are invoked by the tracker as progress events occur. Nil
// fields are skipped. Callbacks run outside the tracker lock, so they
// may call back into the tracker.
type Callbacks struct {
	// OnManeuverNear fires once per step when the traveler comes
	// within AnnounceRadiusMeters of its maneuver.
	OnManeuverNear func(ManeuverEvent)

	// OnStepAdvance fires when the step index advances. The event
	// carries the new current step.
	OnStepAdvance func(ManeuverEvent)

	// OnArrived fires exactly once per route, when the traveler
	// reaches the final maneuver.
	OnArrived func()

	// OnStateChange fires after every attach and processed sample
	// with the recomputed state.
	OnStateChange func(TrackingState)
}

// Tracker follows a route, advancing through its steps as position
// samples arrive.
type Tracker struct {
	callbacks Callbacks
	logger    *slog.Logger

	mu        sync.Mutex
	route     *nav.Route
	steps     []nav.Step
	announced []bool
	index     int
	arrived   bool
	state     TrackingState
}

// New creates a tracker with no route attached.
func New(callbacks Callbacks) *Tracker {
	return &Tracker{
		callbacks: callbacks,
		logger:    log.With("component", "progress.tracker"),
	}
}

// Attach replaces the tracked route. The step index returns to zero,
// every maneuver becomes unannounced, and the remaining distance and
// time are recomputed from the route's totals. Attach(nil) detaches,
// making later position samples no-ops.
func (t *Tracker) Attach(route *nav.Route) {
	t.mu.Lock()
	t.route = route
	t.steps = nil
	t.announced = nil
	t.index = 0
	t.arrived = false
	if route != nil {
		t.steps = route.FlatSteps()
		t.announced = make([]bool, len(t.steps))
	}
	t.recomputeLocked(nil)
	state := t.state
	t.mu.Unlock()

	if route != nil {
		t.logger.Info("route attached",
			"steps", state.StepCount,
			"distance", state.DistanceText,
			"duration", state.DurationText)
	} else {
		t.logger.Info("route detached")
	}
	if cb := t.callbacks.OnStateChange; cb != nil {
		cb(state)
	}
}

// OnPosition processes one position sample. Without a route it is a
// no-op. Within one call the step index advances at most once.
func (t *Tracker) OnPosition(pos nav.Position) {
	t.mu.Lock()
	if t.route == nil || len(t.steps) == 0 {
		t.mu.Unlock()
		return
	}

	var fire []func()
	current := t.steps[t.index]
	d := geo.Distance(pos.LatLng, current.EndLocation)

	if d <= AnnounceRadiusMeters && !t.announced[t.index] {
		t.announced[t.index] = true
		ev := t.eventLocked(t.index, d)
		t.logger.Debug("maneuver near",
			"step", ev.StepIndex,
			"distance_m", ev.DistanceMeters)
		if cb := t.callbacks.OnManeuverNear; cb != nil {
			fire = append(fire, func() { cb(ev) })
		}
	}

	if d <= AdvanceRadiusMeters && !t.arrived {
		if t.index == len(t.steps)-1 {
			t.arrived = true
			t.logger.Info("arrived at destination")
			if cb := t.callbacks.OnArrived; cb != nil {
				fire = append(fire, cb)
			}
		} else {
			t.index++
			ev := t.eventLocked(t.index, geo.Distance(pos.LatLng, t.steps[t.index].EndLocation))
			t.logger.Debug("step advanced", "step", ev.StepIndex)
			if cb := t.callbacks.OnStepAdvance; cb != nil {
				fire = append(fire, func() { cb(ev) })
			}
		}
	}

	t.recomputeLocked(&pos)
	state := t.state
	t.mu.Unlock()

	for _, f := range fire {
		f()
	}
	if cb := t.callbacks.OnStateChange; cb != nil {
		cb(state)
	}
}

// Snapshot returns the current tracking state.
func (t *Tracker) Snapshot() TrackingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Route returns the attached route, or nil.
func (t *Tracker) Route() *nav.Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.route
}

// CurrentStep returns the current step, false when no route is
// attached.
func (t *Tracker) CurrentStep() (nav.Step, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.route == nil || len(t.steps) == 0 {
		return nav.Step{}, false
	}
	return t.steps[t.index], true
}

func (t *Tracker) eventLocked(index int, distance float64) ManeuverEvent {
	ev := ManeuverEvent{
		StepIndex:      index,
		Step:           t.steps[index],
		DistanceMeters: distance,
	}
	if index+1 < len(t.steps) {
		next := t.steps[index+1]
		ev.Next = &next
	}
	return ev
}

// recomputeLocked rebuilds the published state. The current step
// contributes its published distance and duration scaled by the ratio
// of remaining geometric distance to the step's geometric length;
// later steps contribute their full published values. With pos nil
// the current step counts in full.
func (t *Tracker) recomputeLocked(pos *nav.Position) {
	if t.route == nil || len(t.steps) == 0 {
		t.state = TrackingState{}
		return
	}

	current := t.steps[t.index]
	ratio := 1.0
	if pos != nil {
		stepLen := geo.Distance(current.StartLocation, current.EndLocation)
		if stepLen > 0 {
			ratio = geo.Distance(pos.LatLng, current.EndLocation) / stepLen
			if ratio > 1 {
				ratio = 1
			}
			if ratio < 0 {
				ratio = 0
			}
		}
	}

	distance := ratio * float64(current.Distance.Value)
	duration := ratio * float64(current.Duration.Value)
	for _, step := range t.steps[t.index+1:] {
		distance += float64(step.Distance.Value)
		duration += float64(step.Duration.Value)
	}
	if t.arrived {
		distance, duration = 0, 0
	}

	t.state = TrackingState{
		Active:                   true,
		Arrived:                  t.arrived,
		StepIndex:                t.index,
		StepCount:                len(t.steps),
		Instruction:              current.Instruction(),
		DistanceRemainingMeters:  distance,
		DurationRemainingSeconds: duration,
		DistanceText:             nav.FormatDistance(int(distance + 0.5)),
		DurationText:             nav.FormatDuration(int(duration + 0.5)),
	}
}
