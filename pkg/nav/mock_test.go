package nav

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sunosaarthi/go-saarthi/pkg/geo"
)

func TestMockDirections(t *testing.T) {
	mock := NewMockProvider()
	resp, err := mock.Directions(context.Background(), &DirectionsRequest{
		Origin:      "28.6139,77.2090",
		Destination: "India Gate",
	})
	if err != nil {
		t.Fatalf("Directions() error: %v", err)
	}

	route := resp.Best()
	if route == nil {
		t.Fatal("Best() returned nil route")
	}
	steps := route.FlatSteps()
	if len(steps) != 3 {
		t.Fatalf("route has %d steps, want 3", len(steps))
	}
	if route.TotalDistanceMeters() != 5000 {
		t.Errorf("total distance = %d, want 5000", route.TotalDistanceMeters())
	}
	if route.Legs[0].EndAddress != "India Gate" {
		t.Errorf("end address = %q, want %q", route.Legs[0].EndAddress, "India Gate")
	}

	// The mock lays out geometry so each step's endpoints are the
	// step's published distance apart.
	for i, step := range steps {
		got := geo.Distance(step.StartLocation, step.EndLocation)
		want := float64(step.Distance.Value)
		if math.Abs(got-want) > 5 {
			t.Errorf("step %d geometry spans %.1f m, published %d m", i, got, step.Distance.Value)
		}
	}

	// Steps connect end to start.
	for i := 1; i < len(steps); i++ {
		if steps[i].StartLocation != steps[i-1].EndLocation {
			t.Errorf("step %d does not start where step %d ends", i, i-1)
		}
	}

	if path := route.Path(); len(path) != 4 {
		t.Errorf("overview path has %d points, want 4", len(path))
	}
}

func TestMockDirectionsInvalidOriginFallsBack(t *testing.T) {
	mock := NewMockProvider()
	resp, err := mock.Directions(context.Background(), &DirectionsRequest{
		Origin:      "Connaught Place",
		Destination: "India Gate",
	})
	if err != nil {
		t.Fatalf("Directions() error: %v", err)
	}
	start := resp.Best().Legs[0].StartLocation
	if start != DefaultCenter {
		t.Errorf("start location = %+v, want default center %+v", start, DefaultCenter)
	}
}

func TestMockGeocode(t *testing.T) {
	mock := NewMockProvider()
	result, err := mock.Geocode(context.Background(), "Connaught Place")
	if err != nil {
		t.Fatalf("Geocode() error: %v", err)
	}
	if result.Location != DefaultCenter {
		t.Errorf("location = %+v, want %+v", result.Location, DefaultCenter)
	}
	if calls := mock.GeocodeCalls(); len(calls) != 1 || calls[0] != "Connaught Place" {
		t.Errorf("captured calls = %v", calls)
	}
}

func TestMockPlaces(t *testing.T) {
	mock := NewMockProvider()
	places, err := mock.Places(context.Background(), "coffee", DefaultCenter)
	if err != nil {
		t.Fatalf("Places() error: %v", err)
	}
	if len(places) != 3 {
		t.Fatalf("got %d places, want 3", len(places))
	}
	for _, p := range places {
		if !p.Location.Valid() {
			t.Errorf("place %q has invalid location %+v", p.Name, p.Location)
		}
	}
}

func TestMockTraffic(t *testing.T) {
	mock := NewMockProvider()
	info, err := mock.Traffic(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Traffic() error: %v", err)
	}
	if info.Level != TrafficModerate {
		t.Errorf("level = %q, want %q", info.Level, TrafficModerate)
	}
	if info.DelayMinutes != 5 {
		t.Errorf("delay = %d minutes, want 5", info.DelayMinutes)
	}
}

func TestMockOverride(t *testing.T) {
	mock := NewMockProvider()
	wantErr := errors.New("boom")
	mock.DirectionsFunc = func(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error) {
		return nil, wantErr
	}

	_, err := mock.Directions(context.Background(), &DirectionsRequest{Origin: "a", Destination: "b"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Directions() error = %v, want %v", err, wantErr)
	}
	if calls := mock.DirectionsCalls(); len(calls) != 1 {
		t.Errorf("captured %d calls, want 1", len(calls))
	}

	mock.Reset()
	if calls := mock.DirectionsCalls(); len(calls) != 0 {
		t.Errorf("Reset() left %d captured calls", len(calls))
	}
	if _, err := mock.Directions(context.Background(), &DirectionsRequest{Origin: "a", Destination: "b"}); err != nil {
		t.Errorf("Directions() after Reset() error: %v", err)
	}
}
