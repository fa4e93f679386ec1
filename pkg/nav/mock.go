package nav

import (
	"context"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/sunosaarthi/go-saarthi/pkg/geo"
)

// DefaultCenter is the fallback map center (Connaught Place, New Delhi),
// used when no position or origin is available.
var DefaultCenter = geo.LatLng{Lat: 28.6139, Lng: 77.2090}

// MockProvider is a deterministic navigation backend for testing and
// offline fallback. Behavior can be overridden per call by setting
// the *Func fields.
type MockProvider struct {
	mu sync.RWMutex

	// Override functions. When nil, deterministic defaults apply.
	DirectionsFunc func(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error)
	GeocodeFunc    func(ctx context.Context, address string) (*GeocodeResult, error)
	PlacesFunc     func(ctx context.Context, query string, near geo.LatLng) ([]Place, error)
	TrafficFunc    func(ctx context.Context, origin, destination string) (*TrafficInfo, error)

	directionsCalls []DirectionsRequest
	geocodeCalls    []string
	placesCalls     []string
	trafficCalls    []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock navigation provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string { return "mock" }

// Close releases provider resources.
func (m *MockProvider) Close() error { return nil }

// Directions returns a deterministic three-step route.
func (m *MockProvider) Directions(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.directionsCalls = append(m.directionsCalls, *req)
	fn := m.DirectionsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	origin := DefaultCenter
	if p, err := ParseLatLng(req.Origin); err == nil {
		origin = p
	}
	route := BuildMockRoute(origin, req.Origin, req.Destination, req.Mode)
	return &DirectionsResponse{
		Routes: []Route{*route},
		Status: "OK",
	}, nil
}

// Geocode resolves every address to the default center.
func (m *MockProvider) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	m.mu.Lock()
	m.geocodeCalls = append(m.geocodeCalls, address)
	fn := m.GeocodeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, address)
	}
	return &GeocodeResult{
		Address:  address,
		Location: DefaultCenter,
		PlaceID:  "mock-place-0",
	}, nil
}

// Places returns three fixed points of interest around near.
func (m *MockProvider) Places(ctx context.Context, query string, near geo.LatLng) ([]Place, error) {
	m.mu.Lock()
	m.placesCalls = append(m.placesCalls, query)
	fn := m.PlacesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, near)
	}
	if !near.Valid() || (near.Lat == 0 && near.Lng == 0) {
		near = DefaultCenter
	}
	open := true
	label := titleCase(query)
	return []Place{
		{
			Name:     label + " Hub",
			Address:  "1 Main St",
			Location: offsetNorth(near, 300),
			Rating:   4.5,
			OpenNow:  &open,
		},
		{
			Name:     label + " Corner",
			Address:  "42 Broadway",
			Location: offsetEast(near, 500),
			Rating:   4.2,
			OpenNow:  &open,
		},
		{
			Name:     label + " Point",
			Address:  "7 Park Ave",
			Location: offsetNorth(offsetEast(near, 200), 700),
			Rating:   4.0,
			OpenNow:  &open,
		},
	}, nil
}

// Traffic reports fixed moderate congestion with a five minute delay.
func (m *MockProvider) Traffic(ctx context.Context, origin, destination string) (*TrafficInfo, error) {
	m.mu.Lock()
	m.trafficCalls = append(m.trafficCalls, origin+"|"+destination)
	fn := m.TrafficFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, origin, destination)
	}
	return ClassifyTraffic(1200, 1500), nil
}

// DirectionsCalls returns the captured directions requests.
func (m *MockProvider) DirectionsCalls() []DirectionsRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DirectionsRequest, len(m.directionsCalls))
	copy(out, m.directionsCalls)
	return out
}

// GeocodeCalls returns the captured geocode addresses.
func (m *MockProvider) GeocodeCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.geocodeCalls))
	copy(out, m.geocodeCalls)
	return out
}

// Reset clears captured calls and overrides.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DirectionsFunc = nil
	m.GeocodeFunc = nil
	m.PlacesFunc = nil
	m.TrafficFunc = nil
	m.directionsCalls = nil
	m.geocodeCalls = nil
	m.placesCalls = nil
	m.trafficCalls = nil
}

// BuildMockRoute constructs the deterministic route: one kilometer
// north on Main St, two east on Broadway, two more north on Park Ave.
// Step geometry is laid out from origin so distances match the
// published step values.
func BuildMockRoute(origin geo.LatLng, startAddress, endAddress, mode string) *Route {
	travelMode := strings.ToUpper(NormalizeMode(mode))

	p0 := origin
	p1 := offsetNorth(p0, 1000)
	p2 := offsetEast(p1, 2000)
	p3 := offsetNorth(p2, 2000)
	points := []geo.LatLng{p0, p1, p2, p3}

	steps := []Step{
		{
			Distance:         TextValue{Text: FormatDistance(1000), Value: 1000},
			Duration:         TextValue{Text: FormatDuration(180), Value: 180},
			HTMLInstructions: "Head <b>north</b> on <b>Main St</b>",
			Polyline:         Polyline{Points: geo.EncodePolyline([]geo.LatLng{p0, p1})},
			StartLocation:    p0,
			EndLocation:      p1,
			TravelMode:       travelMode,
		},
		{
			Distance:         TextValue{Text: FormatDistance(2000), Value: 2000},
			Duration:         TextValue{Text: FormatDuration(360), Value: 360},
			HTMLInstructions: "Turn <b>right</b> onto <b>Broadway</b>",
			Maneuver:         "turn-right",
			Polyline:         Polyline{Points: geo.EncodePolyline([]geo.LatLng{p1, p2})},
			StartLocation:    p1,
			EndLocation:      p2,
			TravelMode:       travelMode,
		},
		{
			Distance:         TextValue{Text: FormatDistance(2000), Value: 2000},
			Duration:         TextValue{Text: FormatDuration(360), Value: 360},
			HTMLInstructions: "Turn <b>left</b> onto <b>Park Ave</b>",
			Maneuver:         "turn-left",
			Polyline:         Polyline{Points: geo.EncodePolyline([]geo.LatLng{p2, p3})},
			StartLocation:    p2,
			EndLocation:      p3,
			TravelMode:       travelMode,
		},
	}

	return &Route{
		Bounds: boundsOf(points),
		Legs: []Leg{{
			Distance:      TextValue{Text: FormatDistance(5000), Value: 5000},
			Duration:      TextValue{Text: FormatDuration(900), Value: 900},
			StartAddress:  startAddress,
			EndAddress:    endAddress,
			StartLocation: p0,
			EndLocation:   p3,
			Steps:         steps,
		}},
		OverviewPolyline: Polyline{Points: geo.EncodePolyline(points)},
		Summary:          "Main St and Broadway",
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

const metersPerDegree = geo.EarthRadiusMeters * math.Pi / 180

func offsetNorth(p geo.LatLng, meters float64) geo.LatLng {
	return geo.LatLng{Lat: p.Lat + meters/metersPerDegree, Lng: p.Lng}
}

func offsetEast(p geo.LatLng, meters float64) geo.LatLng {
	return geo.LatLng{
		Lat: p.Lat,
		Lng: p.Lng + meters/(metersPerDegree*math.Cos(p.Lat*math.Pi/180)),
	}
}

func boundsOf(points []geo.LatLng) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Northeast: points[0], Southwest: points[0]}
	for _, p := range points[1:] {
		b.Northeast.Lat = math.Max(b.Northeast.Lat, p.Lat)
		b.Northeast.Lng = math.Max(b.Northeast.Lng, p.Lng)
		b.Southwest.Lat = math.Min(b.Southwest.Lat, p.Lat)
		b.Southwest.Lng = math.Min(b.Southwest.Lng, p.Lng)
	}
	return b
}
