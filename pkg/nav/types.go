package nav

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sunosaarthi/go-saarthi/pkg/geo"
)

// Travel modes accepted by route providers.
const (
	ModeDriving   = "driving"
	ModeWalking   = "walking"
	ModeBicycling = "bicycling"
	ModeTransit   = "transit"
)

// NormalizeMode lowercases mode and falls back to driving when the
// mode is not one of the supported travel modes.
func NormalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeDriving:
		return ModeDriving
	case ModeWalking:
		return ModeWalking
	case ModeBicycling:
		return ModeBicycling
	case ModeTransit:
		return ModeTransit
	default:
		return ModeDriving
	}
}

// TextValue is a human-readable quantity paired with its raw value.
// For distances Value is meters, for durations Value is seconds.
type TextValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// Polyline holds an encoded polyline string.
type Polyline struct {
	Points string `json:"points"`
}

// Decode returns the decoded coordinate path.
func (p Polyline) Decode() []geo.LatLng {
	return geo.DecodePolyline(p.Points)
}

// Bounds is the viewport that contains a route.
type Bounds struct {
	Northeast geo.LatLng `json:"northeast"`
	Southwest geo.LatLng `json:"southwest"`
}

// Step is a single navigation instruction within a leg.
type Step struct {
	Distance         TextValue  `json:"distance"`
	Duration         TextValue  `json:"duration"`
	HTMLInstructions string     `json:"html_instructions"`
	Maneuver         string     `json:"maneuver,omitempty"`
	Polyline         Polyline   `json:"polyline"`
	StartLocation    geo.LatLng `json:"start_location"`
	EndLocation      geo.LatLng `json:"end_location"`
	TravelMode       string     `json:"travel_mode"`
}

// Instruction returns the step instruction with HTML markup removed.
func (s Step) Instruction() string {
	return StripHTML(s.HTMLInstructions)
}

// Leg is a stretch of a route between two waypoints.
type Leg struct {
	Distance      TextValue  `json:"distance"`
	Duration      TextValue  `json:"duration"`
	StartAddress  string     `json:"start_address"`
	EndAddress    string     `json:"end_address"`
	StartLocation geo.LatLng `json:"start_location"`
	EndLocation   geo.LatLng `json:"end_location"`
	Steps         []Step     `json:"steps"`
}

// Route is a complete path from origin to destination.
type Route struct {
	Bounds           Bounds   `json:"bounds"`
	Legs             []Leg    `json:"legs"`
	OverviewPolyline Polyline `json:"overview_polyline"`
	Summary          string   `json:"summary"`
}

// FlatSteps returns the steps of all legs in travel order.
func (r *Route) FlatSteps() []Step {
	var steps []Step
	for _, leg := range r.Legs {
		steps = append(steps, leg.Steps...)
	}
	return steps
}

// TotalDistanceMeters sums the leg distances in meters.
func (r *Route) TotalDistanceMeters() int {
	var total int
	for _, leg := range r.Legs {
		total += leg.Distance.Value
	}
	return total
}

// TotalDuration sums the leg durations.
func (r *Route) TotalDuration() time.Duration {
	var total int
	for _, leg := range r.Legs {
		total += leg.Duration.Value
	}
	return time.Duration(total) * time.Second
}

// Path returns the decoded overview polyline.
func (r *Route) Path() []geo.LatLng {
	return r.OverviewPolyline.Decode()
}

// Position is a point along a journey with motion metadata.
type Position struct {
	geo.LatLng
	Accuracy  float64   `json:"accuracy,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
	Speed     float64   `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatLatLng renders a coordinate as "lat,lng" for API query params.
func FormatLatLng(p geo.LatLng) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// ParseLatLng parses a "lat,lng" string into a coordinate.
func ParseLatLng(s string) (geo.LatLng, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return geo.LatLng{}, fmt.Errorf("nav: invalid coordinate %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.LatLng{}, fmt.Errorf("nav: invalid latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.LatLng{}, fmt.Errorf("nav: invalid longitude %q: %w", parts[1], err)
	}
	p := geo.LatLng{Lat: lat, Lng: lng}
	if !p.Valid() {
		return geo.LatLng{}, ErrInvalidCoordinate
	}
	return p, nil
}

// StripHTML removes markup from an instruction string so it can be
// spoken or logged as plain text. Directions instructions carry tags
// like <b> and <div style="..."> around street names.
func StripHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			// Block-level tags separate clauses without whitespace.
			if last := b.Len(); last > 0 && b.String()[last-1] != ' ' {
				b.WriteRune(' ')
			}
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	out := htmlEntities.Replace(b.String())
	return strings.Join(strings.Fields(out), " ")
}

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// FormatDistance renders meters the way directions APIs do.
func FormatDistance(meters int) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	return fmt.Sprintf("%.1f km", float64(meters)/1000.0)
}

// FormatDuration renders seconds the way directions APIs do.
func FormatDuration(seconds int) string {
	mins := (seconds + 30) / 60
	if mins < 1 {
		mins = 1
	}
	if mins < 60 {
		if mins == 1 {
			return "1 min"
		}
		return fmt.Sprintf("%d mins", mins)
	}
	hours := mins / 60
	rem := mins % 60
	hourWord := "hours"
	if hours == 1 {
		hourWord = "hour"
	}
	if rem == 0 {
		return fmt.Sprintf("%d %s", hours, hourWord)
	}
	return fmt.Sprintf("%d %s %d mins", hours, hourWord, rem)
}
