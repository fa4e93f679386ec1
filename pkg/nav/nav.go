// Package nav models driving routes and provides route, geocoding,
// place and traffic lookups across multiple providers with fallback.
//
// The wire types mirror the Google Directions schema so routes decoded
// from the API can be re-encoded for clients without translation.
// Providers implement the Provider interface; Chain tries each in
// order so a deterministic offline provider can back a live one:
//
//	google, _ := nav.NewGoogleProvider(nav.WithAPIKey(key))
//	chain := nav.NewChain(google, nav.NewMockProvider())
//	resp, err := chain.Directions(ctx, &nav.DirectionsRequest{
//	    Origin:      "28.6139,77.2090",
//	    Destination: "India Gate, New Delhi",
//	})
package nav

import (
	"context"
	"errors"

	"github.com/sunosaarthi/go-saarthi/pkg/geo"
)

// DirectionsRequest describes a route lookup.
type DirectionsRequest struct {
	// Origin is an address or "lat,lng" pair.
	Origin string

	// Destination is an address or "lat,lng" pair.
	Destination string

	// Mode is the travel mode. Defaults to driving.
	Mode string

	// Alternatives requests alternative routes when true.
	Alternatives bool
}

// Validate checks the request and normalizes the travel mode.
func (r *DirectionsRequest) Validate() error {
	if r == nil {
		return errors.New("nav: request is nil")
	}
	if r.Origin == "" {
		return errors.New("nav: origin is required")
	}
	if r.Destination == "" {
		return errors.New("nav: destination is required")
	}
	r.Mode = NormalizeMode(r.Mode)
	return nil
}

// DirectionsResponse holds the routes found for a request.
type DirectionsResponse struct {
	Routes []Route `json:"routes"`
	Status string  `json:"status"`
}

// Best returns the first route, which providers order by preference.
func (r *DirectionsResponse) Best() *Route {
	if r == nil || len(r.Routes) == 0 {
		return nil
	}
	return &r.Routes[0]
}

// GeocodeResult is a resolved address.
type GeocodeResult struct {
	Address  string     `json:"address"`
	Location geo.LatLng `json:"location"`
	PlaceID  string     `json:"place_id,omitempty"`
}

// Place is a point of interest returned by a place search.
type Place struct {
	Name     string     `json:"name"`
	Address  string     `json:"address"`
	Location geo.LatLng `json:"location"`
	Rating   float64    `json:"rating,omitempty"`
	OpenNow  *bool      `json:"open_now,omitempty"`
}

// Provider is the interface all navigation backends implement.
type Provider interface {
	// Directions finds routes between two points.
	Directions(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error)

	// Geocode resolves an address to coordinates.
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)

	// Places searches for points of interest near a location.
	Places(ctx context.Context, query string, near geo.LatLng) ([]Place, error)

	// Traffic reports current congestion between two points.
	Traffic(ctx context.Context, origin, destination string) (*TrafficInfo, error)

	// Name returns the provider's identifier.
	Name() string

	// Close releases provider resources.
	Close() error
}
