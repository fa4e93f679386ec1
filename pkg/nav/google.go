package nav

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sunosaarthi/go-saarthi/internal/httpc"
	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/geo"
)

const (
	defaultGoogleBaseURL = "https://maps.googleapis.com/maps/api"
	defaultPlacesRadius  = 5000 // meters
)

// GoogleConfig holds configuration for the Google Maps provider.
type GoogleConfig struct {
	// APIKey is the Google Maps API key.
	// Falls back to the GOOGLE_MAPS_API_KEY environment variable.
	APIKey string

	// BaseURL is the API base URL, overridable for testing.
	BaseURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries is the number of retries on rate limits and
	// server errors.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration
}

// DefaultGoogleConfig returns a config with sensible defaults.
func DefaultGoogleConfig() *GoogleConfig {
	return &GoogleConfig{
		APIKey:     os.Getenv("GOOGLE_MAPS_API_KEY"),
		BaseURL:    defaultGoogleBaseURL,
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// GoogleOption configures the Google provider.
type GoogleOption func(*GoogleConfig)

// WithAPIKey sets the API key.
func WithAPIKey(key string) GoogleOption {
	return func(c *GoogleConfig) { c.APIKey = key }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) GoogleOption {
	return func(c *GoogleConfig) { c.BaseURL = baseURL }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) GoogleOption {
	return func(c *GoogleConfig) { c.Timeout = timeout }
}

// WithRetry sets the retry count and base delay.
func WithRetry(retries int, delay time.Duration) GoogleOption {
	return func(c *GoogleConfig) {
		c.MaxRetries = retries
		c.RetryDelay = delay
	}
}

// GoogleProvider talks to the Google Maps web service APIs.
type GoogleProvider struct {
	config *GoogleConfig
	client *http.Client
	logger *slog.Logger
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleProvider creates a Google Maps provider.
func NewGoogleProvider(opts ...GoogleOption) (*GoogleProvider, error) {
	config := DefaultGoogleConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return &GoogleProvider{
		config: config,
		client: httpc.NewClient(config.Timeout),
		logger: log.With("component", "nav.google"),
	}, nil
}

// Name returns the provider identifier.
func (p *GoogleProvider) Name() string { return "google" }

// Close releases provider resources.
func (p *GoogleProvider) Close() error { return nil }

// Directions finds routes between two points.
func (p *GoogleProvider) Directions(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("origin", req.Origin)
	params.Set("destination", req.Destination)
	params.Set("mode", req.Mode)
	params.Set("departure_time", "now")
	if req.Alternatives {
		params.Set("alternatives", "true")
	}

	var resp DirectionsResponse
	if err := p.get(ctx, "/directions/json", params, &resp); err != nil {
		return nil, err
	}
	if err := p.checkStatus(resp.Status, ErrNoRoutes); err != nil {
		return nil, err
	}
	p.logger.Debug("directions resolved",
		"origin", req.Origin,
		"destination", req.Destination,
		"routes", len(resp.Routes))
	return &resp, nil
}

// Geocode resolves an address to coordinates.
func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if address == "" {
		return nil, fmt.Errorf("nav: address is required")
	}

	params := url.Values{}
	params.Set("address", address)

	var resp struct {
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location geo.LatLng `json:"location"`
			} `json:"geometry"`
			PlaceID string `json:"place_id"`
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := p.get(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	if err := p.checkStatus(resp.Status, ErrNotFound); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	first := resp.Results[0]
	return &GeocodeResult{
		Address:  first.FormattedAddress,
		Location: first.Geometry.Location,
		PlaceID:  first.PlaceID,
	}, nil
}

// Places searches for points of interest near a location.
func (p *GoogleProvider) Places(ctx context.Context, query string, near geo.LatLng) ([]Place, error) {
	if query == "" {
		return nil, fmt.Errorf("nav: query is required")
	}

	params := url.Values{}
	params.Set("query", query)
	if near.Valid() && (near.Lat != 0 || near.Lng != 0) {
		params.Set("location", FormatLatLng(near))
		params.Set("radius", fmt.Sprintf("%d", defaultPlacesRadius))
	}

	var resp struct {
		Results []struct {
			Name             string `json:"name"`
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location geo.LatLng `json:"location"`
			} `json:"geometry"`
			Rating       float64 `json:"rating"`
			OpeningHours *struct {
				OpenNow bool `json:"open_now"`
			} `json:"opening_hours"`
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := p.get(ctx, "/place/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	if err := p.checkStatus(resp.Status, ErrNotFound); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		place := Place{
			Name:     r.Name,
			Address:  r.FormattedAddress,
			Location: r.Geometry.Location,
			Rating:   r.Rating,
		}
		if r.OpeningHours != nil {
			open := r.OpeningHours.OpenNow
			place.OpenNow = &open
		}
		places = append(places, place)
	}
	return places, nil
}

// Traffic reports congestion using the distance matrix API, comparing
// the free-flow duration against the duration in current traffic.
func (p *GoogleProvider) Traffic(ctx context.Context, origin, destination string) (*TrafficInfo, error) {
	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", destination)
	params.Set("departure_time", "now")
	params.Set("traffic_model", "best_guess")

	var resp struct {
		Rows []struct {
			Elements []struct {
				Status            string    `json:"status"`
				Duration          TextValue `json:"duration"`
				DurationInTraffic TextValue `json:"duration_in_traffic"`
			} `json:"elements"`
		} `json:"rows"`
		Status string `json:"status"`
	}
	if err := p.get(ctx, "/distancematrix/json", params, &resp); err != nil {
		return nil, err
	}
	if err := p.checkStatus(resp.Status, ErrNotFound); err != nil {
		return nil, err
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return nil, ErrNotFound
	}
	elem := resp.Rows[0].Elements[0]
	if elem.Status != "OK" {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Status:     elem.Status,
			Message:    "distance matrix element failed",
			Provider:   p.Name(),
		}
	}
	current := elem.DurationInTraffic.Value
	if current == 0 {
		current = elem.Duration.Value
	}
	return ClassifyTraffic(elem.Duration.Value, current), nil
}

// get performs a GET request against the API and decodes the response.
func (p *GoogleProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", p.config.APIKey)
	endpoint := p.config.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return WrapError(p.Name(), err)
	}

	resp, err := p.doWithRetry(req)
	if err != nil {
		return WrapError(p.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return WrapError(p.Name(), fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Provider:   p.Name(),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return WrapError(p.Name(), fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// doWithRetry retries the request on rate limits and server errors
// with linear backoff.
func (p *GoogleProvider) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.config.RetryDelay * time.Duration(attempt)
			p.logger.Debug("retrying request",
				"attempt", attempt,
				"delay", delay,
				"path", req.URL.Path)
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(delay):
			}
		}

		resp, err = p.client.Do(req)
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			err = &APIError{
				StatusCode: resp.StatusCode,
				Message:    "retryable error",
				Provider:   p.Name(),
			}
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("nav: request failed after %d attempts: %w",
		p.config.MaxRetries+1, err)
}

// checkStatus maps API-level status strings to errors. notFound is
// returned for ZERO_RESULTS and NOT_FOUND so callers can fall back.
func (p *GoogleProvider) checkStatus(status string, notFound error) error {
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return notFound
	default:
		return &APIError{
			StatusCode: http.StatusOK,
			Status:     status,
			Message:    "request rejected",
			Provider:   p.Name(),
		}
	}
}
