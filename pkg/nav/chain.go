package nav

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/geo"
)

// Chain tries multiple providers in order until one succeeds. Use it
// to back a live provider with the deterministic mock so navigation
// keeps working offline.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

var _ Provider = (*Chain)(nil)

// NewChain creates a provider chain. Providers are tried in the order
// given.
func NewChain(providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    log.With("component", "nav.chain"),
	}
}

// Name returns the provider identifier.
func (c *Chain) Name() string { return "chain" }

// Providers returns the names of the chained providers in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Directions finds routes using the first provider that succeeds.
func (c *Chain) Directions(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error) {
	return chainCall(c, ctx, "directions", func(p Provider) (*DirectionsResponse, error) {
		return p.Directions(ctx, req)
	})
}

// Geocode resolves an address using the first provider that succeeds.
func (c *Chain) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	return chainCall(c, ctx, "geocode", func(p Provider) (*GeocodeResult, error) {
		return p.Geocode(ctx, address)
	})
}

// Places searches for points of interest using the first provider
// that succeeds.
func (c *Chain) Places(ctx context.Context, query string, near geo.LatLng) ([]Place, error) {
	return chainCall(c, ctx, "places", func(p Provider) ([]Place, error) {
		return p.Places(ctx, query, near)
	})
}

// Traffic reports congestion using the first provider that succeeds.
func (c *Chain) Traffic(ctx context.Context, origin, destination string) (*TrafficInfo, error) {
	return chainCall(c, ctx, "traffic", func(p Provider) (*TrafficInfo, error) {
		return p.Traffic(ctx, origin, destination)
	})
}

// Close closes all providers and returns the first error.
func (c *Chain) Close() error {
	var firstErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// chainCall runs op against each provider in order, returning the
// first success. Context cancellation stops the walk immediately.
func chainCall[T any](c *Chain, ctx context.Context, op string, call func(Provider) (T, error)) (T, error) {
	var zero T
	if len(c.providers) == 0 {
		return zero, ErrProviderUnavailable
	}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := call(p)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		c.logger.Warn("provider failed, trying next",
			"op", op,
			"provider", p.Name(),
			"error", err)
		errs = append(errs, WrapError(p.Name(), err))
	}
	return zero, &ChainError{Errors: errs}
}
