package llm

import (
	"context"
	"log/slog"

	"github.com/sunosaarthi/go-saarthi/internal/log"
)

// Chain tries providers in order until one succeeds. Put the preferred
// provider first; the rest act as fallbacks when it errors out.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain. At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(log.With("component", "llm.chain"), providers...)
}

// NewChainWithLogger creates a provider chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = log.With("component", "llm.chain")
	}
	return &Chain{providers: providers, logger: logger}, nil
}

// Name identifies the provider.
func (c *Chain) Name() string { return "chain" }

// Complete walks the chain until a provider answers.
func (c *Chain) Complete(ctx context.Context, req *Request) (*Response, error) {
	var errs []error
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := p.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded",
					"provider", p.Name(),
					"attempt", i+1)
			}
			return resp, nil
		}
		errs = append(errs, WrapError(p.Name(), err))
		if i < len(c.providers)-1 {
			c.logger.Warn("provider failed, trying next",
				"provider", p.Name(),
				"next", c.providers[i+1].Name(),
				"error", err)
		}
	}
	return nil, &ChainError{Errors: errs}
}

// Health reports healthy if any provider in the chain is reachable.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			errs = append(errs, WrapError(p.Name(), err))
			c.logger.Debug("provider unhealthy", "provider", p.Name(), "error", err)
			continue
		}
		return nil
	}
	return &ChainError{Errors: errs}
}

// Close shuts down all providers in the chain.
func (c *Chain) Close() error {
	var last error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			last = err
		}
	}
	return last
}

// Providers returns the names of the chained providers in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
