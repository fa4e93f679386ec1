package wake

import (
	"context"
	"log/slog"

	"github.com/sunosaarthi/go-saarthi/internal/log"
)

// Chain runs detectors in order and returns the first positive
// result. Detector errors are logged and skipped; detection is
// best-effort and a failing backend must not block the wake loop.
type Chain struct {
	detectors []Detector
	logger    *slog.Logger
}

// NewChain creates a detector chain. At least one detector is
// required.
func NewChain(detectors ...Detector) (*Chain, error) {
	if len(detectors) == 0 {
		return nil, ErrNoDetector
	}
	return &Chain{
		detectors: detectors,
		logger:    log.With("component", "wake.chain"),
	}, nil
}

// Name identifies the detector for logging.
func (c *Chain) Name() string { return "chain" }

// Detect tries each detector until one reports a detection. When
// none does, the last non-detected result is returned so callers
// still see the echoed transcript. An error is returned only when
// every detector failed.
func (c *Chain) Detect(ctx context.Context, text string) (Result, error) {
	var last Result
	var errs []error
	answered := false

	for _, d := range c.detectors {
		result, err := d.Detect(ctx, text)
		if err != nil {
			errs = append(errs, err)
			c.logger.Warn("detector failed, trying next",
				"detector", d.Name(),
				"error", err,
			)
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			continue
		}
		if result.Detected {
			return result, nil
		}
		last = result
		answered = true
	}

	if !answered && len(errs) > 0 {
		return Result{}, &ChainError{Errors: errs}
	}
	return last, nil
}

// Verify Chain implements Detector at compile time.
var _ Detector = (*Chain)(nil)
