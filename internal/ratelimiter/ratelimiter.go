package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle caps the server-wide rate at which connections are accepted.
//
// It wraps golang.org/x/time/rate (token bucket). Unlike the per-client
// sliding window in pkg/ratelimit, a Throttle does not reject anything: the
// accept loop waits for a token, which pushes excess load back into the
// kernel listen backlog.
//
// A nil *Throttle is valid and never waits, so callers can keep a single
// code path whether or not throttling is configured.
//
// Thread safety:
// All methods are safe for concurrent use.
type Throttle struct {
	limiter *rate.Limiter
}

// New creates a Throttle allowing acceptsPerSecond sustained with the given burst.
//
// Returns nil when acceptsPerSecond is 0 (unlimited). A burst of 0 is raised
// to 1, otherwise the bucket could never hold a token.
func New(acceptsPerSecond, burst uint) *Throttle {
	if acceptsPerSecond == 0 {
		return nil
	}
	if burst == 0 {
		burst = 1
	}

	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(acceptsPerSecond), int(burst)),
	}
}

// Wait blocks until a token is available or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
