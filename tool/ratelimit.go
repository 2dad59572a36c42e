package tool

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type limitedCapability struct {
	Capability
	limiter *rate.Limiter
}

// RateLimited waits for the limiter before every invocation of c.
// A cancelled wait fails the invocation.
func RateLimited(c Capability, limiter *rate.Limiter) Capability {
	if limiter == nil {
		return c
	}
	return &limitedCapability{Capability: c, limiter: limiter}
}

// PerMinute builds a limiter allowing n invocations per minute with a burst of burst
func PerMinute(n float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(n/60.0), burst)
}

func (l *limitedCapability) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", l.Name(), err)
	}
	return l.Capability.Invoke(ctx, args)
}
