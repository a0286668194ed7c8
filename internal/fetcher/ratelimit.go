package fetcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter spreads requests against the same host over time. It is a
// politeness control layered under the gate, one token bucket per host.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// newHostLimiter returns nil when rps is zero or negative, which
// disables per-host limiting entirely.
func newHostLimiter(rps float64) *hostLimiter {
	if rps <= 0 {
		return nil
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    1,
	}
}

// Wait blocks until a token is available for host, respecting the context.
func (l *hostLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
