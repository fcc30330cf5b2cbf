package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter paces calls to the diagnosis model so a queue drain after a long
// offline period does not burst the upstream quota.
type Limiter struct {
	l *rate.Limiter
}

// New allows ratePerSec calls per second with a burst of one.
// A non-positive rate disables limiting.
func New(ratePerSec float64) *Limiter {
	if ratePerSec <= 0 {
		return &Limiter{l: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{l: rate.NewLimiter(rate.Limit(ratePerSec), 1)}
}

// Wait blocks until a token is available. Returns a non-nil error only if
// ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.l.Wait(ctx)
}
