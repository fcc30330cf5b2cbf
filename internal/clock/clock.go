// Package clock abstracts wall time and simulated latency so services can be
// tested without real waits.
package clock

import (
	"context"
	"time"
)

// Clock supplies the current time and waits for a duration.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fixed reports a constant time and never waits. Sleep calls are counted so
// tests can assert that latency was simulated.
type Fixed struct {
	At     time.Time
	Sleeps int
	Slept  time.Duration
}

func (f *Fixed) Now() time.Time { return f.At }

func (f *Fixed) Sleep(ctx context.Context, d time.Duration) error {
	f.Sleeps++
	f.Slept += d
	return ctx.Err()
}
