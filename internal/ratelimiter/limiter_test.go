package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/agrolink/internal/ratelimiter"
)

func TestLimiter_Unlimited(t *testing.T) {
	l := ratelimiter.New(0)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiter_CancelledWhileWaiting(t *testing.T) {
	l := ratelimiter.New(0.001)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx))
	assert.Error(t, l.Wait(ctx))
}
