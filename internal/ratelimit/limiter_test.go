package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitUnderLimitDoesNotBlock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(3, clock)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}

	stats := l.GetStats()
	assert.Equal(t, 3, stats.Used)
	assert.Equal(t, 0, stats.Remaining)
	assert.Equal(t, 3, stats.Limit)
}

func TestWaitBlocksUntilOldestCallAgesOut(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(2, clock)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	clock.Advance(10 * time.Second)
	require.NoError(t, l.Wait(ctx))

	done := make(chan error, 1)
	go func() {
		done <- l.Wait(ctx)
	}()

	// The third call must be waiting on the limiter's timer.
	clock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("third call proceeded before the window opened")
	default:
	}

	// 50s after the oldest call the window opens (oldest was at t=0,
	// current fake time is t=10s, so the sleep is 50s).
	clock.Advance(50 * time.Second)
	require.NoError(t, <-done)

	stats := l.GetStats()
	assert.LessOrEqual(t, stats.Used, 2)
}

func TestWaitConcurrentWaitersAdmittedOnePerSlot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(1, clock)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))

	admitted := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			admitted <- l.Wait(ctx)
		}()
	}

	// Both waiters asleep on the full window.
	clock.BlockUntil(2)
	clock.Advance(window)

	// One slot opened, so exactly one waiter gets through; the loser must
	// re-check capacity and queue another timer instead of barging in.
	require.NoError(t, <-admitted)
	clock.BlockUntil(1)
	select {
	case <-admitted:
		t.Fatal("second waiter admitted into the same window")
	default:
	}
	assert.Equal(t, 1, l.GetStats().Used)

	clock.Advance(window)
	require.NoError(t, <-admitted)
	assert.Equal(t, 1, l.GetStats().Used)
}

func TestOldCallsPruned(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(5, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	clock.Advance(61 * time.Second)

	stats := l.GetStats()
	assert.Equal(t, 0, stats.Used)
	assert.Equal(t, 5, stats.Remaining)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(1, clock)

	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Wait(ctx)
	}()

	clock.BlockUntil(1)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
