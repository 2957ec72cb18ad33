// Package ratelimit provides a sliding-window request throttle shared by the
// components that call rate-limited external services.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const window = time.Minute

// Limiter admits at most N calls in any trailing 60-second window. It keeps a
// time-ordered list of admitted call timestamps and, when the window is full,
// sleeps until the oldest call ages out. The timestamp list is mutex-guarded
// so the limiter can be shared across the concurrent calls inside a batch.
type Limiter struct {
	mu    sync.Mutex
	limit int
	clock clockwork.Clock
	calls []time.Time
}

// Stats reports the limiter's view of the current window.
type Stats struct {
	Used      int `json:"requests_last_minute"`
	Remaining int `json:"remaining_capacity"`
	Limit     int `json:"requests_per_minute_limit"`
}

// New returns a limiter admitting perMinute calls per trailing minute. A nil
// clock falls back to the real clock; tests inject a fake one.
func New(perMinute int, clock clockwork.Clock) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{limit: perMinute, clock: clock}
}

// Wait blocks until the next call may proceed, then records it. It returns an
// error only when ctx is cancelled while waiting; the limiter itself never
// fails. Capacity is re-checked after every sleep: concurrent waiters woken by
// the same slot opening race for it under the mutex and the losers go back to
// sleep, so the window bound holds however many goroutines share the limiter.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	for {
		now := l.clock.Now()
		l.prune(now)
		if len(l.calls) < l.limit {
			break
		}

		sleep := window - now.Sub(l.calls[0])
		l.mu.Unlock()
		if sleep > 0 {
			zap.L().Info("rate limit reached, waiting",
				zap.Duration("sleep", sleep),
				zap.Int("limit", l.limit),
			)
			timer := l.clock.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.Chan():
			}
		}
		l.mu.Lock()
	}

	l.calls = append(l.calls, l.clock.Now())
	l.mu.Unlock()
	return nil
}

// GetStats returns calls used and remaining in the current window.
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.clock.Now())
	return Stats{
		Used:      len(l.calls),
		Remaining: l.limit - len(l.calls),
		Limit:     l.limit,
	}
}

// prune drops timestamps older than the trailing window. Callers hold the
// mutex.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}
