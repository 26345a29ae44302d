// Package pacing spaces outbound catalog requests so sequential queries respect provider quotas.
//
// The inter-request delay is a correctness requirement: catalogs throttle or ban clients that
// burst. The [Pacer] is kept separate from the clients' business logic and takes a [Clock] so
// tests can verify spacing without sleeping.
package pacing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two requests to the same catalog.
const DefaultInterval = 100 * time.Millisecond

// Clock abstracts time so pacing can be tested deterministically.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall-clock [Clock].
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer blocks until the next request may be sent.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer is a token bucket of size one refilled every interval, so the first request
// goes out immediately and each following one waits for the remainder of the interval.
type IntervalPacer struct {
	limiter  *rate.Limiter
	clock    Clock
	interval time.Duration
}

var _ Pacer = (*IntervalPacer)(nil)

// NewIntervalPacer creates a pacer spacing requests by interval. A nil clock uses [SystemClock].
// A non-positive interval disables pacing.
func NewIntervalPacer(interval time.Duration, clock Clock) *IntervalPacer {
	if clock == nil {
		clock = SystemClock{}
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &IntervalPacer{
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clock,
		interval: interval,
	}
}

// Interval returns the configured spacing.
func (p *IntervalPacer) Interval() time.Duration { return p.interval }

// Wait reserves the next slot at the clock's current time and sleeps until it opens.
// If ctx ends first the reservation is returned to the bucket.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("pacer cannot grant a request slot")
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	if err := p.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(p.clock.Now())
		return err
	}
	return nil
}
