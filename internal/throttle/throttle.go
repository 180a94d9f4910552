// Package throttle provides a per-operation rate limiter: each Gate guards
// one operation and allows its body to run at most once per interval. Calls
// inside the interval are skipped so the caller keeps serving the previous
// result without new I/O.
package throttle

import (
	"time"

	"hearth/internal/types"
)

// Gate is a small state machine: last-success timestamp plus interval.
// A Gate guards exactly one operation; operations throttled independently
// each get their own Gate.
//
// Gate is not safe for concurrent use. The hub invokes entity updates on a
// single goroutine, matching the host-driven call model.
type Gate struct {
	interval time.Duration
	clock    types.Clock
	last     time.Time
}

// NewGate creates a Gate with the given minimum interval between runs.
// A nil clock defaults to the real system clock.
func NewGate(interval time.Duration, clock types.Clock) *Gate {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Gate{
		interval: interval,
		clock:    clock,
	}
}

// Do runs fn unless a previous run succeeded within the interval.
// The returned bool reports whether fn was executed. The last-success
// timestamp only advances when fn returns nil, so a failed run does not
// suppress the next attempt.
func (g *Gate) Do(fn func() error) (bool, error) {
	now := g.clock.Now()
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return false, nil
	}

	if err := fn(); err != nil {
		return true, err
	}

	g.last = now
	return true, nil
}

// Reset clears the last-success timestamp so the next Do always runs.
func (g *Gate) Reset() {
	g.last = time.Time{}
}
