// Package connection implements the resilient connection manager for a single
// logical link to a remote key-value store. The Manager owns one protocol
// handle, establishes its transport, and re-establishes it with exponential
// backoff whenever the link drops.
package connection

import (
	"sync"
	"time"
)

// Backoff defaults, used when the corresponding ReliabilityConfig fields are
// left zero.
const (
	DefaultInitialRetryInterval = 500 * time.Millisecond
	DefaultMaxRetryInterval     = 60 * time.Second
	DefaultRetryGrowthFactor    = 1.5
)

// Backoff produces the wait intervals between reconnect attempts. Next grows
// the interval by the configured factor, clamped at the maximum, and returns
// it, so consecutive failures wait 750ms, 1.125s, 1.6875s and so on with the
// defaults. Reset restores the initial interval after a successful connect.
//
// Backoff is safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	initial  time.Duration
	max      time.Duration
	factor   float64
	interval time.Duration
}

// NewBackoff creates a backoff policy. Zero or negative parameters fall back
// to the package defaults.
func NewBackoff(initial, max time.Duration, factor float64) *Backoff {
	if initial <= 0 {
		initial = DefaultInitialRetryInterval
	}
	if max <= 0 {
		max = DefaultMaxRetryInterval
	}
	if factor <= 1 {
		factor = DefaultRetryGrowthFactor
	}
	return &Backoff{
		initial:  initial,
		max:      max,
		factor:   factor,
		interval: initial,
	}
}

// Next grows the interval and returns it as the wait before the next
// attempt. The returned values are non-decreasing and never exceed the
// configured maximum.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := time.Duration(float64(b.interval) * b.factor)
	if next > b.max {
		next = b.max
	}
	b.interval = next
	return next
}

// Reset restores the initial interval. Called after a successful connect so
// the next outage starts over from the shortest wait.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interval = b.initial
}

// Current returns the interval state without advancing the policy.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interval
}
