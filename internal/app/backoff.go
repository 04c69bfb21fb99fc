package app

import (
	"math/rand"
	"time"
)

// Default reconnect backoff configuration values.
const (
	DefaultBackoffInitial = 5 * time.Second
	DefaultBackoffMax     = 2 * time.Minute
)

// backoff implements exponential backoff with jitter. It only computes
// delays; the manager checks the resulting deadline on its tick.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	rand    func() float64
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
		rand:    rand.Float64,
	}
}

// Next returns the current delay with ±20% jitter and doubles the delay
// for the following call, capped at max.
func (b *backoff) Next() time.Duration {
	jitter := float64(b.current) * 0.2 * (b.rand()*2 - 1)
	delay := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return delay
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *backoff) Current() time.Duration {
	return b.current
}
