// Package breaker implements a three-state circuit breaker: closed,
// open, half_open, guarding the Enrichment Client against a failing
// upstream.
package breaker

import (
	"sync"
	"time"
)

type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// Breaker is safe for concurrent use; a single instance is owned by one
// YouTubeClient within a process.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	failureThreshold int
	resetTimeout     time.Duration
	lastFailureAt    time.Time
	halfOpenProbeInFlight bool
}

func New(failureThreshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{state: Closed, failureThreshold: failureThreshold, resetTimeout: resetTimeout}
}

// ErrOpen is returned by Allow when the breaker is open and the reset
// timer has not yet elapsed.
var ErrOpen = &openError{}

type openError struct{}

func (*openError) Error() string { return "breaker: circuit open" }

// Allow reports whether a call may proceed, transitioning open→half_open
// when the reset timeout has elapsed and admitting exactly one probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case HalfOpen:
		if b.halfOpenProbeInFlight {
			return ErrOpen
		}
		b.halfOpenProbeInFlight = true
		return nil
	case Open:
		if time.Since(b.lastFailureAt) < b.resetTimeout {
			return ErrOpen
		}
		b.state = HalfOpen
		b.halfOpenProbeInFlight = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess resets the breaker to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.halfOpenProbeInFlight = false
}

// RecordFailure advances the failure counter, opening the breaker at
// threshold, or immediately re-opening from half_open").
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailureAt = time.Now()
	b.halfOpenProbeInFlight = false

	if b.state == HalfOpen {
		b.state = Open
		return
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = Open
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
