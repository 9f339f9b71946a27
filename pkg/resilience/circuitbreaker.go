// Package resilience provides a circuit breaker for calls to external
// collaborators (graph registry, vector store).
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is tripping.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State of the breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerOpts configures the breaker.
type BreakerOpts struct {
	// FailThreshold is the consecutive failure count that trips the breaker.
	FailThreshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
}

// DefaultBreakerOpts trips after 5 failures and probes after 30s.
var DefaultBreakerOpts = BreakerOpts{FailThreshold: 5, Cooldown: 30 * time.Second}

// Breaker is a closed/open/half-open circuit breaker.
type Breaker struct {
	mu       sync.Mutex
	opts     BreakerOpts
	state    State
	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker creates a Breaker; zero-valued opts fields take defaults.
func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = DefaultBreakerOpts.FailThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultBreakerOpts.Cooldown
	}
	return &Breaker{opts: opts, now: time.Now}
}

// State returns the current state, accounting for cooldown expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.Cooldown {
		b.state = StateHalfOpen
	}
	return b.state
}

// Do runs f through the breaker. While open it fails fast with
// ErrCircuitOpen; in half-open a single success closes the breaker and a
// failure re-opens it.
func (b *Breaker) Do(ctx context.Context, f func(context.Context) error) error {
	b.mu.Lock()
	switch b.stateLocked() {
	case StateOpen:
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := f(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.opts.FailThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
		return err
	}
	b.failures = 0
	b.state = StateClosed
	return nil
}
