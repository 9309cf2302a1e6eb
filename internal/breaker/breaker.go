// Package breaker provides a minimal circuit breaker for guarding calls to
// an unreliable external dependency.
package breaker

import (
	"sync"
	"time"
)

const (
	// DefaultThreshold is the consecutive-failure count that opens the circuit
	DefaultThreshold = 5
	// DefaultCooldown is how long the circuit stays open before probing again
	DefaultCooldown = 60 * time.Second
)

// Breaker counts consecutive failures and suspends calls for a cooldown
// period once the threshold is reached. It knows nothing about what it
// guards; one instance per external dependency.
type Breaker struct {
	mu        sync.Mutex
	failures  int
	lastFail  time.Time
	open      bool
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// Option configures a Breaker
type Option func(*Breaker)

// WithThreshold overrides the consecutive-failure threshold
func WithThreshold(n int) Option {
	return func(b *Breaker) { b.threshold = n }
}

// WithCooldown overrides the open-state cooldown
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) { b.cooldown = d }
}

// WithClock injects a time source. Tests use this to step through the
// cooldown without sleeping.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a breaker in the closed state
func New(opts ...Option) *Breaker {
	b := &Breaker{
		threshold: DefaultThreshold,
		cooldown:  DefaultCooldown,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AllowCall reports whether the guarded dependency may be called. While the
// circuit is open it returns false until the cooldown has elapsed; once it
// has, the breaker resets to closed and lets the next call through.
func (b *Breaker) AllowCall() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}

	if b.now().Sub(b.lastFail) < b.cooldown {
		return false
	}

	// Cooldown elapsed: close the circuit and zero the counter
	b.open = false
	b.failures = 0
	return true
}

// RecordSuccess resets the consecutive-failure counter
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure increments the counter, opening the circuit and stamping
// the failure time once the threshold is reached
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFail = b.now()
	if b.failures >= b.threshold {
		b.open = true
	}
}

// Failures returns the current consecutive-failure count
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Open reports whether the circuit is currently open
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
