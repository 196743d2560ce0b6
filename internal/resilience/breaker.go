// Package resilience provides failure isolation for external dependencies.
// Each dependency (LLM gateway, search tool) gets its own breaker so an
// outage in one never blocks calls to the other.
package resilience

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// State represents the breaker state
type State string

// Breaker states
const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Defaults match the production configuration
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

// CircuitOpenError is returned when the breaker rejects a call without
// invoking the wrapped operation.
type CircuitOpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit %q is open, retry after %s", e.Name, e.RetryAfter.Round(time.Second))
}

// Breaker implements a consecutive-failure circuit breaker. After
// FailureThreshold consecutive failures the circuit opens and calls fail
// fast. After the cooldown window one trial call is allowed through; its
// outcome decides whether the circuit closes again or re-opens.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trialing bool

	now func() time.Time
}

// NewBreaker creates a breaker with the given thresholds. Zero values fall
// back to the defaults.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// stateLocked applies the open -> half_open transition lazily on read.
func (b *Breaker) stateLocked() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = StateHalfOpen
		b.trialing = false
	}
	return b.state
}

// Do executes fn behind the breaker. In the open state the call is rejected
// immediately with CircuitOpenError. In the half-open state exactly one
// trial call is admitted; concurrent callers are rejected until the trial
// resolves.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if b.trialing {
			return &CircuitOpenError{Name: b.name, RetryAfter: b.cooldown}
		}
		b.trialing = true
		return nil
	default:
		remaining := b.cooldown - b.now().Sub(b.openedAt)
		return &CircuitOpenError{Name: b.name, RetryAfter: remaining}
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == StateHalfOpen {
			log.Printf("[breaker] %s: trial call succeeded, closing circuit", b.name)
		}
		b.state = StateClosed
		b.failures = 0
		b.trialing = false
		return
	}

	if b.state == StateHalfOpen {
		log.Printf("[breaker] %s: trial call failed, re-opening circuit", b.name)
		b.state = StateOpen
		b.openedAt = b.now()
		b.trialing = false
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		log.Printf("[breaker] %s: %d consecutive failures, opening circuit for %s", b.name, b.failures, b.cooldown)
		b.state = StateOpen
		b.openedAt = b.now()
	}
}
