// Package circuitbreaker guards calls to external services.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the state of the circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the timeout elapses.
	StateOpen
	// StateHalfOpen lets one trial call at a time through.
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
	default:
		return "unknown"
	}
}

// Config configures a circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before letting a trial call through.
	Timeout time.Duration
	// OnStateChange is called, under the breaker lock, on every transition.
	OnStateChange func(from, to State)
	// IsFailure decides which errors count against the breaker. Nil counts all.
	IsFailure func(error) bool
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	trialing        bool
	config          Config
	now             func() time.Time
}

// New creates a breaker, filling unset thresholds with 5 failures, 2 successes
// and a 60s open timeout.
func New(config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	return &Breaker{
		state:  StateClosed,
		config: config,
		now:    time.Now,
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
// A context cancelled by the caller is not counted as a failure. While
// half-open, calls made while a trial call is in flight are rejected.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	trial, err := b.beforeCall()
	if err != nil {
		return err
	}

	err = fn()

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		b.releaseTrial(trial)
		return err
	}
	b.afterCall(err, trial)
	return err
}

func (b *Breaker) beforeCall() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		elapsed := b.now().Sub(b.lastFailureTime)
		if elapsed < b.config.Timeout {
			return false, fmt.Errorf("%w: retry after %v", ErrCircuitOpen, b.config.Timeout-elapsed)
		}
		b.transitionTo(StateHalfOpen)
	case StateHalfOpen:
		if b.trialing {
			return false, fmt.Errorf("%w: trial call in flight", ErrCircuitOpen)
		}
	}

	b.trialing = true
	return true, nil
}

func (b *Breaker) releaseTrial(trial bool) {
	if !trial {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialing = false
}

func (b *Breaker) afterCall(err error, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial {
		b.trialing = false
	}
	if err != nil && (b.config.IsFailure == nil || b.config.IsFailure(err)) {
		b.recordFailure()
		return
	}
	b.recordSuccess()
}

func (b *Breaker) recordFailure() {
	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		b.transitionTo(StateOpen)
	case StateOpen:
	}
}

func (b *Breaker) recordSuccess() {
	b.failureCount = 0

	if b.state == StateHalfOpen {
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.transitionTo(StateClosed)
		}
	}
}

func (b *Breaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState
	b.successCount = 0
	if newState != StateHalfOpen {
		b.failureCount = 0
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(oldState, newState)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialing = false
	b.transitionTo(StateClosed)
}
