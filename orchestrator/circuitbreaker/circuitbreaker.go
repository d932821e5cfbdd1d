// Copyright 2025 AI Council
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package circuitbreaker implements per-provider failure circuit breaking
// with exponential-backoff recovery.
//
// Each provider gets an independent three-state machine (Closed, Open,
// HalfOpen). Consecutive failures open the circuit; after the current
// timeout elapses the next state read moves it to HalfOpen, where a small
// number of trial successes close it again. A failure during HalfOpen
// reopens the circuit and doubles the timeout, capped at a maximum.
package circuitbreaker

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// State is the phase of a provider's circuit.
type State int

const (
	// StateClosed allows requests through (normal operation).
	StateClosed State = iota

	// StateOpen rejects all requests for the provider.
	StateOpen

	// StateHalfOpen lets trial requests through to test recovery.
	StateHalfOpen
)

// String returns the lowercase name used in stats and logs.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the
// provider's circuit is open. The provider was never contacted, so the
// rejection is not recorded as a new failure.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds the breaker thresholds shared by all providers.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit from Closed.
	FailureThreshold int

	// Timeout is the base wait before an open circuit admits trial
	// requests. It is also the value the timeout resets to on a full
	// close.
	Timeout time.Duration

	// SuccessThreshold is the number of HalfOpen successes needed to
	// close the circuit.
	SuccessThreshold int

	// MaxTimeout caps the exponential backoff.
	MaxTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		SuccessThreshold: 2,
		MaxTimeout:       300 * time.Second,
	}
}

// providerState is the mutable circuit state for one provider. All fields
// are guarded by the CircuitBreaker mutex.
type providerState struct {
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	openedAt        time.Time
	timeout         time.Duration
}

// CircuitBreaker tracks circuit state for any number of providers.
// Provider state is created lazily on first reference and is fully
// independent between providers. All methods are safe for concurrent use.
type CircuitBreaker struct {
	config        Config
	logger        *log.Logger
	now           func() time.Time
	onStateChange func(provider string, from, to State)

	mu     sync.Mutex
	states map[string]*providerState
}

// Option configures the CircuitBreaker during creation.
type Option func(*CircuitBreaker)

// WithLogger sets a custom logger.
func WithLogger(logger *log.Logger) Option {
	return func(cb *CircuitBreaker) {
		cb.logger = logger
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// WithStateChangeHook registers a callback invoked on every circuit
// transition. The callback runs with the breaker lock held and must not
// call back into the breaker.
func WithStateChangeHook(hook func(provider string, from, to State)) Option {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = hook
	}
}

// New creates a CircuitBreaker with the given config.
func New(config Config, opts ...Option) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.MaxTimeout <= 0 {
		config.MaxTimeout = 300 * time.Second
	}

	cb := &CircuitBreaker{
		config: config,
		states: make(map[string]*providerState),
		logger: log.New(os.Stdout, "[CIRCUIT_BREAKER] ", log.LstdFlags),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(cb)
	}

	return cb
}

// stateFor returns the provider's state, creating it on first reference.
// Caller must hold cb.mu.
func (cb *CircuitBreaker) stateFor(provider string) *providerState {
	st, ok := cb.states[provider]
	if !ok {
		st = &providerState{
			state:   StateClosed,
			timeout: cb.config.Timeout,
		}
		cb.states[provider] = st
	}
	return st
}

// transition moves the provider's circuit to a new phase and notifies the
// state change hook. Caller must hold cb.mu.
func (cb *CircuitBreaker) transition(provider string, st *providerState, to State) {
	from := st.state
	if from == to {
		return
	}
	st.state = to
	if cb.onStateChange != nil {
		cb.onStateChange(provider, from, to)
	}
}

// evaluate applies the lazy Open -> HalfOpen transition if the current
// timeout has elapsed. Caller must hold cb.mu.
func (cb *CircuitBreaker) evaluate(provider string, st *providerState) {
	if st.state != StateOpen || st.openedAt.IsZero() {
		return
	}
	if cb.now().Sub(st.openedAt) >= st.timeout {
		cb.transition(provider, st, StateHalfOpen)
		st.successCount = 0
		cb.logger.Printf("Provider %s: circuit half-open after %v timeout", provider, st.timeout)
	}
}

// GetState returns the provider's current phase. Reading the state of an
// open circuit whose timeout has elapsed transitions it to HalfOpen.
func (cb *CircuitBreaker) GetState(provider string) State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := cb.stateFor(provider)
	cb.evaluate(provider, st)
	return st.state
}

// IsAvailable reports whether requests for the provider may proceed.
func (cb *CircuitBreaker) IsAvailable(provider string) bool {
	return cb.GetState(provider) != StateOpen
}

// RecordSuccess records a successful provider call.
func (cb *CircuitBreaker) RecordSuccess(provider string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := cb.stateFor(provider)
	cb.evaluate(provider, st)

	switch st.state {
	case StateHalfOpen:
		st.successCount++
		if st.successCount >= cb.config.SuccessThreshold {
			cb.transition(provider, st, StateClosed)
			st.failureCount = 0
			st.successCount = 0
			st.timeout = cb.config.Timeout
			cb.logger.Printf("Provider %s: circuit closed (recovered)", provider)
		}
	case StateClosed:
		st.failureCount = 0
	}
}

// RecordFailure records a failed provider call.
func (cb *CircuitBreaker) RecordFailure(provider string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := cb.stateFor(provider)
	cb.evaluate(provider, st)
	st.failureCount++
	st.lastFailureTime = cb.now()

	switch st.state {
	case StateHalfOpen:
		// Trial failed: reopen with doubled timeout, capped.
		cb.transition(provider, st, StateOpen)
		st.openedAt = cb.now()
		st.timeout = st.timeout * 2
		if st.timeout > cb.config.MaxTimeout {
			st.timeout = cb.config.MaxTimeout
		}
		cb.logger.Printf("Provider %s: circuit reopened, timeout now %v", provider, st.timeout)
	case StateClosed:
		if st.failureCount >= cb.config.FailureThreshold {
			cb.transition(provider, st, StateOpen)
			st.openedAt = cb.now()
			st.timeout = cb.config.Timeout
			cb.logger.Printf("Provider %s: circuit opened after %d consecutive failures",
				provider, st.failureCount)
		}
	}
}

// Call executes fn under circuit breaker protection. If the provider's
// circuit is open, fn is never invoked and the returned error wraps
// ErrCircuitOpen. Otherwise fn's outcome is recorded as a success or
// failure for the provider.
func (cb *CircuitBreaker) Call(provider string, fn func() error) error {
	if !cb.IsAvailable(provider) {
		return fmt.Errorf("provider %q: %w", provider, ErrCircuitOpen)
	}

	if err := fn(); err != nil {
		cb.RecordFailure(provider)
		return err
	}

	cb.RecordSuccess(provider)
	return nil
}

// FallbackProvider returns the first candidate, in the order supplied,
// that is currently available and is not the failed provider. The second
// return value is false when no candidate qualifies.
func (cb *CircuitBreaker) FallbackProvider(failed string, candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if candidate != failed && cb.IsAvailable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Reset forces the provider's circuit back to Closed with zero counters
// and the base timeout. Administrative escape hatch; never fails.
func (cb *CircuitBreaker) Reset(provider string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if st, ok := cb.states[provider]; ok {
		cb.transition(provider, st, StateClosed)
	}
	cb.states[provider] = &providerState{
		state:   StateClosed,
		timeout: cb.config.Timeout,
	}
	cb.logger.Printf("Provider %s: circuit reset", provider)
}

// Stats is a point-in-time snapshot of one provider's circuit.
type Stats struct {
	State           string    `json:"state"`
	FailureCount    int       `json:"failure_count"`
	SuccessCount    int       `json:"success_count"`
	Timeout         float64   `json:"timeout_seconds"`
	LastFailureTime time.Time `json:"last_failure_time,omitempty"`
	OpenedAt        time.Time `json:"opened_at,omitempty"`
}

// Stats returns a snapshot for the provider. Unknown providers report a
// pristine closed circuit. The snapshot applies the same lazy transition
// as GetState.
func (cb *CircuitBreaker) Stats(provider string) Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st, ok := cb.states[provider]
	if !ok {
		return Stats{
			State:   StateClosed.String(),
			Timeout: cb.config.Timeout.Seconds(),
		}
	}

	cb.evaluate(provider, st)

	return Stats{
		State:           st.state.String(),
		FailureCount:    st.failureCount,
		SuccessCount:    st.successCount,
		Timeout:         st.timeout.Seconds(),
		LastFailureTime: st.lastFailureTime,
		OpenedAt:        st.openedAt,
	}
}

// Providers returns the names of all providers with recorded state.
func (cb *CircuitBreaker) Providers() []string {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	names := make([]string, 0, len(cb.states))
	for name := range cb.states {
		names = append(names, name)
	}
	return names
}
