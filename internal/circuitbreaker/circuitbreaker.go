// Package circuitbreaker guards calls to a single prediction endpoint.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state. The numeric value is exported as a gauge.
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
		return "half_open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker. Zero values fall back to 5 failures, 2 probe
// successes and a 30s cool-down.
type Settings struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	CoolDown         time.Duration

	// Counts reports whether err should count against the endpoint.
	// Nil counts every non-nil error.
	Counts func(err error) bool

	// OnTransition is invoked outside the lock after every state change.
	OnTransition func(name string, from, to State)
}

// Breaker opens after FailureThreshold consecutive counted failures, rejects
// calls for CoolDown, then lets probes through until SuccessThreshold of them
// succeed. Any counted failure while half-open reopens it.
type Breaker struct {
	settings Settings
	now      func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New returns a closed Breaker.
func New(s Settings) *Breaker {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 2
	}
	if s.CoolDown <= 0 {
		s.CoolDown = 30 * time.Second
	}
	return &Breaker{settings: s, now: time.Now}
}

// Name returns the endpoint name the breaker guards.
func (b *Breaker) Name() string { return b.settings.Name }

// Execute runs fn if the breaker admits the call and records its outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current state, moving open to half-open once the cool-down elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	from, to := b.refreshLocked()
	state := b.state
	b.mu.Unlock()
	b.notify(from, to)
	return state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	from, to := b.refreshLocked()
	open := b.state == StateOpen
	b.mu.Unlock()
	b.notify(from, to)
	if open {
		return ErrOpen
	}
	return nil
}

// refreshLocked applies the time-based open -> half-open transition.
func (b *Breaker) refreshLocked() (State, State) {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.CoolDown {
		b.state = StateHalfOpen
		b.successes = 0
		return StateOpen, StateHalfOpen
	}
	return b.state, b.state
}

func (b *Breaker) record(err error) {
	counted := err != nil
	if counted && b.settings.Counts != nil {
		counted = b.settings.Counts(err)
	}

	b.mu.Lock()
	from := b.state
	switch {
	case counted:
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.settings.FailureThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			b.failures = 0
		}
	case err == nil:
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.settings.SuccessThreshold {
				b.state = StateClosed
				b.successes = 0
			}
		}
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.settings.OnTransition != nil {
		b.settings.OnTransition(b.settings.Name, from, to)
	}
}
