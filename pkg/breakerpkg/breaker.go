// Package breakerpkg provides a circuit breaker that fails fast when a
// downstream resource is judged unhealthy, protecting it from cascading
// load while it recovers.
package breakerpkg

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen indicates that the breaker is open and the call was
// short-circuited without invoking the operation. Callers only ever see it
// through their fallback.
var ErrOpen = errors.New("circuit open")

// State is the breaker state.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String implements fmt.Stringer.
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

// Config holds breaker tuning. Zero values fall back to the defaults
// matching the production settings: window 5, minimum 3 calls, 50% failure
// threshold, 30s open timeout, 3 half-open trials.
type Config struct {
	// WindowSize is the number of most recent call outcomes evaluated.
	WindowSize int
	// MinCalls is the minimum number of recorded outcomes before a
	// failure rate is computed at all.
	MinCalls int
	// FailureThreshold is the failure rate in [0,1] that opens the breaker.
	FailureThreshold float64
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenMax is the number of trial calls permitted while half-open.
	// All of them must succeed to close the breaker again.
	HalfOpenMax int
	// IsFailure classifies an operation error as a failure. When nil,
	// every non-nil error counts. Business rejections are excluded here
	// so that bad input cannot open the breaker.
	IsFailure func(error) bool
}

func (c Config) withDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = 5
	}
	if c.MinCalls <= 0 {
		c.MinCalls = 3
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 0.5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenMax <= 0 {
		c.HalfOpenMax = 3
	}

	return c
}

// Breaker tracks the health of one named resource. Each resource gets its
// own instance; instances are owned by the component they protect, not
// shared globally.
type Breaker struct {
	name string
	cfg  Config

	mu       sync.Mutex
	state    State
	window   []bool // most recent outcomes, true means failure
	openedAt time.Time
	trials   int // half-open trial calls admitted
	results  int // half-open trial calls completed

	now func() time.Time
}

// New returns a closed Breaker for the named resource.
func New(name string, cfg Config) *Breaker {
	return &Breaker{
		name: name,
		cfg:  cfg.withDefaults(),
		now:  time.Now,
	}
}

// Name returns the protected resource name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, promoting Open to HalfOpen once the open
// timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh()

	return b.state
}

// refresh transitions Open to HalfOpen after the wait duration. Callers
// must hold b.mu.
func (b *Breaker) refresh() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.state = StateHalfOpen
		b.trials = 0
		b.results = 0
	}
}

// allow reports whether a call may proceed, reserving a trial slot when
// half-open.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh()

	switch b.state {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.trials >= b.cfg.HalfOpenMax {
			return ErrOpen
		}

		b.trials++
	}

	return nil
}

// record folds one call outcome into the breaker state.
func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.window = append(b.window, failed)
		if len(b.window) > b.cfg.WindowSize {
			b.window = b.window[1:]
		}

		if len(b.window) >= b.cfg.MinCalls && b.failureRate() >= b.cfg.FailureThreshold {
			b.trip()
		}
	case StateHalfOpen:
		if failed {
			b.trip()
			return
		}

		b.results++
		if b.results >= b.cfg.HalfOpenMax {
			b.state = StateClosed
			b.window = nil
		}
	}
}

// trip opens the breaker and restarts the wait timer. Callers must hold b.mu.
func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.window = nil
}

func (b *Breaker) failureRate() float64 {
	failures := 0
	for _, failed := range b.window {
		if failed {
			failures++
		}
	}

	return float64(failures) / float64(len(b.window))
}

func (b *Breaker) isFailure(err error) bool {
	if b.cfg.IsFailure != nil {
		return b.cfg.IsFailure(err)
	}

	return true
}

// Do executes op under the breaker. When the breaker is open, op is never
// invoked and fallback receives ErrOpen. When op fails technically, the
// failure is recorded and fallback receives the error; the raw failure is
// never returned to the caller directly. Errors op returns that the
// breaker's classifier rejects (business rejections) are recorded as
// successes and passed through untouched.
func Do[T any](b *Breaker, op func() (T, error), fallback func(error) (T, error)) (T, error) {
	if err := b.allow(); err != nil {
		return fallback(err)
	}

	v, err := op()
	if err == nil {
		b.record(false)
		return v, nil
	}

	if !b.isFailure(err) {
		b.record(false)
		return v, err
	}

	b.record(true)

	return fallback(err)
}
