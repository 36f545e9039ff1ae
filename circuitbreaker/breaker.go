package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrOpenState is returned by Execute when the breaker rejects the call
// without invoking the protected operation
var ErrOpenState = errors.New("circuit breaker is open")

// State represents the breaker state derived from its failure history
type State int

const (
	// Closed means calls flow through normally
	Closed State = iota
	// Open means calls fail fast without invoking the protected operation
	Open
	// HalfOpen means the recovery timeout elapsed and a single probe call may go through
	HalfOpen
	// ClosedStr is the string rep of Closed
	ClosedStr = "CLOSED"
	// OpenStr is the string rep of Open
	OpenStr = "OPEN"
	// HalfOpenStr is the string rep of HalfOpen
	HalfOpenStr = "HALF_OPEN"
)

func (state State) String() string {
	switch state {
	case Open:
		return OpenStr
	case HalfOpen:
		return HalfOpenStr
	default:
		return ClosedStr
	}
}

// Breaker protects one downstream dependency. It trips after a run of
// consecutive failures and, once the recovery timeout elapses, admits a
// single probe call whose outcome alone decides whether the breaker closes
// again or stays open.
type Breaker struct {
	name                string
	failureThreshold    uint
	recoveryTimeout     time.Duration
	mutex               sync.Mutex
	consecutiveFailures uint
	lastFailureAt       time.Time
	probeInFlight       bool
	now                 func() time.Time
}

// Snapshot is a point in time view of a breaker's state for operators
type Snapshot struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures uint      `json:"consecutiveFailures"`
	LastFailureAt       time.Time `json:"lastFailureAt,omitempty"`
}

// state must be called with the mutex held
func (breaker *Breaker) state(currentTime time.Time) State {
	if breaker.consecutiveFailures < breaker.failureThreshold {
		return Closed
	}
	if currentTime.Sub(breaker.lastFailureAt) >= breaker.recoveryTimeout {
		return HalfOpen
	}
	return Open
}

// State returns the current derived state
func (breaker *Breaker) State() State {
	breaker.mutex.Lock()
	defer breaker.mutex.Unlock()
	return breaker.state(breaker.now())
}

// Execute runs the operation under the breaker's admission policy. When the
// breaker is open, or half-open with the probe slot taken, the operation is
// not invoked and ErrOpenState is returned.
func (breaker *Breaker) Execute(operation func() error) error {
	breaker.mutex.Lock()
	currentTime := breaker.now()
	switch breaker.state(currentTime) {
	case Open:
		breaker.mutex.Unlock()
		return ErrOpenState
	case HalfOpen:
		if breaker.probeInFlight {
			breaker.mutex.Unlock()
			return ErrOpenState
		}
		breaker.probeInFlight = true
	}
	breaker.mutex.Unlock()
	err := operation()
	breaker.recordOutcome(err)
	return err
}

func (breaker *Breaker) recordOutcome(err error) {
	breaker.mutex.Lock()
	defer breaker.mutex.Unlock()
	breaker.probeInFlight = false
	if err == nil {
		if breaker.consecutiveFailures >= breaker.failureThreshold {
			log.Info().Str("breaker", breaker.name).Msg("breaker closed after successful probe")
		}
		breaker.consecutiveFailures = 0
		return
	}
	breaker.consecutiveFailures++
	breaker.lastFailureAt = breaker.now()
	if breaker.consecutiveFailures == breaker.failureThreshold {
		log.Error().Str("breaker", breaker.name).Uint("consecutiveFailures", breaker.consecutiveFailures).Msg("breaker opened")
	}
}

// Reset force closes the breaker clearing its failure history
func (breaker *Breaker) Reset() {
	breaker.mutex.Lock()
	defer breaker.mutex.Unlock()
	breaker.consecutiveFailures = 0
	breaker.probeInFlight = false
	breaker.lastFailureAt = time.Time{}
}

// GetSnapshot returns the operator view of the breaker
func (breaker *Breaker) GetSnapshot() Snapshot {
	breaker.mutex.Lock()
	defer breaker.mutex.Unlock()
	return Snapshot{
		Name:                breaker.name,
		State:               breaker.state(breaker.now()).String(),
		ConsecutiveFailures: breaker.consecutiveFailures,
		LastFailureAt:       breaker.lastFailureAt,
	}
}

// NewBreaker creates a breaker for the named dependency
func NewBreaker(name string, failureThreshold uint, recoveryTimeout time.Duration) *Breaker {
	return &Breaker{name: name, failureThreshold: failureThreshold, recoveryTimeout: recoveryTimeout, now: time.Now}
}
