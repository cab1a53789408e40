// Package resilience provides resilient HTTP client wrappers with circuit breakers,
// timeouts, and retry logic for upstream calls.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	// DefaultOpenTimeout is how long an open circuit rejects calls before probing.
	DefaultOpenTimeout = 60 * time.Second

	// DefaultConsecutiveFailures trips a polled feed's circuit.
	DefaultConsecutiveFailures = 3

	minPollingOpenTimeout = 30 * time.Second
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the circuit breaker for logging/metrics.
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period for clearing internal counts when closed.
	// Zero never clears them.
	Interval time.Duration

	// Timeout is the period of open state before switching to half-open.
	Timeout time.Duration

	// ReadyToTrip determines when to trip the circuit breaker.
	// If nil, DefaultReadyToTrip is used.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called when the circuit breaker state changes.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig suits on-demand calls such as the station
// catalog: it trips on a failure ratio once enough requests were made.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     DefaultOpenTimeout,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// PollingCircuitBreakerConfig suits a feed fetched once per pollInterval.
// A ratio over five requests would take most of an hour to trip at a
// ten minute cadence, so it trips on consecutive failures instead. The open
// timeout is half the poll interval so the next scheduled poll probes.
func PollingCircuitBreakerConfig(name string, pollInterval time.Duration) CircuitBreakerConfig {
	if pollInterval <= 0 {
		return DefaultCircuitBreakerConfig(name)
	}

	timeout := pollInterval / 2
	if timeout < minPollingOpenTimeout {
		timeout = minPollingOpenTimeout
	}

	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: ConsecutiveFailures(DefaultConsecutiveFailures),
	}
}

// DefaultReadyToTrip trips the circuit breaker when at least 5 requests have been made
// and the failure rate is 50% or higher.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// ConsecutiveFailures trips the circuit breaker after n failures in a row.
func ConsecutiveFailures(n uint32) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= n
	}
}

// LogStateChanges returns an OnStateChange hook that logs every transition.
func LogStateChanges(logger zerolog.Logger) func(string, gobreaker.State, gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		event := logger.Info()
		if to == gobreaker.StateOpen {
			event = logger.Warn()
		}
		event.
			Str("provider", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = DefaultReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
