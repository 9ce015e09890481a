package client

import (
	"errors"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	recsys "github.com/deeplooplabs/recsys-client"
)

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Requests allowed through while half-open (default: 1)
	Interval         time.Duration // Closed-state counter reset interval (default: 60s)
	Timeout          time.Duration // Time spent open before going half-open (default: 30s)
	FailureThreshold uint32        // Consecutive failures that open the breaker (default: 5)
}

// DefaultBreakerConfig returns a default circuit breaker configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "recommendation-api",
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// newBreaker builds a breaker that only counts transport failures and 5xx
// responses against the API; bad payloads and 4xx do not trip it. Requests
// abandoned by their caller are not counted at all.
func newBreaker(cfg BreakerConfig, onStateChange func(name string, from, to gobreaker.State)) *gobreaker.CircuitBreaker[[]byte] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var reqErr *recsys.RequestError
			if !errors.As(err, &reqErr) {
				return false
			}
			switch reqErr.Kind {
			case recsys.ErrorKindShape:
				return true
			case recsys.ErrorKindStatus:
				return reqErr.StatusCode < http.StatusInternalServerError
			default:
				return false
			}
		},
		IsExcluded: func(err error) bool {
			var ce *callerError
			return errors.As(err, &ce)
		},
		OnStateChange: onStateChange,
	}

	return gobreaker.NewCircuitBreaker[[]byte](settings)
}

// callerError marks a failure caused by the caller's context ending, not by the API
type callerError struct {
	err error
}

func (e *callerError) Error() string { return e.err.Error() }

func (e *callerError) Unwrap() error { return e.err }

// isBreakerRejection reports whether err came from the breaker refusing the call
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
