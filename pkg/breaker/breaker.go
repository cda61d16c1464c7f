// Package breaker wraps a per-adapter circuit breaker so a source that
// starts failing consistently stops being hammered and degrades
// straight to the adapter's null-equivalent result.
package breaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// Breaker guards a single outbound source's calls.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a Breaker named for the source it guards. It trips after
// three consecutive failures, or when the failure rate exceeds 5% over
// at least twenty requests within the rolling interval.
func New(name string) *Breaker {
	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker. When the breaker is open it
// returns gobreaker.ErrOpenState immediately without calling fn.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return b.cb.Execute(fn)
}
