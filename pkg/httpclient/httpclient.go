// Package httpclient builds the rate-limited HTTP clients shared by the
// source adapters, following the timeout+rate.Limiter idiom used for
// outbound provider calls.
package httpclient

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout is the default outbound call timeout for free-tier
// data providers.
const DefaultTimeout = 15 * time.Second

// BackfillTimeout is the longer timeout used for bulk history pulls
// during offline backfill.
const BackfillTimeout = 25 * time.Second

// Limited bundles an HTTP client with a request-rate limiter, so an
// adapter can both bound wall-clock time per call and stay polite to a
// free-tier provider across many calls.
type Limited struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// New builds a Limited client with the given timeout and a limiter
// allowing at most maxPerMinute requests per minute (0 disables
// limiting).
func New(timeout time.Duration, maxPerMinute int) *Limited {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if maxPerMinute > 0 {
		interval := time.Minute / time.Duration(maxPerMinute)
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return &Limited{
		Client:  &http.Client{Timeout: timeout},
		Limiter: limiter,
	}
}
