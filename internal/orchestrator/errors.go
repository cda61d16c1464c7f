package orchestrator

import "errors"

// ErrPreludeCountries and ErrPreludeNormParams mark the two fatal
// prelude reads that must succeed before any per-country work starts.
// Apart from these, only a failed idempotency lookup or a failed
// run-log write makes Run return an error; every other store or
// adapter failure is recorded and folded into the run's partial/error
// status instead.
var (
	ErrPreludeCountries  = errors.New("orchestrator: failed to load countries")
	ErrPreludeNormParams = errors.New("orchestrator: failed to load normalization params")
)

// ErrStoreWrite marks a country's upsert failure mid-loop. It never
// escapes Run; it is wrapped into the per-country error list and the
// run's status.
var ErrStoreWrite = errors.New("orchestrator: store write failed")
