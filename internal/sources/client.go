package sources

import (
	"time"

	"macro-stress-pipeline/pkg/config"
	"macro-stress-pipeline/pkg/httpclient"
)

// newClient builds the rate-limited HTTP client shared by every
// adapter from the sources config block, falling back to the package
// defaults when a duration fails to parse or is unset.
func newClient(cfg config.Sources) *httpclient.Limited {
	timeout, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil || timeout <= 0 {
		timeout = httpclient.DefaultTimeout
	}
	return httpclient.New(timeout, cfg.MaxRequestsPerMin)
}
