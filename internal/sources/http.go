package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"macro-stress-pipeline/pkg/breaker"
	"macro-stress-pipeline/pkg/httpclient"
	"macro-stress-pipeline/pkg/logger"
)

// getJSON performs a rate-limited, circuit-broken GET against url and
// decodes the response body into out. It never returns an error the
// caller is expected to propagate further than logging: every adapter
// method treats a non-nil error from getJSON as "this metric is
// missing today" and returns its null-equivalent.
func getJSON(ctx context.Context, name string, client *httpclient.Limited, cb *breaker.Breaker, log *logger.Logger, url string, out interface{}) error {
	fields := []zap.Field{
		logger.StringField("source", name),
		logger.StringField("url", url),
	}

	if err := client.Limiter.Wait(ctx); err != nil {
		log.ErrorContext(ctx, "source: rate limiter wait failed", append(fields, logger.ErrorField(err))...)
		return err
	}

	_, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("non-OK status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		log.ErrorContext(ctx, "source: request failed", append(fields, logger.ErrorField(err))...)
		return err
	}
	return nil
}
