// Package webclient builds the outbound HTTP clients shared by the API
// fetcher and the asset scraper.
package webclient

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const userAgent = "squadsync/1.0"

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

// RetryPolicy bounds how outbound requests are retried. Zero values fall
// back to defaults; tests inject zero delays for determinism.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}

	if p.BaseDelay < 0 {
		p.BaseDelay = defaultBaseDelay
	}

	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}

	return p
}

// New returns a resty client with the shared timeout, retry and
// instrumentation setup. Retries fire on transport errors, 429 and 5xx;
// the wait between attempts grows up to the policy cap.
func New(timeout time.Duration, policy RetryPolicy) *resty.Client {
	policy = policy.withDefaults()

	client := resty.NewWithClient(&http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})

	client.SetHeader("User-Agent", userAgent)
	client.SetRetryCount(policy.MaxAttempts - 1)
	client.SetRetryWaitTime(policy.BaseDelay)
	client.SetRetryMaxWaitTime(policy.MaxDelay)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}

		return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
	})

	return client
}
