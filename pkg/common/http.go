// Package common holds the shared HTTP machinery behind the REST surface:
// one client that paces requests through a rate limiter and retries the
// status codes the exchange documents as transient.
package common

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"github.com/leftys/go-ascendex/pkg/logging"
	"github.com/leftys/go-ascendex/pkg/ratelimit"
)

// HTTPClient executes REST requests with rate limiting and retries.
type HTTPClient interface {
	// Do runs one request. Responses with 5xx or 429 status are retried
	// with the configured delay; all other responses, including non-2xx,
	// are returned to the caller as-is.
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// ClientConfig configures the shared HTTP client.
type ClientConfig struct {
	Timeout    time.Duration
	RateLimit  ratelimit.Rate
	MaxRetries uint
	RetryDelay time.Duration
	Logger     logging.Logger
}

type httpClient struct {
	inner   *http.Client
	limiter ratelimit.RateLimiter
	config  *ClientConfig
	logger  logging.Logger
}

// NewHTTPClient creates a client from the given configuration.
func NewHTTPClient(config *ClientConfig) HTTPClient {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	return &httpClient{
		inner:   &http.Client{Timeout: config.Timeout},
		limiter: ratelimit.NewTokenBucketLimiter(config.RateLimit),
		config:  config,
		logger:  logger,
	}
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

func (c *httpClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Buffer the body once so retried attempts can replay it
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}

	var resp *http.Response
	err := retry.Do(
		func() error {
			attempt := req.Clone(ctx)
			if body != nil {
				attempt.Body = io.NopCloser(bytes.NewReader(body))
			}

			var err error
			resp, err = c.inner.Do(attempt)
			if err != nil {
				return err
			}

			if retryableStatus(resp.StatusCode) {
				// Release the connection before the next attempt
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return fmt.Errorf("status %d from %s", resp.StatusCode, req.URL.Path)
			}
			return nil
		},
		retry.Attempts(c.config.MaxRetries),
		retry.Delay(c.config.RetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying request",
				logging.Int("attempt", int(n+1)),
				logging.String("url", req.URL.String()),
				logging.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}
