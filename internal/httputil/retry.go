// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the marketplace API
// client and the competitor page scraper.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps a server-supplied Retry-After delay.
const maxRetryAfter = time.Minute

const defaultMaxRetries = 5

// Policy describes when and how often a request is retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero selects the default (5).
	MaxRetries int

	// RetryStatus reports whether a response status should be retried.
	// Nil retries only HTTP 429.
	RetryStatus func(code int) bool

	// RetryErrors retries transport errors (connection reset, timeout)
	// in addition to retryable statuses.
	RetryErrors bool

	Logger *zap.Logger
}

// RateLimited retries HTTP 429 only.
func RateLimited(code int) bool { return code == http.StatusTooManyRequests }

// Transient retries HTTP 429 and any 5xx status.
func Transient(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// DoWithRetry executes req and retries on HTTP 429 with exponential backoff
// starting at RetryBaseDelay. When maxRetries is 0 the default (5) is used.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	return Policy{MaxRetries: maxRetries}.Do(ctx, client, req)
}

// Do executes req under the policy. Each attempt sends a fresh copy of the
// request body when req.GetBody is set. Between attempts the response body is
// drained and closed. The delay doubles each attempt unless the server sent
// a Retry-After header in seconds. If ctx is cancelled during a wait, Do
// returns ctx.Err(). After exhausting retries the last response (or
// transport error) is returned so the caller can inspect it.
func (p Policy) Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryStatus := p.RetryStatus
	if retryStatus == nil {
		retryStatus = RateLimited
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			r.Body = body
		}
		resp, err := client.Do(r)
		switch {
		case err != nil:
			if !p.RetryErrors || attempt >= maxRetries || ctx.Err() != nil {
				return nil, err
			}
		case !retryStatus(resp.StatusCode) || attempt >= maxRetries:
			return resp, nil
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if resp != nil {
			if d, ok := retryAfter(resp); ok {
				backoff = d
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		logger.Debug("retrying request",
			zap.String("url", req.URL.String()),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d, true
}
