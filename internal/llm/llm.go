// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm invokes generative models. A Model turns prompt text into
// free-form response text; it may fail or return malformed content and the
// caller decides how to recover. Provider clients are built by a Factory
// from an immutable types.ModelConfig, one fresh handle per request.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("model returned empty content")

// Model is the prompt-in, text-out contract every pipeline stage depends on.
type Model interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

// Invoke calls f.
func (f ModelFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// retrying wraps a Model with exponential backoff.
type retrying struct {
	next       Model
	maxRetries int
}

// WithRetry returns a Model that retries failed invocations up to
// maxRetries times, doubling the delay from backoffBase each attempt.
// A cancelled context stops the retries immediately.
func WithRetry(m Model, maxRetries int) Model {
	if maxRetries <= 0 {
		return m
	}
	return &retrying{next: m, maxRetries: maxRetries}
}

func (r *retrying) Invoke(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := r.next.Invoke(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}
