// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides retry helpers for calls to the model endpoint.
package httputil

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// RetryBaseDelay controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// RetryMaxDelay caps a single backoff wait.
var RetryMaxDelay = 30 * time.Second

// Retryable reports whether err is worth another attempt: the endpoint was
// unreachable or timed out, or it answered 429 or 5xx. Configuration errors
// and cancellation are never retried.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, types.ErrConfiguration) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, types.ErrEndpointUnavailable) {
		return true
	}
	var me *types.ModelError
	if errors.As(err, &me) {
		return me.Retryable()
	}
	return false
}

// Retry calls fn until it succeeds, returns a non-retryable error, or
// maxRetries further attempts have failed. The delay starts at
// RetryBaseDelay and doubles each attempt, capped at RetryMaxDelay.
//
// onRetry, when non-nil, is called before each wait with the attempt number
// (1-based) and the error that caused it. If ctx is cancelled during a wait
// Retry returns ctx.Err().
func Retry(ctx context.Context, maxRetries int, fn func(context.Context) error, onRetry func(attempt int, err error)) error {
	if maxRetries <= 0 {
		return fn(ctx)
	}

	backoff := retry.WithCappedDuration(RetryMaxDelay, retry.NewExponential(RetryBaseDelay))
	backoff = retry.WithMaxRetries(uint64(maxRetries), backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		attempt++
		if onRetry != nil && attempt <= maxRetries {
			onRetry(attempt, err)
		}
		return retry.RetryableError(err)
	})
}
