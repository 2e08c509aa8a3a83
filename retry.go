package txn

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// retryBase is the initial Fibonacci backoff interval. Variable so tests
// can shrink it.
var retryBase = 1 * time.Second

// RunWithRetry executes the Description like Run, re-executing the whole
// run with Fibonacci backoff (up to 5 retries) when the failure is
// retryable per ShouldRetry. Each attempt is a fresh execution: new
// Session, new boundary. Safe because a failed run rolled everything back.
func RunWithRetry[T any](ctx context.Context, r *Runner, d Description[T]) (T, error) {
	var v T
	b := retry.NewFibonacci(retryBase)
	err := retry.Do(ctx, retry.WithMaxRetries(5, b), func(ctx context.Context) error {
		var err error
		v, err = Run(ctx, r, d)
		if err != nil && ShouldRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	return v, err
}

// ShouldRetry reports whether a fresh execution could reasonably succeed.
// Cancellation and capability mismatches are permanent; boundary failures
// leave the outcome ambiguous (the commit may have landed) so they are not
// retried either. Backend failures retry only for transient classes.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch Code(err) {
	case AcquisitionFailed:
		return true
	case BackendFailure:
		switch ClassOf(err) {
		case ClassConnectivity, ClassTimeout, ClassSerialization:
			return true
		}
		return false
	}
	return false
}
