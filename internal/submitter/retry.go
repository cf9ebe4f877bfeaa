package submitter

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/outreach/internal/models"
)

// Transient failure signatures. Only errors matching one of these are worth
// retrying; structural failures like a missing submit button produce the
// same outcome on every attempt.
var transientSignatures = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"navigation failed",
	"net::err_connection",
	"net::err_timed_out",
	"net::err_network",
	"page crashed",
	"browser crashed",
	"crashed",
	"target closed",
	"session closed",
}

// ShouldRetry reports whether an error message looks transient
func ShouldRetry(message string) bool {
	lower := strings.ToLower(message)
	for _, signature := range transientSignatures {
		if strings.Contains(lower, signature) {
			return true
		}
	}
	return false
}

// WithRetry invokes fn up to maxAttempts total times, sleeping delay between
// attempts. Only errors whose text matches a transient signature trigger a
// retry; any other error, and the last error after the attempt budget is
// spent, is returned as-is.
func WithRetry(ctx context.Context, maxAttempts int, delay time.Duration, fn func(context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !ShouldRetry(lastErr.Error()) || attempt == maxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
	}
	return lastErr
}

// RetrySubmission applies the same policy to an actor call: a failed result
// with a transient message is attempted again, anything else is final.
func RetrySubmission(ctx context.Context, maxAttempts int, delay time.Duration, fn func(context.Context) models.SubmissionResult) models.SubmissionResult {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var result models.SubmissionResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result = fn(ctx)
		if result.Status != models.SubmissionStatusFailed || !ShouldRetry(result.Message) || attempt == maxAttempts {
			return result
		}

		select {
		case <-ctx.Done():
			return result
		case <-time.After(delay):
		}
	}
	return result
}
