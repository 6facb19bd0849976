// Package retry bounds the flaky navigation steps of the portal automation.
// Transient failures (timeouts, dropped connections, proxy tunnel failures)
// are retried a fixed number of times with a short constant delay; everything
// else fails immediately.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the retry policy for a navigation step.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the fixed pause between tries.
	Delay time.Duration
}

// DefaultPolicy matches the portal automation's historical behavior: three
// attempts total with a two second pause.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: 2 * time.Second}
}

// permanentError marks an error that must not be retried regardless of shape.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Navigation fails immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// transientError marks an error as retryable even when its shape says nothing.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient wraps err so Navigation retries it. Used for conditions like a
// missing portal session cookie, where the portal may simply be flapping.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// chromeTransient lists Chrome network error markers that a later attempt can
// plausibly recover from. Invalid proxy credentials surface as a tunnel
// failure, so they burn through the full attempt budget before reporting a
// network error.
var chromeTransient = []string{
	"ERR_TIMED_OUT",
	"ERR_CONNECTION_TIMED_OUT",
	"ERR_CONNECTION_RESET",
	"ERR_CONNECTION_CLOSED",
	"ERR_CONNECTION_REFUSED",
	"ERR_EMPTY_RESPONSE",
	"ERR_TUNNEL_CONNECTION_FAILED",
	"ERR_NETWORK_CHANGED",
}

// chromePermanent lists markers where retrying is pointless.
var chromePermanent = []string{
	"ERR_NAME_NOT_RESOLVED",
	"ERR_PROXY_CONNECTION_FAILED",
	"ERR_NO_SUPPORTED_PROXIES",
}

// Transient classifies an error as retryable.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var trans *transientError
	if errors.As(err, &trans) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// A per-navigation deadline is transient; the parent context's own
	// cancellation stops the loop via backoff.WithContext.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range chromePermanent {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	for _, marker := range chromeTransient {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Navigation runs op under the policy. The returned error is the last
// attempt's, unwrapped from any Permanent marker.
func (p Policy) Navigation(ctx context.Context, op func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)

	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	var trans *transientError
	if errors.As(err, &trans) {
		return trans.err
	}
	return err
}
