package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// RetryConfig controls retry behavior.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	// Jitter spreads each wait uniformly over [1-Jitter, 1+Jitter] of the
	// computed backoff. Zero disables it.
	Jitter float64
	// Retryable overrides IsTransient when set.
	Retryable func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(RetryEvent)
}

// RetryEvent describes one scheduled retry.
type RetryEvent struct {
	Attempt int
	Wait    time.Duration
	Err     error
}

// DefaultRetryConfig is suitable for most HTTP calls.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
	Jitter:      0.1,
}

// RetryDo retries fn up to MaxRetries times with exponential backoff.
// Retries only on retryable errors; returns immediately on non-retryable or context cancellation.
// A Retry-After carried by the error replaces the computed backoff.
func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	retryable := rc.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}

		if attempt < rc.MaxRetries {
			wait := RetryAfter(err)
			if wait <= 0 {
				wait = Backoff(rc, attempt)
			}
			if rc.OnRetry != nil {
				rc.OnRetry(RetryEvent{Attempt: attempt + 1, Wait: wait, Err: err})
			}
			slog.Debug("retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", wait), slog.Any("error", err))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

// Backoff returns the jittered exponential wait before retry number attempt+1.
func Backoff(rc RetryConfig, attempt int) time.Duration {
	mult := rc.Multiplier
	if mult <= 0 {
		mult = 2
	}
	wait := float64(rc.InitialWait) * math.Pow(mult, float64(attempt))
	if rc.MaxWait > 0 && wait > float64(rc.MaxWait) {
		wait = float64(rc.MaxWait)
	}
	if rc.Jitter > 0 {
		wait = wait*(1-rc.Jitter) + rand.Float64()*2*rc.Jitter*wait
	}
	if rc.MaxWait > 0 && wait > float64(rc.MaxWait) {
		wait = float64(rc.MaxWait)
	}
	return time.Duration(wait)
}

// RetryHTTP executes an HTTP request function with retry logic.
// The function should build and send the request; RetryHTTP handles response status checks.
func RetryHTTP(ctx context.Context, rc RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return RetryDo(ctx, rc, func() (*http.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if isRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, &StatusError{
				Code:       resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			}
		}
		return resp, nil
	})
}

// StatusError is an upstream failure with an HTTP-like status code.
// Code 0 means the upstream gave no status.
type StatusError struct {
	Code       int
	Status     string
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	if e.Status != "" {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Status, msg)
	}
	return fmt.Sprintf("%d %s", e.Code, msg)
}

// StatusCode extracts an upstream status code from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return 0
}

// RetryAfter returns the server-requested wait carried by err, or 0.
func RetryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) && ge.Header != nil {
		return ParseRetryAfter(ge.Header.Get("Retry-After"), time.Now())
	}
	return 0
}

// ParseRetryAfter parses a Retry-After value given either as delay seconds
// or as an HTTP date. Unparseable or past values yield 0.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// IsTransient returns true for transient errors worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return isRetryableStatus(se.Code) || transientMessage(se.Message)
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return isRetryableStatus(ge.Code)
	}

	// Connection errors (dial failures, connection refused, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// net.Error includes OpError, so check after OpError
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return transientMessage(err.Error())
}

func transientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "overloaded") || strings.Contains(msg, "unavailable")
}

// isRetryableStatus returns true for HTTP status codes worth retrying.
func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
