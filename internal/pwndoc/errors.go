package pwndoc

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRateLimit is returned by NewRateLimiter for a non-positive budget.
var ErrInvalidRateLimit = errors.New("rate limit requires positive max requests and period")

// AuthenticationError reports bad credentials or an exhausted re-authentication.
type AuthenticationError struct {
	// Op is the step that failed ("login", "refresh", "request").
	Op string
	// Status is the HTTP status received, or 0 when none was.
	Status int
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("authentication failed (%s, HTTP %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s): %v", e.Op, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RateLimitError reports HTTP 429 responses that outlasted the retry budget.
type RateLimitError struct {
	Method   string
	Path     string
	Attempts int
	// RetryAfter is the server's last Retry-After hint, if any.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("rate limited by server: %s %s failed after %d attempts", e.Method, e.Path, e.Attempts)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	return msg
}

// NotFoundError reports HTTP 404. It is never retried.
type NotFoundError struct {
	Method string
	Path   string
}

func (e *NotFoundError) Error() string {
	return "resource not found: " + e.Path
}

// TransportError reports a request that never produced an HTTP response
// (connection refused, DNS, TLS, timeout) on its final attempt.
type TransportError struct {
	Method   string
	Path     string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s %s failed after %d attempts: %v", e.Method, e.Path, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SerializationError reports a request body that could not be encoded or a
// successful response body that is not JSON.
type SerializationError struct {
	Op   string
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// APIError reports any other non-2xx response. Detail holds the server's
// message when one could be extracted, otherwise the raw body.
type APIError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("API error: HTTP %d on %s %s", e.Status, e.Method, e.Path)
	}
	return fmt.Sprintf("API error: HTTP %d on %s %s: %s", e.Status, e.Method, e.Path, e.Detail)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthentication reports whether err is or wraps an *AuthenticationError.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
