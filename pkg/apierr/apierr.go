package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Class is the retry-relevant category of an outbound call failure.
type Class int

const (
	// ClassOther covers any status with no dedicated handling (4xx validation errors etc).
	ClassOther Class = iota
	// ClassNotFound is HTTP 404.
	ClassNotFound
	// ClassServerError is any HTTP 5xx.
	ClassServerError
	// ClassRateLimited is HTTP 429.
	ClassRateLimited
	// ClassTimeout is HTTP 408 (and 504 from gateways that time out upstream).
	ClassTimeout
	// ClassTransient is a network failure that never produced a status.
	ClassTransient
)

func (c Class) String() string {
	switch c {
	case ClassNotFound:
		return "not_found"
	case ClassServerError:
		return "server_error"
	case ClassRateLimited:
		return "rate_limited"
	case ClassTimeout:
		return "timeout"
	case ClassTransient:
		return "transient"
	default:
		return "other"
	}
}

// Classify maps an HTTP status code to its Class.
func Classify(status int) Class {
	switch {
	case status == http.StatusNotFound:
		return ClassNotFound
	case status == http.StatusTooManyRequests:
		return ClassRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ClassTimeout
	case status >= 500:
		return ClassServerError
	default:
		return ClassOther
	}
}

// Error is returned by the outbound API clients for every non-2xx response
// and for transport failures.
type Error struct {
	Service string
	Status  int
	Class   Class
	Body    string
	Err     error
}

// FromResponse builds an Error for a non-2xx response.
func FromResponse(service string, status int, body []byte) *Error {
	return &Error{
		Service: service,
		Status:  status,
		Class:   Classify(status),
		Body:    truncate(string(body), 512),
	}
}

// Transport wraps a network-level failure (no HTTP status available).
func Transport(service string, err error) *Error {
	return &Error{Service: service, Class: ClassTransient, Err: err}
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: transport error: %v", e.Service, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d (%s)", e.Service, e.Status, e.Class)
	}
	return fmt.Sprintf("%s: HTTP %d (%s): %s", e.Service, e.Status, e.Class, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// ClassOf extracts the Class of err. Errors that are not *Error are treated
// as ClassOther so that they surface immediately instead of being retried.
func ClassOf(err error) Class {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ClassOther
}

// IsNotFound reports whether err carries a 404.
func IsNotFound(err error) bool {
	return ClassOf(err) == ClassNotFound
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
