// Package apierr maps provider HTTP failures onto categorized errors.
package apierr

import (
	"net/http"
	"strconv"
	"time"

	"github.com/spetersoncode/concierge"
)

// Categorize determines the error category from an HTTP status code.
func Categorize(code int) concierge.ErrorCategory {
	switch {
	case code == http.StatusTooManyRequests:
		return concierge.ErrorTransient
	case code >= 500 && code < 600:
		return concierge.ErrorTransient
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return concierge.ErrorPermanent
	case code == http.StatusBadRequest || code == http.StatusNotFound || code == http.StatusUnprocessableEntity:
		return concierge.ErrorUserInput
	default:
		return concierge.ErrorPermanent
	}
}

// RetryAfter extracts the Retry-After duration from an HTTP response.
// Returns 0 if the header is missing or unparseable.
func RetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}

// New builds a categorized error of the given kind for an HTTP failure.
func New(kind error, code int, retryAfter time.Duration, msg string, cause error) error {
	switch Categorize(code) {
	case concierge.ErrorTransient:
		if retryAfter > 0 {
			return concierge.NewTransientErrorWithRetry(kind, msg, code, retryAfter, cause)
		}
		return concierge.NewTransientError(kind, msg, code, cause)
	case concierge.ErrorUserInput:
		return concierge.NewUserInputError(kind, msg, code, cause)
	default:
		return concierge.NewPermanentError(kind, msg, code, cause)
	}
}
