package retry

import (
	"errors"
	"net"
	"strings"

	"github.com/spetersoncode/concierge"
)

// IsTransient reports whether err is worth retrying.
//
// A categorized error decides by its category. Otherwise an HTTP status
// code (429, 5xx), a network timeout, or a well-known transient message
// marks the error as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce concierge.CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == concierge.ErrorTransient
	}

	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return isTransientStatusCode(sc.StatusCode())
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isTransientStatusCode(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}

var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"temporary failure",
	"rate limit",
	"too many requests",
	"service unavailable",
	"bad gateway",
	"error 429",
	"error 500",
	"error 502",
	"error 503",
	"error 504",
	"overloaded",
}
