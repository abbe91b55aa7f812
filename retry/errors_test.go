package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spetersoncode/concierge"
)

type statusError struct {
	code int
}

func (e *statusError) Error() string   { return fmt.Sprintf("provider returned %d", e.code) }
func (e *statusError) StatusCode() int { return e.code }

type timeoutError struct{ timeout bool }

func (e *timeoutError) Error() string   { return "dial tcp: i/o" }
func (e *timeoutError) Timeout() bool   { return e.timeout }
func (e *timeoutError) Temporary() bool { return false }

var _ net.Error = (*timeoutError)(nil)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},

		{"categorized transient", concierge.NewTransientError(concierge.ErrGeneration, "overloaded", 529, nil), true},
		{"categorized permanent", concierge.NewPermanentError(concierge.ErrGeneration, "bad key", 401, nil), false},
		{"categorized user input", concierge.NewUserInputError(concierge.ErrGeneration, "empty prompt", 400, nil), false},
		{"categorized wins over message", concierge.NewPermanentError(concierge.ErrRetrieval, "timeout in schema", 400, nil), false},
		{"wrapped categorized", fmt.Errorf("step retrieve-products: %w",
			concierge.NewTransientError(concierge.ErrRetrieval, "embedding busy", 503, nil)), true},

		{"status 429", &statusError{429}, true},
		{"status 500", &statusError{500}, true},
		{"status 503", &statusError{503}, true},
		{"status 599", &statusError{599}, true},
		{"status 400", &statusError{400}, false},
		{"status 404", &statusError{404}, false},
		{"wrapped status", fmt.Errorf("generate: %w", &statusError{502}), true},

		{"network timeout", &timeoutError{timeout: true}, true},
		{"network non-timeout", &timeoutError{timeout: false}, false},

		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"rate limit message", errors.New("Rate limit exceeded, slow down"), true},
		{"overloaded message", errors.New("anthropic: Overloaded"), true},
		{"plain failure", errors.New("invalid product id"), false},
		{"context canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientStatusCode(t *testing.T) {
	for code, want := range map[int]bool{
		200: false, 401: false, 403: false, 422: false,
		429: true, 500: true, 502: true, 504: true,
	} {
		assert.Equal(t, want, isTransientStatusCode(code), "status %d", code)
	}
}
