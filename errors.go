package concierge

import (
	"errors"
	"fmt"
	"time"
)

// Collaborator failure kinds. Match them with errors.Is.
var (
	// ErrGeneration marks a text-generation provider or network failure.
	ErrGeneration = errors.New("generation failed")

	// ErrRetrieval marks a product search failure.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrStorage marks a repository read or write failure.
	ErrStorage = errors.New("storage failed")
)

// ErrEmptyInput is returned when a required input is empty.
var ErrEmptyInput = errors.New("empty input")

// ErrorCategory classifies errors by how they should be handled.
type ErrorCategory string

const (
	// ErrorTransient indicates the error is temporary and the operation can be retried.
	// Examples: rate limits, temporary network issues, server overload.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent indicates the error is not recoverable through retry.
	// Examples: invalid API key, model not found, corrupt stored value.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput indicates the caller provided input that must be corrected.
	ErrorUserInput ErrorCategory = "user_input"
)

// CategorizedError is an error that provides information about how it should be handled.
type CategorizedError interface {
	error
	Category() ErrorCategory
	Retryable() bool
	StatusCode() int
	RetryAfter() time.Duration
}

// Error is a categorized collaborator error.
//
// Kind is one of ErrGeneration, ErrRetrieval or ErrStorage and makes
// errors.Is(err, ErrRetrieval) work through any wrapping.
type Error struct {
	Kind       error
	Msg        string
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the error's collaborator kind.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.Cat
}

// Retryable returns true if the error is transient and can be retried.
func (e *Error) Retryable() bool {
	return e.Cat == ErrorTransient
}

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int {
	return e.Code
}

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration {
	return e.RetryDelay
}

// NewTransientError creates a transient error that can be retried.
func NewTransientError(kind error, msg string, statusCode int, cause error) *Error {
	return &Error{
		Kind:  kind,
		Msg:   msg,
		Cat:   ErrorTransient,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewTransientErrorWithRetry creates a transient error with a suggested retry delay.
func NewTransientErrorWithRetry(kind error, msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Kind:       kind,
		Msg:        msg,
		Cat:        ErrorTransient,
		Code:       statusCode,
		RetryDelay: retryAfter,
		Cause:      cause,
	}
}

// NewPermanentError creates a permanent error that should not be retried.
func NewPermanentError(kind error, msg string, statusCode int, cause error) *Error {
	return &Error{
		Kind:  kind,
		Msg:   msg,
		Cat:   ErrorPermanent,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewUserInputError creates an error indicating invalid caller input.
func NewUserInputError(kind error, msg string, statusCode int, cause error) *Error {
	return &Error{
		Kind:  kind,
		Msg:   msg,
		Cat:   ErrorUserInput,
		Code:  statusCode,
		Cause: cause,
	}
}

// Wrap tags err with a collaborator kind. A categorized error keeps its
// category and only gains the kind; anything else becomes permanent.
// Wrap returns nil for a nil err.
func Wrap(kind error, msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	var cat CategorizedError
	if errors.As(err, &cat) {
		return &Error{
			Kind:       kind,
			Msg:        msg,
			Cat:        cat.Category(),
			Code:       cat.StatusCode(),
			RetryDelay: cat.RetryAfter(),
			Cause:      err,
		}
	}
	return NewPermanentError(kind, msg, 0, err)
}

// IsTransient returns true if the error is categorized as transient.
// It checks if the error or any wrapped error implements CategorizedError.
func IsTransient(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorTransient
	}
	return false
}

// IsPermanent returns true if the error is categorized as permanent.
func IsPermanent(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorPermanent
	}
	return false
}

// IsUserInput returns true if the error is categorized as user input error.
func IsUserInput(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorUserInput
	}
	return false
}

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay from a categorized error, or 0.
func RetryAfterOf(err error) time.Duration {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}
