package emitter

import "errors"

// ErrIncomplete is returned by Collect when the sequence closed without a
// done or error event.
var ErrIncomplete = errors.New("emitter: sequence ended without terminal event")

// Failure is the blocking-mode form of an error event.
type Failure struct {
	Code    string
	Message string
	Cause   error
}

// Error returns the user-safe message.
func (f *Failure) Error() string {
	return f.Message
}

// Unwrap returns the internal cause.
func (f *Failure) Unwrap() error {
	return f.Cause
}
