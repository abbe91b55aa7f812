package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGraph indicates a graph failed validation.
	ErrInvalidGraph = errors.New("workflow: invalid graph")

	// ErrReentry indicates a step was reached a second time in one run.
	ErrReentry = errors.New("workflow: step re-entered")

	// ErrWorkflowNotFound indicates no runner is registered under a name.
	ErrWorkflowNotFound = errors.New("workflow: not found")
)

// StepError wraps the failure of a single step. No state from the failed
// step is kept.
type StepError struct {
	StepName string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow: step %q failed: %v", e.StepName, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AbortedError is a step failure that ended a run before a terminal step.
type AbortedError struct {
	Workflow string
	// LastCompleted is the last step that finished, empty if none did.
	LastCompleted string
	Err           error
}

func (e *AbortedError) Error() string {
	if e.LastCompleted == "" {
		return fmt.Sprintf("workflow %q aborted: %v", e.Workflow, e.Err)
	}
	return fmt.Sprintf("workflow %q aborted after %q: %v", e.Workflow, e.LastCompleted, e.Err)
}

func (e *AbortedError) Unwrap() error {
	return e.Err
}
