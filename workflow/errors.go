package workflow

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/toolgate/resilience"
)

// Sentinel errors for graph construction and runs.
var (
	// ErrInvalidGraph matches every graph validation failure.
	ErrInvalidGraph = errors.New("workflow: invalid graph")

	// ErrIncomplete is returned when a run ends without error but some
	// reachable step never ran.
	ErrIncomplete = errors.New("workflow: run ended with unfinished steps")

	// ErrStepPanic is recorded when a step panics.
	ErrStepPanic = errors.New("workflow: step panicked")
)

func invalidGraph(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGraph, fmt.Sprintf(format, args...))
}

// RunError is the terminal failure of a run.
type RunError struct {
	Workflow      string
	CorrelationID string

	// Step names the step that recorded the error. Empty for run-level
	// failures such as the run timeout.
	Step string

	// Completed lists the steps that finished before the run ended.
	Completed []string

	Err error
}

func (e *RunError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("workflow: %s run %s failed: %v", e.Workflow, e.CorrelationID, e.Err)
	}
	return fmt.Sprintf("workflow: %s run %s failed at %s: %v", e.Workflow, e.CorrelationID, e.Step, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ErrorKind reports the kind of the underlying error.
func (e *RunError) ErrorKind() resilience.Kind {
	return resilience.KindOf(e.Err)
}
