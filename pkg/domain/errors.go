package domain

import (
	"errors"
	"fmt"
)

// ErrCheckpointNotFound is returned when a state manager holds no checkpoint for a run.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrNoPipes is returned when a state has no pipes registered.
var ErrNoPipes = errors.New("at least one pipe must be present for handling")

// ErrUnknownState is returned when a state is not part of the flow's declared order.
var ErrUnknownState = errors.New("unknown state")

// ArgumentError is raised when a required (name, type) slot is absent.
// Placeholder is an empty argument callers may substitute for the missing one.
type ArgumentError struct {
	Name        string
	Type        ArgType
	Placeholder Argument
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %q of type %s not found", e.Name, e.Type)
}

// FlowError is a domain failure raised by a pipe.
// StopExecution tells error strategies whether the surrounding run must abort.
type FlowError struct {
	Reason        string
	StopExecution bool
	Err           error
}

// NewFlowError creates a non-fatal domain failure with a reason.
func NewFlowError(reason string, err error) *FlowError {
	return &FlowError{Reason: reason, Err: err}
}

// NewFatalFlowError creates a domain failure that must abort the run.
func NewFatalFlowError(reason string, err error) *FlowError {
	return &FlowError{Reason: reason, StopExecution: true, Err: err}
}

func (e *FlowError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	case e.Reason != "":
		return e.Reason
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "flow error"
	}
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// IsNonFatal reports whether err is a FlowError carrying a reason without the stop flag.
func IsNonFatal(err error) bool {
	var fe *FlowError
	if !errors.As(err, &fe) {
		return false
	}
	return !fe.StopExecution && fe.Reason != ""
}
