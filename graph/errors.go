package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrThreadNotFound is returned when resuming a thread with no checkpoints
	ErrThreadNotFound = errors.New("thread not found")

	// ErrThreadNotSuspended is returned when resuming a thread that is not waiting for input
	ErrThreadNotSuspended = errors.New("thread is not suspended")

	// ErrThreadSuspended is returned when executing a thread that is waiting for a resume value
	ErrThreadSuspended = errors.New("thread is suspended, resume it instead")

	// ErrThreadBusy is returned when another run holds the thread
	ErrThreadBusy = errors.New("thread is already running")

	// ErrStepLimitExceeded is returned when a run executes more nodes than allowed
	ErrStepLimitExceeded = errors.New("step limit exceeded")
)

// GraphDefinitionError reports an invalid graph, at compile time or when a
// routing function picks a target that was never declared.
type GraphDefinitionError struct {
	Graph  string
	Node   string
	Reason string
}

func (e *GraphDefinitionError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("invalid graph %q: %s", e.Graph, e.Reason)
	}
	return fmt.Sprintf("invalid graph %q at node %q: %s", e.Graph, e.Node, e.Reason)
}

func definitionError(graph, node, format string, args ...any) *GraphDefinitionError {
	return &GraphDefinitionError{Graph: graph, Node: node, Reason: fmt.Sprintf(format, args...)}
}

// NodeExecutionError is a fatal failure of one node. The run is aborted and the
// last checkpoint stays valid for a retry.
type NodeExecutionError struct {
	Graph string
	Node  string
	Step  int
	Err   error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q of graph %q failed at step %d: %v", e.Node, e.Graph, e.Step, e.Err)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking node
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
