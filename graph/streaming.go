package graph

import (
	"context"
)

// Update reports one completed node, or the suspension that halted a run
type Update struct {
	// Namespace is the path of sub-workflow nodes the update came from, empty for the root graph
	Namespace []string
	Node      string
	Step      int
	// Delta is the node's delta as merged into the state
	Delta Delta
	// Suspension is set on the final update of a suspended run
	Suspension *Suspension
}

// IsRoot reports whether the update came from the root graph
func (u Update) IsRoot() bool {
	return len(u.Namespace) == 0
}

// Input starts or resumes a run
type Input struct {
	State  State
	Resume bool
	Value  any
}

// Start builds an Input that starts a run from state
func Start(state State) Input {
	return Input{State: state}
}

// ResumeWith builds an Input that resumes a suspended thread with value
func ResumeWith(value any) Input {
	return Input{Resume: true, Value: value}
}

// Sink receives updates as a run progresses. A returned error aborts the run.
type Sink func(ctx context.Context, u Update) error

// DefaultStreamBuffer is the Updates channel capacity used by Stream
const DefaultStreamBuffer = 64

// StreamResult is a run executing in the background
type StreamResult struct {
	// Updates receives every update in order and is closed when the run ends
	Updates <-chan Update

	// Cancel stops the run
	Cancel context.CancelFunc

	done    chan struct{}
	outcome Outcome
	err     error
}

// Done is closed once the run has ended and Wait will not block
func (r *StreamResult) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends and returns its outcome
func (r *StreamResult) Wait() (Outcome, error) {
	<-r.done
	return r.outcome, r.err
}

// Stream runs the graph in the background and delivers updates on a channel.
// Cancelling ctx, or calling Cancel, aborts the run at the next step boundary
// or blocked send.
func (r *Runnable) Stream(ctx context.Context, in Input, threadID string) *StreamResult {
	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan Update, r.streamBuffer)
	res := &StreamResult{
		Updates: updates,
		Cancel:  cancel,
		done:    make(chan struct{}),
	}

	sink := func(ctx context.Context, u Update) error {
		select {
		case updates <- u:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer cancel()
		defer close(res.done)
		defer close(updates)
		defer func() {
			if p := recover(); p != nil {
				res.err = &PanicError{Value: p}
			}
		}()
		res.outcome, res.err = r.invoke(ctx, in, threadID, sink)
	}()
	return res
}
