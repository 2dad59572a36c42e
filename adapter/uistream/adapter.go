package uistream

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/google/uuid"
)

// Source is a graph that can run in the background, usually a *graph.Runnable
type Source interface {
	Stream(ctx context.Context, in graph.Input, threadID string) *graph.StreamResult
}

// Option configures an Adapter
type Option func(*Adapter)

// WithLogger sets the logger. Defaults to the log package default.
func WithLogger(l log.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithNestedData also publishes the extension fields of sub-workflow updates.
// By default only root graph updates produce data-<field> events, so a field
// copied up by a sub-workflow node is published once.
func WithNestedData() Option {
	return func(a *Adapter) { a.nestedData = true }
}

// WithEveryToolOutput emits a tool-output-available event for every trailing
// tool result of an update instead of only the last entry
func WithEveryToolOutput() Option {
	return func(a *Adapter) { a.everyToolOutput = true }
}

// WithIDGenerator replaces the uuid generator used for message and text block ids
func WithIDGenerator(fn func() string) Option {
	return func(a *Adapter) { a.newID = fn }
}

// Adapter translates graph updates into stream events. It is safe for
// concurrent use; each Stream call owns its own message.
type Adapter struct {
	logger          log.Logger
	nestedData      bool
	everyToolOutput bool
	newID           func() string
}

// New creates an Adapter
func New(opts ...Option) *Adapter {
	a := &Adapter{newID: uuid.NewString}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = log.OrDefault(a.logger)
	return a
}

// MessageID returns a fresh message id
func (a *Adapter) MessageID() string {
	return "msg-" + a.newID()
}

// Translate converts one update into its events. A suspension update ends with
// finish{finishReason: "interrupt"}. On error no events are returned.
func (a *Adapter) Translate(u graph.Update) ([]Event, error) {
	if u.Node == "" {
		return nil, &ProtocolTranslationError{Namespace: u.Namespace, Reason: "update names no node"}
	}
	if u.Suspension != nil {
		return a.textBlock(u.Suspension.Text(), Finish(FinishInterrupt)), nil
	}

	events, err := a.messageEvents(u)
	if err != nil {
		return nil, err
	}
	if u.IsRoot() || a.nestedData {
		data, err := dataEvents(u)
		if err != nil {
			return nil, err
		}
		events = append(events, data...)
	}
	for _, ev := range events {
		if _, err := json.Marshal(ev); err != nil {
			return nil, translationError(u, "event is not serializable", err)
		}
	}
	return events, nil
}

func (a *Adapter) messageEvents(u graph.Update) ([]Event, error) {
	entries := u.Delta.Entries
	if len(entries) == 0 {
		return nil, nil
	}
	last := entries[len(entries)-1]

	switch last.Role {
	case graph.RoleUser:
		return nil, nil
	case graph.RoleToolResult:
		if !a.everyToolOutput {
			ev, err := toolOutput(u, last)
			if err != nil {
				return nil, err
			}
			return []Event{ev}, nil
		}
		first := len(entries) - 1
		for first > 0 && entries[first-1].Role == graph.RoleToolResult {
			first--
		}
		events := make([]Event, 0, len(entries)-first)
		for _, e := range entries[first:] {
			ev, err := toolOutput(u, e)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
		return events, nil
	case graph.RoleAgent:
		if last.HasPendingCalls() {
			events := make([]Event, 0, 2*len(last.ToolCalls))
			for _, call := range last.ToolCalls {
				if call.ID == "" || call.Name == "" {
					return nil, translationError(u, "tool call without id or name", nil)
				}
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				events = append(events,
					ToolInputStart(call.ID, call.Name),
					ToolInputAvailable(call.ID, call.Name, input),
				)
			}
			return events, nil
		}
		if strings.TrimSpace(last.Text) == "" {
			return nil, nil
		}
		return a.textBlock(last.Text), nil
	default:
		return nil, translationError(u, fmt.Sprintf("unknown entry role %q", last.Role), nil)
	}
}

func toolOutput(u graph.Update, e graph.Entry) (Event, error) {
	if e.Result == nil || e.Result.CallID == "" {
		return Event{}, translationError(u, "tool result without call id", nil)
	}
	if e.Result.IsError() {
		return ToolOutputAvailable(e.Result.CallID, map[string]any{"error": e.Result.Error}), nil
	}
	return ToolOutputAvailable(e.Result.CallID, e.Result.Output), nil
}

func dataEvents(u graph.Update) ([]Event, error) {
	if len(u.Delta.Fields) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(u.Delta.Fields))
	for name := range u.Delta.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var events []Event
	for _, name := range names {
		if name == "" {
			return nil, translationError(u, "extension field without a name", nil)
		}
		v := u.Delta.Fields[name]
		if graph.IsEmptyValue(v) {
			continue
		}
		events = append(events, Data(name, v))
	}
	return events, nil
}

// textBlock renders text under a fresh id, followed by any trailing events
func (a *Adapter) textBlock(text string, trailing ...Event) []Event {
	id := a.newID()
	events := []Event{TextStart(id), TextDelta(id, text), TextEnd(id)}
	return append(events, trailing...)
}

func translationError(u graph.Update, reason string, err error) *ProtocolTranslationError {
	return &ProtocolTranslationError{Namespace: u.Namespace, Node: u.Node, Reason: reason, Err: err}
}

// Stream runs src and returns its events. The channel always ends with Done
// unless ctx is cancelled first, in which case the run is cancelled and the
// channel is closed without further events.
func (a *Adapter) Stream(ctx context.Context, src Source, in graph.Input, threadID string) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		a.pump(ctx, src.Stream(ctx, in, threadID), threadID, func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return out
}

func (a *Adapter) pump(ctx context.Context, res *graph.StreamResult, threadID string, send func(Event) bool) {
	defer func() {
		res.Cancel()
		for range res.Updates {
		}
	}()

	if !send(Start(a.MessageID())) {
		return
	}

	for u := range res.Updates {
		events, err := a.Translate(u)
		if err != nil {
			a.logger.Error("uistream: thread %s: %v", threadID, err)
			res.Cancel()
			if send(Error(err.Error())) {
				send(Done)
			}
			return
		}
		for _, ev := range events {
			if !send(ev) {
				return
			}
		}
		if u.Suspension != nil {
			a.logger.Debug("uistream: thread %s suspended at %s", threadID, u.Suspension.Node)
			// the thread stays locked until the run returns
			if _, err := res.Wait(); err != nil {
				a.logger.Warn("uistream: thread %s: %v", threadID, err)
			}
			send(Done)
			return
		}
	}

	_, err := res.Wait()
	switch {
	case err == nil:
		if send(Finish("")) {
			send(Done)
		}
	case ctx.Err() != nil:
		a.logger.Info("uistream: thread %s cancelled: %v", threadID, err)
	default:
		a.logger.Warn("uistream: thread %s failed: %v", threadID, err)
		if send(Error(err.Error())) {
			send(Done)
		}
	}
}
