package graph

import (
	"context"
	"encoding/json"
	"fmt"
)

// Suspension pauses a run at a node until a resume value is supplied.
// It is a result value, not an error: a node returns it via Delta.Suspend.
type Suspension struct {
	// ThreadID is the thread of the graph that holds the suspended node
	ThreadID string `json:"thread_id"`
	// Node is the suspended node
	Node string `json:"node"`
	// Namespace is the path of sub-workflow nodes leading to the suspended graph,
	// empty for the root graph
	Namespace []string `json:"namespace,omitempty"`
	Payload   any      `json:"payload"`
}

// Text renders the payload as a human readable string
func (s *Suspension) Text() string {
	if s == nil {
		return ""
	}
	switch p := s.Payload.(type) {
	case nil:
		return ""
	case string:
		return p
	case fmt.Stringer:
		return p.String()
	case map[string]any:
		for _, key := range []string{"message", "question", "text", "value"} {
			if str, ok := p[key].(string); ok {
				return str
			}
		}
	}
	data, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Sprint(s.Payload)
	}
	return string(data)
}

type interruptScopeKey struct{}

// interruptScope hands resume values to the call sites of one node invocation.
// Call sites are matched by position: the i-th Interrupt call gets the i-th value.
type interruptScope struct {
	values []any
	next   int
}

func withInterruptScope(ctx context.Context, values []any) (context.Context, *interruptScope) {
	sc := &interruptScope{values: values}
	return context.WithValue(ctx, interruptScopeKey{}, sc), sc
}

// Interrupt asks for external input. When the current node is being replayed
// after a resume, it returns the value supplied for this call site and a nil
// Suspension. Otherwise it returns a Suspension that the node must return as
// its delta:
//
//	answer, s := graph.Interrupt(ctx, "Which dates work for you?")
//	if s != nil {
//	    return graph.Suspended(s), nil
//	}
//
// Everything the node did before the call runs again on every resume.
func Interrupt(ctx context.Context, payload any) (any, *Suspension) {
	sc, _ := ctx.Value(interruptScopeKey{}).(*interruptScope)
	if sc == nil {
		return nil, &Suspension{Payload: payload}
	}
	i := sc.next
	sc.next++
	if i < len(sc.values) {
		return sc.values[i], nil
	}
	return nil, &Suspension{Payload: payload}
}

func encodeValues(values []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal resume value: %w", err)
		}
		out = append(out, data)
	}
	return out, nil
}

func decodeValues(raw []json.RawMessage) ([]any, error) {
	out := make([]any, 0, len(raw))
	for _, r := range raw {
		var v any
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resume value: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
