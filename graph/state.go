package graph

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Role tags an entry in the execution log
type Role string

const (
	// RoleUser marks input supplied by the person driving the conversation
	RoleUser Role = "user"
	// RoleAgent marks output produced by an agent node
	RoleAgent Role = "agent"
	// RoleToolResult marks the result of one resolved tool call
	RoleToolResult Role = "tool-result"
)

// ToolCall is a request from an agent node to invoke a named capability
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the outcome of one ToolCall. Exactly one of Output or Error is meaningful.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// IsError reports whether the capability failed
func (r ToolResult) IsError() bool {
	return r.Error != ""
}

// Entry is one record of the execution log
type Entry struct {
	Role Role `json:"role"`
	// Name identifies the producing agent or node, optional
	Name      string      `json:"name,omitempty"`
	Text      string      `json:"text,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	Result    *ToolResult `json:"result,omitempty"`
}

// UserEntry creates a user entry
func UserEntry(text string) Entry {
	return Entry{Role: RoleUser, Text: text}
}

// AgentEntry creates an agent entry, optionally requesting tool calls
func AgentEntry(text string, calls ...ToolCall) Entry {
	return Entry{Role: RoleAgent, Text: text, ToolCalls: calls}
}

// ToolResultEntry creates a tool-result entry
func ToolResultEntry(result ToolResult) Entry {
	return Entry{Role: RoleToolResult, Name: result.Name, Result: &result}
}

// HasPendingCalls reports whether the entry is an agent entry requesting tools
func (e Entry) HasPendingCalls() bool {
	return e.Role == RoleAgent && len(e.ToolCalls) > 0
}

// State is the execution state shared by every node of a run.
//
// Entries is an append-only log. Fields holds named extension values that are
// published to clients, such as requirements or itinerary. Internal holds
// completion flags and scratch values that are never published.
type State struct {
	Entries  []Entry        `json:"entries"`
	Fields   map[string]any `json:"fields,omitempty"`
	Internal map[string]any `json:"internal,omitempty"`
}

// NewState creates a state holding the given entries
func NewState(entries ...Entry) State {
	return State{Entries: entries}
}

// Delta is the partial state a node returns. Entries are appended, Fields and
// Internal values overwrite. A non-nil Suspend halts the run at the node and
// discards everything else in the delta.
type Delta struct {
	Entries  []Entry        `json:"entries,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
	Internal map[string]any `json:"internal,omitempty"`
	Suspend  *Suspension    `json:"-"`
}

// Suspended wraps a suspension into a Delta
func Suspended(s *Suspension) Delta {
	return Delta{Suspend: s}
}

// IsEmpty reports whether the delta changes nothing
func (d Delta) IsEmpty() bool {
	return len(d.Entries) == 0 && len(d.Fields) == 0 && len(d.Internal) == 0 && d.Suspend == nil
}

// Clone returns a copy whose slice and maps can be modified freely
func (s State) Clone() State {
	out := State{
		Entries:  append([]Entry(nil), s.Entries...),
		Fields:   copyMap(s.Fields),
		Internal: copyMap(s.Internal),
	}
	return out
}

// Apply returns a new state with the delta merged in
func (s State) Apply(d Delta) State {
	out := s.Clone()
	out.Entries = append(out.Entries, d.Entries...)
	for k, v := range d.Fields {
		if out.Fields == nil {
			out.Fields = make(map[string]any, len(d.Fields))
		}
		out.Fields[k] = v
	}
	for k, v := range d.Internal {
		if out.Internal == nil {
			out.Internal = make(map[string]any, len(d.Internal))
		}
		out.Internal[k] = v
	}
	return out
}

// AsDelta converts a state into a delta that appends its entries and sets its values
func (s State) AsDelta() Delta {
	return Delta{
		Entries:  append([]Entry(nil), s.Entries...),
		Fields:   copyMap(s.Fields),
		Internal: copyMap(s.Internal),
	}
}

// LastEntry returns the most recent log entry
func (s State) LastEntry() (Entry, bool) {
	if len(s.Entries) == 0 {
		return Entry{}, false
	}
	return s.Entries[len(s.Entries)-1], true
}

// LastEntryOf returns the most recent entry with the given role
func (s State) LastEntryOf(role Role) (Entry, bool) {
	for i := len(s.Entries) - 1; i >= 0; i-- {
		if s.Entries[i].Role == role {
			return s.Entries[i], true
		}
	}
	return Entry{}, false
}

// Field returns an extension field
func (s State) Field(name string) (any, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// FieldAs decodes an extension field into dst. Values restored from a checkpoint
// are generic JSON, so the value is re-encoded rather than type-asserted.
// It returns false when the field is unset or nil.
func (s State) FieldAs(name string, dst any) (bool, error) {
	v, ok := s.Fields[name]
	if !ok || v == nil {
		return false, nil
	}
	return true, convert(v, dst)
}

// Flag returns an internal boolean, false when unset
func (s State) Flag(name string) bool {
	b, _ := s.Internal[name].(bool)
	return b
}

// InternalString returns an internal string value, empty when unset
func (s State) InternalString(name string) string {
	str, _ := s.Internal[name].(string)
	return str
}

func convert(v any, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	return nil
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IsEmptyValue reports whether an extension field value carries nothing worth publishing
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func encodeState(s State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (State, error) {
	var s State
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return s, nil
}
