package uistream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event types of the UI message stream
const (
	TypeStart               = "start"
	TypeTextStart           = "text-start"
	TypeTextDelta           = "text-delta"
	TypeTextEnd             = "text-end"
	TypeToolInputStart      = "tool-input-start"
	TypeToolInputAvailable  = "tool-input-available"
	TypeToolOutputAvailable = "tool-output-available"
	TypeFinish              = "finish"
	TypeError               = "error"

	// DataPrefix prefixes the type of extension field events
	DataPrefix = "data-"

	// TypeDone is the end of stream sentinel, encoded as a bare [DONE]
	TypeDone = "[DONE]"
)

// FinishInterrupt is the finish reason of a suspended run
const FinishInterrupt = "interrupt"

// Event is one unit of the stream. Which fields are set depends on Type.
type Event struct {
	Type         string `json:"type"`
	MessageID    string `json:"messageId,omitempty"`
	ID           string `json:"id,omitempty"`
	Delta        string `json:"delta,omitempty"`
	ToolCallID   string `json:"toolCallId,omitempty"`
	ToolName     string `json:"toolName,omitempty"`
	Input        any    `json:"input,omitempty"`
	Output       any    `json:"output,omitempty"`
	Data         any    `json:"data,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Done ends every stream
var Done = Event{Type: TypeDone}

// Start opens the assistant message messageID
func Start(messageID string) Event { return Event{Type: TypeStart, MessageID: messageID} }

// TextStart opens text block id
func TextStart(id string) Event { return Event{Type: TypeTextStart, ID: id} }

// TextEnd closes text block id
func TextEnd(id string) Event { return Event{Type: TypeTextEnd, ID: id} }

// TextDelta appends delta to text block id
func TextDelta(id, delta string) Event {
	return Event{Type: TypeTextDelta, ID: id, Delta: delta}
}

// ToolInputStart announces a tool call
func ToolInputStart(callID, name string) Event {
	return Event{Type: TypeToolInputStart, ToolCallID: callID, ToolName: name}
}

// ToolInputAvailable carries the complete arguments of a tool call.
// A nil input is sent as an empty object.
func ToolInputAvailable(callID, name string, input any) Event {
	return Event{Type: TypeToolInputAvailable, ToolCallID: callID, ToolName: name, Input: input}
}

// ToolOutputAvailable carries the result of a tool call
func ToolOutputAvailable(callID string, output any) Event {
	return Event{Type: TypeToolOutputAvailable, ToolCallID: callID, Output: output}
}

// Data builds a data-<field> event
func Data(field string, v any) Event {
	return Event{Type: DataPrefix + field, Data: v}
}

// Finish builds a finish event, reason may be empty
func Finish(reason string) Event {
	return Event{Type: TypeFinish, FinishReason: reason}
}

// Error reports a failed run
func Error(msg string) Event {
	return Event{Type: TypeError, Error: msg}
}

// IsData reports whether the event carries an extension field
func (e Event) IsData() bool {
	return strings.HasPrefix(e.Type, DataPrefix)
}

// Field returns the extension field name of a data event
func (e Event) Field() string {
	return strings.TrimPrefix(e.Type, DataPrefix)
}

// MarshalJSON writes exactly the fields of the event's type, keeping the
// required ones even when empty
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case TypeStart:
		return json.Marshal(struct {
			Type      string `json:"type"`
			MessageID string `json:"messageId"`
		}{e.Type, e.MessageID})
	case TypeTextStart, TypeTextEnd:
		return json.Marshal(struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		}{e.Type, e.ID})
	case TypeTextDelta:
		return json.Marshal(struct {
			Type  string `json:"type"`
			ID    string `json:"id"`
			Delta string `json:"delta"`
		}{e.Type, e.ID, e.Delta})
	case TypeToolInputStart:
		return json.Marshal(struct {
			Type       string `json:"type"`
			ToolCallID string `json:"toolCallId"`
			ToolName   string `json:"toolName"`
		}{e.Type, e.ToolCallID, e.ToolName})
	case TypeToolInputAvailable:
		input := e.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(struct {
			Type       string `json:"type"`
			ToolCallID string `json:"toolCallId"`
			ToolName   string `json:"toolName"`
			Input      any    `json:"input"`
		}{e.Type, e.ToolCallID, e.ToolName, input})
	case TypeToolOutputAvailable:
		return json.Marshal(struct {
			Type       string `json:"type"`
			ToolCallID string `json:"toolCallId"`
			Output     any    `json:"output"`
		}{e.Type, e.ToolCallID, e.Output})
	case TypeFinish:
		return json.Marshal(struct {
			Type         string `json:"type"`
			FinishReason string `json:"finishReason,omitempty"`
		}{e.Type, e.FinishReason})
	case TypeError:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}{e.Type, e.Error})
	}
	if e.IsData() && e.Field() != "" {
		return json.Marshal(struct {
			Type string `json:"type"`
			Data any    `json:"data"`
		}{e.Type, e.Data})
	}
	return nil, fmt.Errorf("cannot marshal event of type %q", e.Type)
}
