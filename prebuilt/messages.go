package prebuilt

import (
	"encoding/json"
	"fmt"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// ToMessages converts the execution log into model messages, prefixed with
// the system prompt when it is not empty
func ToMessages(system string, entries []graph.Entry) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(entries)+1)
	if system != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}

	for _, e := range entries {
		switch e.Role {
		case graph.RoleUser:
			msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, e.Text))
		case graph.RoleAgent:
			msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if e.Text != "" {
				msg.Parts = append(msg.Parts, llms.TextPart(e.Text))
			}
			for _, call := range e.ToolCalls {
				msg.Parts = append(msg.Parts, toLLMToolCall(call))
			}
			if len(msg.Parts) > 0 {
				msgs = append(msgs, msg)
			}
		case graph.RoleToolResult:
			if e.Result == nil {
				continue
			}
			msgs = append(msgs, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: e.Result.CallID,
						Name:       e.Result.Name,
						Content:    resultContent(*e.Result),
					},
				},
			})
		}
	}
	return msgs
}

func toLLMToolCall(call graph.ToolCall) llms.ToolCall {
	args := "{}"
	if len(call.Arguments) > 0 {
		if data, err := json.Marshal(call.Arguments); err == nil {
			args = string(data)
		}
	}
	return llms.ToolCall{
		ID:   call.ID,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      call.Name,
			Arguments: args,
		},
	}
}

func resultContent(r graph.ToolResult) string {
	if r.IsError() {
		return "Error: " + r.Error
	}
	if s, ok := r.Output.(string); ok {
		return s
	}
	data, err := json.Marshal(r.Output)
	if err != nil {
		return fmt.Sprint(r.Output)
	}
	return string(data)
}

// FromChoice converts a model choice into an agent entry. Calls without an id get one.
func FromChoice(name string, choice *llms.ContentChoice) (graph.Entry, error) {
	entry := graph.AgentEntry(choice.Content)
	entry.Name = name

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		call := graph.ToolCall{ID: tc.ID, Name: tc.FunctionCall.Name}
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if tc.FunctionCall.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &call.Arguments); err != nil {
				return graph.Entry{}, fmt.Errorf("invalid arguments for tool call %s (%s): %w", call.ID, call.Name, err)
			}
		}
		entry.ToolCalls = append(entry.ToolCalls, call)
	}
	return entry, nil
}
