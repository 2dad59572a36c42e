package prebuilt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/tmc/langchaingo/llms"
)

// ErrScriptExhausted is returned by a ScriptedModel with no steps left
var ErrScriptExhausted = errors.New("scripted model has no responses left")

// Step produces one response of a ScriptedModel
type Step func(ctx context.Context, messages []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error)

// ModelCall records one request made to a ScriptedModel
type ModelCall struct {
	Messages []llms.MessageContent
	Options  llms.CallOptions
}

// ScriptedModel is an llms.Model that answers from a fixed list of steps.
// It is meant for tests and offline demos.
type ScriptedModel struct {
	mu    sync.Mutex
	steps []Step
	calls []ModelCall
}

// NewScriptedModel creates a model answering with steps in order
func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{steps: steps}
}

// Push appends steps to the script
func (m *ScriptedModel) Push(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
}

// GenerateContent implements llms.Model
func (m *ScriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	m.mu.Lock()
	m.calls = append(m.calls, ModelCall{Messages: messages, Options: opts})
	if len(m.steps) == 0 {
		m.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	m.mu.Unlock()

	return step(ctx, messages, opts)
}

// Call implements llms.Model
func (m *ScriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns the requests received so far
func (m *ScriptedModel) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ModelCall(nil), m.calls...)
}

// Remaining returns the number of unused steps
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

func respond(choice *llms.ContentChoice) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}
}

// Reply answers with text
func Reply(text string) Step {
	return func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return respond(&llms.ContentChoice{Content: text, StopReason: "stop"}), nil
	}
}

// ReplyJSON answers with the JSON encoding of v
func ReplyJSON(v any) Step {
	return func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return respond(&llms.ContentChoice{Content: string(data), StopReason: "stop"}), nil
	}
}

// RequestTools answers with tool calls
func RequestTools(text string, calls ...graph.ToolCall) Step {
	return func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		choice := &llms.ContentChoice{Content: text, StopReason: "tool_calls"}
		for _, c := range calls {
			choice.ToolCalls = append(choice.ToolCalls, toLLMToolCall(c))
		}
		return respond(choice), nil
	}
}

// Fail answers with err
func Fail(err error) Step {
	return func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return nil, err
	}
}
