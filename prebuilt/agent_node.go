package prebuilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/ManupaDev/multi-agent-travel-planner/tool"
	"github.com/tmc/langchaingo/llms"
)

// ErrNoChoices is returned when the model answers without any choice
var ErrNoChoices = errors.New("model returned no choices")

// FinishFunc turns the structured answer of the model into the node's delta
type FinishFunc func(ctx context.Context, state graph.State, raw string) (graph.Delta, error)

// AgentConfig configures an agent node
type AgentConfig struct {
	// Name labels the agent entries the node produces
	Name         string
	Model        llms.Model
	SystemPrompt string
	// Tools are bound to the model; nil binds none
	Tools *tool.Registry

	// StructuredPrompt, when set, makes the node ask the model a second time in
	// JSON mode once it stops requesting tools. Finish converts that answer.
	StructuredPrompt string
	Finish           FinishFunc

	CallOptions []llms.CallOption
	Logger      log.Logger
}

// NewAgentNode creates a node that calls the model with the execution log.
//
// When the model requests tools, the node appends one agent entry carrying the
// calls. Otherwise it appends the model's answer, or, with a structured
// prompt, returns whatever Finish derives from the JSON answer.
func NewAgentNode(cfg AgentConfig) graph.NodeFunc {
	logger := log.OrDefault(cfg.Logger)

	return func(ctx context.Context, state graph.State) (graph.Delta, error) {
		if cfg.Model == nil {
			return graph.Delta{}, fmt.Errorf("agent %s has no model", cfg.Name)
		}
		msgs := ToMessages(cfg.SystemPrompt, state.Entries)

		opts := append([]llms.CallOption(nil), cfg.CallOptions...)
		if cfg.Tools != nil && len(cfg.Tools.Names()) > 0 {
			opts = append(opts, llms.WithTools(cfg.Tools.Definitions()))
		}

		choice, err := generate(ctx, cfg.Model, msgs, opts...)
		if err != nil {
			return graph.Delta{}, fmt.Errorf("agent %s: %w", cfg.Name, err)
		}
		entry, err := FromChoice(cfg.Name, choice)
		if err != nil {
			return graph.Delta{}, fmt.Errorf("agent %s: %w", cfg.Name, err)
		}

		if entry.HasPendingCalls() {
			logger.Debug("agent %s requested %d tool call(s)", cfg.Name, len(entry.ToolCalls))
			return graph.Delta{Entries: []graph.Entry{entry}}, nil
		}

		if cfg.StructuredPrompt == "" || cfg.Finish == nil {
			if entry.Text == "" {
				return graph.Delta{}, nil
			}
			return graph.Delta{Entries: []graph.Entry{entry}}, nil
		}

		structured := append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, cfg.StructuredPrompt))
		sopts := append(append([]llms.CallOption(nil), cfg.CallOptions...), llms.WithJSONMode())
		answer, err := generate(ctx, cfg.Model, structured, sopts...)
		if err != nil {
			return graph.Delta{}, fmt.Errorf("agent %s structured answer: %w", cfg.Name, err)
		}
		logger.Debug("agent %s produced a structured answer", cfg.Name)
		return cfg.Finish(ctx, state, answer.Content)
	}
}

func generate(ctx context.Context, model llms.Model, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentChoice, error) {
	resp, err := model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, ErrNoChoices
	}
	return resp.Choices[0], nil
}

// ToolsCondition routes to toolsNode when the last entry requests tools and
// to next otherwise. A nil next routes to END.
func ToolsCondition(toolsNode string, next graph.RouteFunc) graph.RouteFunc {
	return func(ctx context.Context, state graph.State) string {
		if last, ok := state.LastEntry(); ok && last.HasPendingCalls() {
			return toolsNode
		}
		if next == nil {
			return graph.END
		}
		return next(ctx, state)
	}
}
