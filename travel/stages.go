package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/ManupaDev/multi-agent-travel-planner/prebuilt"
	"github.com/ManupaDev/multi-agent-travel-planner/tool"
	"github.com/tmc/langchaingo/llms"
)

// Node names shared by the stage graphs
const (
	AgentNode = "agent"
	ToolsNode = "tools"
	AskNode   = "ask_user_for_info"
)

// Deps are the collaborators of the travel graphs
type Deps struct {
	Model llms.Model
	// Tools must hold every capability the built graphs bind
	Tools  *tool.Registry
	Logger log.Logger
	// GraphOptions are applied to every compiled graph, nested ones included.
	// Pass a shared store so the system graph can report on its stage threads.
	GraphOptions []graph.Option
	// ToolConcurrency bounds concurrent calls per tool node, zero is unbounded
	ToolConcurrency int
}

func (d Deps) tools(stage string, names ...string) (*tool.Registry, error) {
	if d.Tools == nil {
		return nil, fmt.Errorf("%s graph: no capability registry", stage)
	}
	for _, name := range names {
		if _, ok := d.Tools.Get(name); !ok {
			return nil, fmt.Errorf("%s graph needs capability %s: %w", stage, name, tool.ErrUnknownCapability)
		}
	}
	return d.Tools.Subset(names...), nil
}

func (d Deps) options() []graph.Option {
	opts := append([]graph.Option(nil), d.GraphOptions...)
	if d.Logger != nil {
		opts = append(opts, graph.WithLogger(d.Logger))
	}
	return opts
}

func (d Deps) toolNode(reg *tool.Registry) graph.NodeFunc {
	return prebuilt.NewToolNode(reg, prebuilt.WithMaxConcurrency(d.ToolConcurrency))
}

// agentLoop builds the agent <-> tools cycle shared by all stages. after routes
// the agent once it stops requesting tools; nil ends the graph.
func agentLoop(name string, cfg prebuilt.AgentConfig, tools graph.NodeFunc, after graph.RouteFunc, targets ...string) *graph.StateGraph {
	return graph.NewStateGraph(name).
		AddAgentNode(AgentNode, prebuilt.NewAgentNode(cfg)).
		AddToolNode(ToolsNode, tools).
		AddConditionalEdge(AgentNode, prebuilt.ToolsCondition(ToolsNode, after), append([]string{ToolsNode}, targets...)...).
		AddEdge(ToolsNode, AgentNode).
		SetEntryPoint(AgentNode)
}

// NewRequirements builds the graph that gathers the trip requirements. It
// suspends at ask_user_for_info whenever the agent needs more information.
func NewRequirements(d Deps) (*graph.Runnable, error) {
	reg, err := d.tools("requirements", tool.SearchFlightsName)
	if err != nil {
		return nil, err
	}
	agent := prebuilt.AgentConfig{
		Name:             "requirements",
		Model:            d.Model,
		SystemPrompt:     RequirementsSystemPrompt,
		Tools:            reg,
		StructuredPrompt: RequirementsStructuredPrompt,
		Finish:           finishRequirements,
		Logger:           d.Logger,
	}
	afterAgent := func(_ context.Context, s graph.State) string {
		if !s.Flag(RequirementsComplete) {
			return AskNode
		}
		return graph.END
	}

	g := agentLoop("requirements", agent, d.toolNode(reg), afterAgent, AskNode, graph.END).
		AddNode(AskNode, askUserForInfo).
		AddEdge(AskNode, AgentNode)
	return g.Compile(d.options()...)
}

func finishRequirements(_ context.Context, _ graph.State, raw string) (graph.Delta, error) {
	var answer RequirementsAnswer
	if err := decodeAnswer(raw, &answer); err != nil {
		return graph.Delta{}, fmt.Errorf("requirements answer: %w", err)
	}
	if q := strings.TrimSpace(answer.MissingInfo.Question); q != "" {
		return graph.Delta{
			Fields:   map[string]any{FieldRequirements: nil},
			Internal: map[string]any{RequirementsComplete: false, InterruptionMessage: q},
		}, nil
	}
	return graph.Delta{
		Fields:   map[string]any{FieldRequirements: answer.Requirements},
		Internal: map[string]any{RequirementsComplete: true, InterruptionMessage: ""},
	}, nil
}

// askUserForInfo suspends with the agent's question. The answer is logged
// together with the question so the agent sees both on its next turn.
func askUserForInfo(ctx context.Context, s graph.State) (graph.Delta, error) {
	question := s.InternalString(InterruptionMessage)
	value, suspension := graph.Interrupt(ctx, question)
	if suspension != nil {
		return graph.Suspended(suspension), nil
	}

	answer, ok := value.(string)
	if !ok {
		answer = fmt.Sprint(value)
	}
	return graph.Delta{
		Entries: []graph.Entry{
			{Role: graph.RoleAgent, Name: "requirements", Text: question},
			graph.UserEntry(answer),
		},
		Internal: map[string]any{InterruptionMessage: "", RequirementsComplete: false},
	}, nil
}

// NewPlanner builds the graph that turns requirements into an itinerary
func NewPlanner(d Deps) (*graph.Runnable, error) {
	reg, err := d.tools("planner", tool.WebSearchName)
	if err != nil {
		return nil, err
	}
	agent := prebuilt.AgentConfig{
		Name:             "planner",
		Model:            d.Model,
		SystemPrompt:     PlannerSystemPrompt,
		Tools:            reg,
		StructuredPrompt: PlannerStructuredPrompt,
		Finish: func(_ context.Context, _ graph.State, raw string) (graph.Delta, error) {
			var answer PlannerAnswer
			if err := decodeAnswer(raw, &answer); err != nil {
				return graph.Delta{}, fmt.Errorf("planner answer: %w", err)
			}
			return graph.Delta{
				Fields:   map[string]any{FieldItinerary: answer.Itinerary},
				Internal: map[string]any{ItineraryComplete: true},
			}, nil
		},
		Logger: d.Logger,
	}
	return agentLoop("planner", agent, d.toolNode(reg), nil, graph.END).Compile(d.options()...)
}

// NewBooker builds the graph that books the flight and hotel
func NewBooker(d Deps) (*graph.Runnable, error) {
	reg, err := d.tools("booker", tool.BookFlightName, tool.BookHotelName, tool.SearchHotelsName)
	if err != nil {
		return nil, err
	}
	agent := prebuilt.AgentConfig{
		Name:             "booker",
		Model:            d.Model,
		SystemPrompt:     BookerSystemPrompt,
		Tools:            reg,
		StructuredPrompt: BookerStructuredPrompt,
		Finish: func(_ context.Context, _ graph.State, raw string) (graph.Delta, error) {
			var answer BookerAnswer
			if err := decodeAnswer(raw, &answer); err != nil {
				return graph.Delta{}, fmt.Errorf("booker answer: %w", err)
			}
			return graph.Delta{
				Fields:   map[string]any{FieldBookings: answer.Bookings},
				Internal: map[string]any{BookingsComplete: true},
			}, nil
		},
		Logger: d.Logger,
	}
	return agentLoop("booker", agent, d.toolNode(reg), nil, graph.END).Compile(d.options()...)
}

// decodeAnswer parses a JSON answer, tolerating a surrounding markdown fence
func decodeAnswer(raw string, dst any) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("invalid structured answer: %w", err)
	}
	return nil
}
