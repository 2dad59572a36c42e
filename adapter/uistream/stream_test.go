package uistream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not end")
			return nil
		}
	}
}

func routeTools(_ context.Context, s graph.State) string {
	if last, ok := s.LastEntry(); ok && last.HasPendingCalls() {
		return "tools"
	}
	return graph.END
}

func resolveCalls(_ context.Context, s graph.State) (graph.Delta, error) {
	last, _ := s.LastEntry()
	var d graph.Delta
	for _, call := range last.ToolCalls {
		d.Entries = append(d.Entries, graph.ToolResultEntry(graph.ToolResult{
			CallID: call.ID,
			Name:   call.Name,
			Output: map[string]any{"city": call.Arguments["city"], "sky": "sunny"},
		}))
	}
	return d, nil
}

func weatherGraph(t *testing.T) *graph.Runnable {
	t.Helper()
	agent := func(_ context.Context, s graph.State) (graph.Delta, error) {
		if last, _ := s.LastEntry(); last.Role == graph.RoleToolResult {
			return graph.Delta{
				Entries: []graph.Entry{graph.AgentEntry("It is sunny in Colombo")},
				Fields:  map[string]any{"forecast": map[string]any{"sky": "sunny"}},
			}, nil
		}
		return graph.Delta{Entries: []graph.Entry{graph.AgentEntry("", graph.ToolCall{
			ID: "call-1", Name: "weather", Arguments: map[string]any{"city": "Colombo"},
		})}}, nil
	}
	r, err := graph.NewStateGraph("weather").
		AddAgentNode("agent", agent).
		AddToolNode("tools", resolveCalls).
		AddConditionalEdge("agent", routeTools, "tools", graph.END).
		AddEdge("tools", "agent").
		SetEntryPoint("agent").
		Compile()
	require.NoError(t, err)
	return r
}

func TestStreamToolLoop(t *testing.T) {
	a := newTestAdapter()
	r := weatherGraph(t)

	events := drain(t, a.Stream(context.Background(), r, graph.Start(graph.NewState(graph.UserEntry("weather?"))), "t1"))

	assert.Equal(t, []Event{
		Start("msg-id-1"),
		ToolInputStart("call-1", "weather"),
		ToolInputAvailable("call-1", "weather", map[string]any{"city": "Colombo"}),
		ToolOutputAvailable("call-1", map[string]any{"city": "Colombo", "sky": "sunny"}),
		TextStart("id-2"),
		TextDelta("id-2", "It is sunny in Colombo"),
		TextEnd("id-2"),
		Data("forecast", map[string]any{"sky": "sunny"}),
		Finish(""),
		Done,
	}, events)
}

func askGraph(t *testing.T) *graph.Runnable {
	t.Helper()
	ask := func(ctx context.Context, _ graph.State) (graph.Delta, error) {
		v, s := graph.Interrupt(ctx, "When do you leave?")
		if s != nil {
			return graph.Suspended(s), nil
		}
		return graph.Delta{
			Entries: []graph.Entry{graph.AgentEntry(fmt.Sprintf("Leaving on %v", v))},
			Fields:  map[string]any{"requirements": map[string]any{"departure": v}},
		}, nil
	}
	r, err := graph.NewStateGraph("ask").
		AddNode("ask", ask).
		AddEdge("ask", graph.END).
		SetEntryPoint("ask").
		Compile()
	require.NoError(t, err)
	return r
}

func TestStreamSuspendAndResume(t *testing.T) {
	a := newTestAdapter()
	r := askGraph(t)
	ctx := context.Background()

	first := drain(t, a.Stream(ctx, r, graph.Start(graph.NewState(graph.UserEntry("book a trip"))), "t1"))
	assert.Equal(t, []Event{
		Start("msg-id-1"),
		TextStart("id-2"),
		TextDelta("id-2", "When do you leave?"),
		TextEnd("id-2"),
		Finish(FinishInterrupt),
		Done,
	}, first)
	for _, ev := range first {
		assert.False(t, ev.IsData(), "no data before the question is answered")
	}

	second := drain(t, a.Stream(ctx, r, graph.ResumeWith("Friday"), "t1"))
	assert.Equal(t, []string{
		TypeStart, TypeTextStart, TypeTextDelta, TypeTextEnd, "data-requirements", TypeFinish, TypeDone,
	}, types(second))
	assert.Equal(t, "Leaving on Friday", second[2].Delta)
	assert.Equal(t, "msg-id-3", second[0].MessageID)
	assert.Equal(t, map[string]any{"departure": "Friday"}, second[4].Data)
}

func TestStreamNodeFailure(t *testing.T) {
	r, err := graph.NewStateGraph("failing").
		AddNode("gather", func(context.Context, graph.State) (graph.Delta, error) {
			return graph.Delta{
				Entries: []graph.Entry{graph.AgentEntry("got it")},
				Fields:  map[string]any{"requirements": "CMB to NRT"},
			}, nil
		}).
		AddNode("plan", func(context.Context, graph.State) (graph.Delta, error) {
			return graph.Delta{}, errors.New("planner exploded")
		}).
		AddNode("publish", func(context.Context, graph.State) (graph.Delta, error) {
			return graph.Delta{Fields: map[string]any{"itinerary": "never"}}, nil
		}).
		AddEdge("gather", "plan").
		AddEdge("plan", "publish").
		AddEdge("publish", graph.END).
		SetEntryPoint("gather").
		Compile()
	require.NoError(t, err)

	events := drain(t, newTestAdapter().Stream(context.Background(), r, graph.Start(graph.NewState()), "t1"))
	require.Equal(t, []string{
		TypeStart, TypeTextStart, TypeTextDelta, TypeTextEnd, "data-requirements", TypeError, TypeDone,
	}, types(events))
	assert.Contains(t, events[5].Error, "planner exploded")

	var errorsSeen int
	for _, ev := range events {
		if ev.Type == TypeError {
			errorsSeen++
		}
	}
	assert.Equal(t, 1, errorsSeen)
}

func TestStreamTranslationError(t *testing.T) {
	r, err := graph.NewStateGraph("malformed").
		AddNode("bad", func(context.Context, graph.State) (graph.Delta, error) {
			return graph.Delta{Entries: []graph.Entry{{Role: "system", Text: "?"}}}, nil
		}).
		AddEdge("bad", graph.END).
		SetEntryPoint("bad").
		Compile()
	require.NoError(t, err)

	events := drain(t, newTestAdapter().Stream(context.Background(), r, graph.Start(graph.NewState()), "t1"))
	require.Equal(t, []string{TypeStart, TypeError, TypeDone}, types(events))
	assert.Contains(t, events[1].Error, `unknown entry role "system"`)
}

func TestStreamEngineErrorBeforeFirstUpdate(t *testing.T) {
	events := drain(t, newTestAdapter().Stream(context.Background(), weatherGraph(t), graph.Start(graph.NewState()), ""))
	require.Equal(t, []string{TypeStart, TypeError, TypeDone}, types(events))
	assert.Equal(t, graph.ErrThreadIDRequired.Error(), events[1].Error)
}

func TestStreamCancelStopsRun(t *testing.T) {
	started := make(chan struct{})
	stopped := make(chan struct{})
	r, err := graph.NewStateGraph("slow").
		AddNode("wait", func(ctx context.Context, _ graph.State) (graph.Delta, error) {
			close(started)
			<-ctx.Done()
			close(stopped)
			return graph.Delta{}, ctx.Err()
		}).
		AddEdge("wait", graph.END).
		SetEntryPoint("wait").
		Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := newTestAdapter().Stream(ctx, r, graph.Start(graph.NewState()), "t1")

	first := <-events
	assert.Equal(t, TypeStart, first.Type)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("node did not start")
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled")
	}
	for _, ev := range drain(t, events) {
		assert.NotEqual(t, TypeDone, ev.Type)
	}
}

func TestStreamCancelBeforeFirstStep(t *testing.T) {
	var ran atomic.Bool
	r, err := graph.NewStateGraph("idle").
		AddNode("work", func(context.Context, graph.State) (graph.Delta, error) {
			ran.Store(true)
			return graph.Delta{}, nil
		}).
		AddEdge("work", graph.END).
		SetEntryPoint("work").
		Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, ev := range drain(t, newTestAdapter().Stream(ctx, r, graph.Start(graph.NewState()), "t1")) {
		assert.NotEqual(t, TypeDone, ev.Type)
	}
	assert.False(t, ran.Load())
}

func TestStreamDoneAfterSuspensionReleasesThread(t *testing.T) {
	r := askGraph(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		thread := fmt.Sprintf("t%d", i)
		events := newTestAdapter().Stream(ctx, r, graph.Start(graph.NewState(graph.UserEntry("book a trip"))), thread)
		for ev := range events {
			if ev.Type == TypeDone {
				break
			}
		}

		out, err := r.Resume(ctx, thread, "Friday")
		require.NoError(t, err, thread)
		assert.Equal(t, graph.RunCompleted, out.Status)
	}
}

// planGraph runs one agent round per element of plan, each requesting that
// many tool calls, then answers with text
func planGraph(plan []int) (*graph.Runnable, error) {
	agent := func(_ context.Context, s graph.State) (graph.Delta, error) {
		round := 0
		for _, e := range s.Entries {
			if e.HasPendingCalls() {
				round++
			}
		}
		if round == len(plan) {
			return graph.Delta{
				Entries: []graph.Entry{graph.AgentEntry("all done")},
				Fields:  map[string]any{"rounds": round},
			}, nil
		}
		calls := make([]graph.ToolCall, plan[round])
		for i := range calls {
			calls[i] = graph.ToolCall{ID: fmt.Sprintf("call-%d-%d", round, i), Name: "lookup"}
		}
		return graph.Delta{Entries: []graph.Entry{graph.AgentEntry("", calls...)}}, nil
	}
	return graph.NewStateGraph("plan").
		AddAgentNode("agent", agent).
		AddToolNode("tools", resolveCalls).
		AddConditionalEdge("agent", routeTools, "tools", graph.END).
		AddEdge("tools", "agent").
		SetEntryPoint("agent").
		Compile()
}

func wireOrderHolds(events []Event, everyOutput bool) bool {
	if len(events) < 3 || events[0].Type != TypeStart || events[len(events)-1].Type != TypeDone {
		return false
	}
	if events[len(events)-2].Type != TypeFinish {
		return false
	}

	inputAt := map[string]int{}
	outputs := map[string]bool{}
	textIDs := map[string]bool{}
	for i, ev := range events {
		switch ev.Type {
		case TypeToolInputStart:
			if _, dup := inputAt[ev.ToolCallID]; dup {
				return false
			}
		case TypeToolInputAvailable:
			if events[i-1].Type != TypeToolInputStart || events[i-1].ToolCallID != ev.ToolCallID {
				return false
			}
			inputAt[ev.ToolCallID] = i
		case TypeToolOutputAvailable:
			at, ok := inputAt[ev.ToolCallID]
			if !ok || at >= i {
				return false
			}
			outputs[ev.ToolCallID] = true
		case TypeTextStart:
			if textIDs[ev.ID] {
				return false
			}
			textIDs[ev.ID] = true
		}
	}
	if everyOutput && len(outputs) != len(inputAt) {
		return false
	}
	return true
}

func TestStreamWireOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	check := func(everyOutput bool) func(plan []int) bool {
		return func(plan []int) bool {
			r, err := planGraph(plan)
			if err != nil {
				return false
			}
			opts := []Option{}
			if everyOutput {
				opts = append(opts, WithEveryToolOutput())
			}
			var events []Event
			for ev := range New(opts...).Stream(context.Background(), r, graph.Start(graph.NewState()), "t1") {
				events = append(events, ev)
			}
			return wireOrderHolds(events, everyOutput)
		}
	}

	plans := gen.SliceOfN(4, gen.IntRange(1, 3))
	properties.Property("tool input precedes its output", prop.ForAll(check(false), plans))
	properties.Property("every tool call gets an output", prop.ForAll(check(true), plans))
	properties.TestingRun(t)
}
