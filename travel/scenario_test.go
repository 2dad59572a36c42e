package travel

import (
	"context"
	"errors"
	"testing"

	"github.com/ManupaDev/multi-agent-travel-planner/adapter/uistream"
	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/ManupaDev/multi-agent-travel-planner/prebuilt"
	"github.com/ManupaDev/multi-agent-travel-planner/store"
	"github.com/ManupaDev/multi-agent-travel-planner/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

var tokyoToSeoul = Trip{
	Origin:        Place{City: "Tokyo", Airport: "NRT"},
	Destination:   Place{City: "Seoul", Airport: "ICN"},
	DepartureDate: "2025-03-03",
	Travelers:     1,
}

func missingDate() prebuilt.Step {
	trip := tokyoToSeoul
	trip.DepartureDate = ""
	return prebuilt.ReplyJSON(RequirementsAnswer{
		Requirements: Requirements{Trip: trip},
		MissingInfo:  MissingInfo{Question: "When would you like to depart?"},
	})
}

func completeRequirements() prebuilt.Step {
	return prebuilt.ReplyJSON(RequirementsAnswer{Requirements: Requirements{
		Trip:   tokyoToSeoul,
		Flight: &FlightOption{ID: "FL-1", Airline: "Korean Air", Price: 180},
	}})
}

var searchNRTtoICN = graph.ToolCall{
	ID:        "call-flights",
	Name:      tool.SearchFlightsName,
	Arguments: map[string]any{"origin": "NRT", "destination": "ICN"},
}

func newAdapter() *uistream.Adapter {
	return uistream.New(uistream.WithLogger(log.NoOpLogger{}))
}

// A trip without dates ends the first run with the clarifying question
func TestScenarioMissingDatesAsks(t *testing.T) {
	model := prebuilt.NewScriptedModel(prebuilt.Reply("Let me check what is missing."), missingDate())
	r, err := NewRequirements(newDeps(t, model))
	require.NoError(t, err)

	in := graph.Start(graph.NewState(graph.UserEntry("I want to go to Seoul(ICN) from Tokyo(NRT).")))
	events := collectEvents(t, newAdapter().Stream(context.Background(), r, in, "t1"))

	assert.Equal(t, []string{
		uistream.TypeStart,
		uistream.TypeTextStart, uistream.TypeTextDelta, uistream.TypeTextEnd,
		uistream.TypeFinish, uistream.TypeDone,
	}, eventTypes(events))
	assert.Equal(t, []string{"When would you like to depart?"}, textDeltas(events))
	assert.Equal(t, uistream.FinishInterrupt, events[4].FinishReason)
	_, published := findEvent(events, "data-"+FieldRequirements)
	assert.False(t, published)

	snap, err := r.State(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuspended, snap.Status)
	assert.Equal(t, "When would you like to depart?", snap.State.InternalString(InterruptionMessage))
}

// Resuming with a date runs the flight search and publishes the requirements
func TestScenarioResumeCompletesRequirements(t *testing.T) {
	model := prebuilt.NewScriptedModel(
		prebuilt.Reply(""), missingDate(),
		prebuilt.RequestTools("", searchNRTtoICN),
		prebuilt.Reply("FL-1 on Korean Air is available."), completeRequirements(),
	)
	r, err := NewRequirements(newDeps(t, model))
	require.NoError(t, err)
	a := newAdapter()
	ctx := context.Background()

	first := collectEvents(t, a.Stream(ctx, r, graph.Start(graph.NewState(graph.UserEntry("Tokyo to Seoul please"))), "t1"))
	require.Equal(t, uistream.TypeDone, first[len(first)-1].Type)

	events := collectEvents(t, a.Stream(ctx, r, graph.ResumeWith("March 3rd 2025"), "t1"))
	assert.Equal(t, []string{
		uistream.TypeStart,
		uistream.TypeToolInputStart, uistream.TypeToolInputAvailable,
		uistream.TypeToolOutputAvailable,
		"data-requirements",
		uistream.TypeFinish, uistream.TypeDone,
	}, eventTypes(events))

	assert.Equal(t, tool.SearchFlightsName, events[1].ToolName)
	assert.Equal(t, "call-flights", events[2].ToolCallID)
	assert.Equal(t, map[string]any{"origin": "NRT", "destination": "ICN"}, events[2].Input)
	assert.Equal(t, "call-flights", events[3].ToolCallID)
	avail, ok := events[3].Output.(tool.Availability)
	require.True(t, ok, "got %T", events[3].Output)
	assert.True(t, avail.Available)
	assert.Len(t, avail.Options, 1)

	req, ok := events[4].Data.(Requirements)
	require.True(t, ok, "got %T", events[4].Data)
	assert.Equal(t, "FL-1", req.Flight.ID)
	assert.Equal(t, "2025-03-03", req.Trip.DepartureDate)
	assert.Empty(t, events[5].FinishReason)

	// the agent saw the question and the answer
	calls := model.Calls()
	require.Len(t, calls, 5)
	resumed := prebuilt.ToMessages(RequirementsSystemPrompt, []graph.Entry{
		graph.UserEntry("Tokyo to Seoul please"),
		{Role: graph.RoleAgent, Name: "requirements", Text: "When would you like to depart?"},
		graph.UserEntry("March 3rd 2025"),
	})
	assert.Equal(t, resumed, calls[2].Messages)
	assert.Len(t, calls[2].Options.Tools, 1)
	assert.True(t, calls[4].Options.JSONMode)

	snap, err := r.State(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, snap.Status)
	assert.True(t, snap.State.Flag(RequirementsComplete))
}

// A failing capability becomes an error result the agent can answer
func TestScenarioCapabilityErrorIsRecovered(t *testing.T) {
	soldOut := graph.ToolCall{ID: "call-book", Name: tool.BookFlightName, Arguments: map[string]any{"flight_id": "SOLD-OUT"}}
	model := prebuilt.NewScriptedModel(
		prebuilt.RequestTools("", soldOut),
		prebuilt.Reply("That flight is sold out, nothing was booked."),
		prebuilt.ReplyJSON(BookerAnswer{}),
	)
	r, err := NewBooker(newDeps(t, model))
	require.NoError(t, err)

	in := graph.Start(graph.NewState(graph.UserEntry("Book flight SOLD-OUT")))
	events := collectEvents(t, newAdapter().Stream(context.Background(), r, in, "t1"))

	_, failed := findEvent(events, uistream.TypeError)
	assert.False(t, failed)
	out, ok := findEvent(events, uistream.TypeToolOutputAvailable)
	require.True(t, ok)
	assert.Equal(t, "call-book", out.ToolCallID)
	output, ok := out.Output.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, output["error"], "409")
	assert.Equal(t, uistream.TypeFinish, events[len(events)-2].Type)

	// the agent got control back with the error in its context
	calls := model.Calls()
	require.Len(t, calls, 3)
	last := calls[1].Messages[len(calls[1].Messages)-1]
	require.Len(t, last.Parts, 1)
	resp, ok := last.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Contains(t, resp.Content, "Error:")
}

// A failing node ends the stream with one error and leaves a retryable thread
func TestScenarioNodeFailure(t *testing.T) {
	model := prebuilt.NewScriptedModel(prebuilt.Fail(errors.New("model unavailable")))
	r, err := NewRequirements(newDeps(t, model))
	require.NoError(t, err)
	ctx := context.Background()

	in := graph.Start(graph.NewState(graph.UserEntry("Tokyo to Seoul")))
	events := collectEvents(t, newAdapter().Stream(ctx, r, in, "t1"))
	require.Equal(t, []string{uistream.TypeStart, uistream.TypeError, uistream.TypeDone}, eventTypes(events))
	assert.Contains(t, events[1].Error, "model unavailable")

	model.Push(prebuilt.Reply(""), completeRequirements())
	out, err := r.Execute(ctx, graph.NewState(), "t1")
	require.NoError(t, err)
	assert.Equal(t, graph.RunCompleted, out.Status)
	require.Len(t, out.State.Entries, 1)
	assert.Equal(t, "Tokyo to Seoul", out.State.Entries[0].Text)
}
