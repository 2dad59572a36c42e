package travel

import (
	"context"
	"strings"
	"testing"

	"github.com/ManupaDev/multi-agent-travel-planner/adapter/uistream"
	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/prebuilt"
	"github.com/ManupaDev/multi-agent-travel-planner/store"
	"github.com/ManupaDev/multi-agent-travel-planner/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func twoDayItinerary() prebuilt.Step {
	return prebuilt.ReplyJSON(PlannerAnswer{Itinerary: Itinerary{
		Destination: "Seoul",
		Days: []Day{
			{Day: 1, Date: "2025-03-03", Title: "Palaces", Activities: []Activity{{Name: "Gyeongbokgung Palace"}}},
			{Day: 2, Date: "2025-03-04", Title: "Markets", Activities: []Activity{{Name: "Gwangjang Market"}}},
		},
	}})
}

func confirmedBookings() prebuilt.Step {
	return prebuilt.ReplyJSON(BookerAnswer{Bookings: Bookings{
		Flights: &FlightBooking{ReservationRef: "FL-REF-1", FlightID: "FL-1", Status: "confirmed"},
		Hotels:  &HotelBooking{ReservationRef: "HTL-REF-1", City: "Seoul", CheckIn: "2025-03-03", CheckOut: "2025-03-05"},
	}})
}

func TestSystemEndToEnd(t *testing.T) {
	model := prebuilt.NewScriptedModel(
		// requirements, first run
		prebuilt.Reply(""), missingDate(),
		// requirements, resumed
		prebuilt.RequestTools("", searchNRTtoICN),
		prebuilt.Reply("FL-1 works."), completeRequirements(),
		// planner
		prebuilt.RequestTools("", graph.ToolCall{ID: "call-search", Name: tool.WebSearchName, Arguments: map[string]any{"query": "Seoul attractions"}}),
		prebuilt.Reply("Here is the plan."), twoDayItinerary(),
		// booker
		prebuilt.RequestTools("",
			graph.ToolCall{ID: "call-flight", Name: tool.BookFlightName, Arguments: map[string]any{"flight_id": "FL-1"}},
			graph.ToolCall{ID: "call-hotel", Name: tool.BookHotelName, Arguments: map[string]any{
				"hotel_id": "HT-7", "city": "Seoul", "check_in": "2025-03-03", "check_out": "2025-03-05",
			}},
		),
		prebuilt.Reply("Booked."), confirmedBookings(),
	)
	d := newDeps(t, model)
	r, err := NewSystem(d)
	require.NoError(t, err)
	a := newAdapter()
	ctx := context.Background()

	first := collectEvents(t, a.Stream(ctx, r, graph.Start(graph.NewState(graph.UserEntry("Tokyo to Seoul"))), "trip"))
	assert.Equal(t, []string{"When would you like to depart?"}, textDeltas(first))
	assert.Equal(t, uistream.FinishInterrupt, first[len(first)-2].FinishReason)

	snap, err := r.State(ctx, "trip")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuspended, snap.Status)
	assert.Equal(t, RequirementsStage, snap.Next)

	events := collectEvents(t, a.Stream(ctx, r, graph.ResumeWith("March 3rd"), "trip"))
	assert.Equal(t, []string{
		uistream.TypeStart,
		// requirements stage
		uistream.TypeToolInputStart, uistream.TypeToolInputAvailable, uistream.TypeToolOutputAvailable,
		"data-requirements",
		uistream.TypeTextStart, uistream.TypeTextDelta, uistream.TypeTextEnd,
		// planner stage
		uistream.TypeToolInputStart, uistream.TypeToolInputAvailable, uistream.TypeToolOutputAvailable,
		"data-itinerary",
		uistream.TypeTextStart, uistream.TypeTextDelta, uistream.TypeTextEnd,
		// booker stage, only the last result of the tool step is forwarded
		uistream.TypeToolInputStart, uistream.TypeToolInputAvailable,
		uistream.TypeToolInputStart, uistream.TypeToolInputAvailable,
		uistream.TypeToolOutputAvailable,
		"data-bookings",
		uistream.TypeTextStart, uistream.TypeTextDelta, uistream.TypeTextEnd,
		uistream.TypeFinish, uistream.TypeDone,
	}, eventTypes(events))

	assert.Equal(t, []string{
		"Perfect! I've gathered your travel requirements for a trip from Tokyo to Seoul. Let me create an itinerary for you...",
		"Great! I've created a 2-day itinerary for you. Now let me book your flights and accommodations...",
		"Perfect! I've completed your bookings. Your flight is confirmed (Reference: FL-REF-1). " +
			"Your hotel reservation is also confirmed (Reference: HTL-REF-1). All details are shown below. Have a wonderful trip!",
	}, textDeltas(events))

	search, ok := events[10].Output.(string)
	require.True(t, ok, "got %T", events[10].Output)
	assert.Contains(t, search, "Gyeongbokgung Palace")
	assert.Equal(t, "call-hotel", events[19].ToolCallID)

	// the booker was briefed with both earlier results
	calls := model.Calls()
	require.Len(t, calls, 11)
	brief := calls[8].Messages[len(calls[8].Messages)-1]
	require.Len(t, brief.Parts, 1)
	assert.Contains(t, textOf(brief.Parts[0]), "REQUIREMENTS:")
	assert.Contains(t, textOf(brief.Parts[0]), `"FL-1"`)
	assert.Contains(t, textOf(brief.Parts[0]), "Gwangjang Market")

	final, err := r.State(ctx, "trip")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, final.Status)
	var bookings Bookings
	ok, err = final.State.FieldAs(FieldBookings, &bookings)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "HTL-REF-1", bookings.Hotels.ReservationRef)
	assert.Empty(t, final.State.Internal, "stage flags stay inside the stages")

	for _, stage := range []string{RequirementsStage, PlannerStage, BookerStage} {
		nested, err := r.State(ctx, graph.SubThreadID("trip", stage))
		require.NoError(t, err, stage)
		assert.Equal(t, store.StatusCompleted, nested.Status, stage)
	}
}

func TestSystemNeedsEveryCapability(t *testing.T) {
	d := newDeps(t, prebuilt.NewScriptedModel())
	d.Tools = d.Tools.Subset(tool.SearchFlightsName, tool.WebSearchName)

	_, err := NewSystem(d)
	require.ErrorIs(t, err, tool.ErrUnknownCapability)
	assert.Contains(t, err.Error(), "booker")

	d.Tools = nil
	_, err = NewRequirements(d)
	require.Error(t, err)
}

func textOf(p llms.ContentPart) string {
	if tc, ok := p.(llms.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	text := func(d graph.Delta, err error) string {
		require.NoError(t, err)
		require.Len(t, d.Entries, 1)
		return d.Entries[0].Text
	}

	empty := graph.NewState()
	assert.Equal(t, "I've gathered your travel requirements. Let me create an itinerary for you...",
		text(addRequirementsSummary(ctx, empty)))
	assert.Equal(t, "I've created your itinerary. Now let me book your flights and accommodations...",
		text(addPlannerSummary(ctx, empty)))
	assert.Equal(t, "Perfect! I've completed your bookings. All details are shown below. Have a wonderful trip!",
		text(addBookerSummary(ctx, empty)))

	partial := graph.State{Fields: map[string]any{
		FieldRequirements: map[string]any{"trip": map[string]any{"destination": map[string]any{"city": "Seoul"}}},
		FieldBookings:     map[string]any{"flights": map[string]any{"flight_id": "FL-1"}},
	}}
	assert.Equal(t, "Perfect! I've gathered your travel requirements for a trip from your origin to Seoul. Let me create an itinerary for you...",
		text(addRequirementsSummary(ctx, partial)))
	assert.Equal(t, "Perfect! I've completed your bookings. Your flight is confirmed (Reference: N/A). All details are shown below. Have a wonderful trip!",
		text(addBookerSummary(ctx, partial)))

	d, err := preparePlannerInput(ctx, partial)
	require.NoError(t, err)
	require.Len(t, d.Entries, 1)
	assert.Equal(t, graph.RoleUser, d.Entries[0].Role)
	assert.True(t, strings.HasPrefix(d.Entries[0].Text, "Based on the following travel requirements, create a day-by-day itinerary:\n\n{"))
}

func TestDecodeAnswer(t *testing.T) {
	var a PlannerAnswer
	require.NoError(t, decodeAnswer("```json\n{\"itinerary\": {\"destination\": \"Seoul\", \"days\": []}}\n```", &a))
	assert.Equal(t, "Seoul", a.Itinerary.Destination)

	require.NoError(t, decodeAnswer(` {"itinerary": {"destination": "Busan"}} `, &a))
	assert.Equal(t, "Busan", a.Itinerary.Destination)

	err := decodeAnswer("I could not plan that", &a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid structured answer")
}

func TestAskUserForInfo(t *testing.T) {
	s := graph.State{Internal: map[string]any{InterruptionMessage: "How many travelers?"}}

	d, err := askUserForInfo(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, d.Suspend)
	assert.Equal(t, "How many travelers?", d.Suspend.Text())
}
