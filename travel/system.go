package travel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
)

// Nodes of the travel system graph
const (
	RequirementsStage   = "requirements"
	PlannerStage        = "planner"
	BookerStage         = "booker"
	RequirementsSummary = "add_requirements_summary"
	PreparePlannerInput = "prepare_planner_input"
	PlannerSummary      = "add_planner_summary"
	PrepareBookerInput  = "prepare_booker_input"
	BookerSummary       = "add_booker_summary"
)

// stageInput hands a stage the conversation so far. Completion flags and
// scratch values of other stages stay behind.
var stageInput = graph.SubgraphMapping{
	Input: func(parent graph.State) graph.State {
		return graph.State{Entries: append([]graph.Entry(nil), parent.Entries...)}
	},
}

// NewSystem builds the full pipeline: requirements, planning, then booking
func NewSystem(d Deps) (*graph.Runnable, error) {
	requirements, err := NewRequirements(d)
	if err != nil {
		return nil, err
	}
	planner, err := NewPlanner(d)
	if err != nil {
		return nil, err
	}
	booker, err := NewBooker(d)
	if err != nil {
		return nil, err
	}

	return graph.NewStateGraph("travel_system").
		AddSubgraph(RequirementsStage, requirements, stageInput).
		AddTransformNode(RequirementsSummary, addRequirementsSummary).
		AddTransformNode(PreparePlannerInput, preparePlannerInput).
		AddSubgraph(PlannerStage, planner, stageInput).
		AddTransformNode(PlannerSummary, addPlannerSummary).
		AddTransformNode(PrepareBookerInput, prepareBookerInput).
		AddSubgraph(BookerStage, booker, stageInput).
		AddTransformNode(BookerSummary, addBookerSummary).
		AddEdge(RequirementsStage, RequirementsSummary).
		AddEdge(RequirementsSummary, PreparePlannerInput).
		AddEdge(PreparePlannerInput, PlannerStage).
		AddEdge(PlannerStage, PlannerSummary).
		AddEdge(PlannerSummary, PrepareBookerInput).
		AddEdge(PrepareBookerInput, BookerStage).
		AddEdge(BookerStage, BookerSummary).
		AddEdge(BookerSummary, graph.END).
		SetEntryPoint(RequirementsStage).
		Compile(d.options()...)
}

func said(stage, text string) graph.Delta {
	return graph.Delta{Entries: []graph.Entry{{Role: graph.RoleAgent, Name: stage, Text: text}}}
}

func addRequirementsSummary(_ context.Context, s graph.State) (graph.Delta, error) {
	var req Requirements
	ok, err := s.FieldAs(FieldRequirements, &req)
	if err != nil || !ok {
		return said(RequirementsStage, "I've gathered your travel requirements. Let me create an itinerary for you..."), nil
	}

	origin, destination := req.Trip.Origin.City, req.Trip.Destination.City
	if origin == "" {
		origin = "your origin"
	}
	if destination == "" {
		destination = "your destination"
	}
	return said(RequirementsStage, fmt.Sprintf(
		"Perfect! I've gathered your travel requirements for a trip from %s to %s. Let me create an itinerary for you...",
		origin, destination)), nil
}

func preparePlannerInput(_ context.Context, s graph.State) (graph.Delta, error) {
	requirements, err := indent(s.Fields[FieldRequirements])
	if err != nil {
		return graph.Delta{}, err
	}
	prompt := "Based on the following travel requirements, create a day-by-day itinerary:\n\n" + requirements
	return graph.Delta{Entries: []graph.Entry{graph.UserEntry(prompt)}}, nil
}

func addPlannerSummary(_ context.Context, s graph.State) (graph.Delta, error) {
	var it Itinerary
	if ok, err := s.FieldAs(FieldItinerary, &it); err == nil && ok && len(it.Days) > 0 {
		return said(PlannerStage, fmt.Sprintf(
			"Great! I've created a %d-day itinerary for you. Now let me book your flights and accommodations...",
			len(it.Days))), nil
	}
	return said(PlannerStage, "I've created your itinerary. Now let me book your flights and accommodations..."), nil
}

func prepareBookerInput(_ context.Context, s graph.State) (graph.Delta, error) {
	requirements, err := indent(s.Fields[FieldRequirements])
	if err != nil {
		return graph.Delta{}, err
	}
	itinerary, err := indent(s.Fields[FieldItinerary])
	if err != nil {
		return graph.Delta{}, err
	}
	prompt := fmt.Sprintf(`Based on the following requirements and itinerary, book the flights and hotels:

REQUIREMENTS:
%s

ITINERARY:
%s

Extract the flight ID from the confirmed flight in requirements and book it.
For hotels, use the destination city and dates from the itinerary or requirements to book a hotel.
Return booking confirmations for both flight and hotel.`, requirements, itinerary)
	return graph.Delta{Entries: []graph.Entry{graph.UserEntry(prompt)}}, nil
}

func addBookerSummary(_ context.Context, s graph.State) (graph.Delta, error) {
	summary := "Perfect! I've completed your bookings."

	var b Bookings
	if ok, err := s.FieldAs(FieldBookings, &b); err == nil && ok {
		if b.Flights != nil {
			summary += fmt.Sprintf(" Your flight is confirmed (Reference: %s).", orNA(b.Flights.ReservationRef))
		}
		if b.Hotels != nil {
			summary += fmt.Sprintf(" Your hotel reservation is also confirmed (Reference: %s).", orNA(b.Hotels.ReservationRef))
		}
	}
	summary += " All details are shown below. Have a wonderful trip!"
	return said(BookerStage, summary), nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func indent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format stage input: %w", err)
	}
	return string(data), nil
}
