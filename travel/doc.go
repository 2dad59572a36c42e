// Package travel builds the workflow graphs of the travel planner.
//
// Three stage graphs each pair an agent node with a tool-execution node:
//
//	requirements: agent <-> search_flight_availability, ask_user_for_info
//	planner:      agent <-> web_search
//	booker:       agent <-> search_hotels, book_flight, book_hotel
//
// The requirements agent suspends the run through ask_user_for_info until the
// trip is fully described. NewSystem chains the three stages as sub-workflows
// with a summary after each stage and an input preparation step before the
// planner and the booker:
//
//	requirements -> add_requirements_summary -> prepare_planner_input ->
//	planner -> add_planner_summary -> prepare_booker_input ->
//	booker -> add_booker_summary -> END
//
// The stage results are published as the extension fields requirements,
// itinerary and bookings.
package travel
