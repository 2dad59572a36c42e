// Package travelplanner is a multi-agent travel planner built on a resumable
// workflow graph engine.
//
// A trip is planned by three agents, each a compiled graph:
//
//   - requirements gathers origin, destination, dates and travelers, checks
//     flight availability and asks the traveler for anything missing
//   - planner researches the destination and writes a day-by-day itinerary
//   - booker books the chosen flight and a hotel
//
// The travel system graph runs them in order as sub-workflows. Runs are
// checkpointed per thread, so a question asked by an agent suspends the run
// and the traveler's answer resumes it where it stopped, even in another
// process when a shared checkpoint store is configured.
//
// Every node update is translated into the UI message stream protocol and sent
// to the browser as server-sent events: text blocks for agent messages, tool
// input and output events for capability calls, and data-requirements,
// data-itinerary and data-bookings events for the structured results.
//
// # Packages
//
//	graph             workflow engine: nodes, edges, sub-workflows, suspend and resume
//	store             checkpoint type, store interface and per-thread locking
//	store/memory      in-process checkpoint store
//	store/redis       Redis checkpoint store and distributed thread lock
//	store/postgres    PostgreSQL checkpoint store
//	store/sqlite      SQLite checkpoint store
//	tool              capability registry, travel backend and web search capabilities
//	prebuilt          agent node, tool node and the scripted model used in tests
//	adapter/uistream  UI message stream events, translation and SSE encoding
//	travel            the requirements, planner, booker and travel system graphs
//	server            HTTP transport
//	config            layered YAML and environment configuration
//	log               logger interface with golog and standard library backends
//	cmd/travelplanner serve and chat commands
//
// # Quick Start
//
//	export CONVEX_BASE_URL=https://your-backend.convex.site
//	export OPENAI_API_KEY=sk-...
//	go run ./cmd/travelplanner serve
//
// and in another terminal
//
//	go run ./cmd/travelplanner chat
//
// # Example
//
// Wiring the travel system in a program:
//
//	model, _ := openai.New()
//	api := tool.NewTravelAPI(os.Getenv("CONVEX_BASE_URL"), nil)
//	reg := tool.NewRegistry().
//		Register(api.Capabilities()...).
//		Register(tool.NewWebSearch())
//
//	system, err := travel.NewSystem(travel.Deps{Model: model, Tools: reg})
//	if err != nil {
//		return err
//	}
//	a := uistream.New()
//	for ev := range a.Stream(ctx, system, graph.Start(graph.NewState(graph.UserEntry("Tokyo to Seoul"))), "trip-1") {
//		// forward ev to the client
//	}
package travelplanner
