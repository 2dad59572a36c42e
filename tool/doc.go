// Package tool is the capability invocation layer of the travel planner.
//
// A Capability is a named operation taking JSON-style arguments and returning
// a structured result. Capabilities are collected in a Registry, which is what
// agent nodes advertise to the reasoning model and what tool-execution nodes
// call. The registry never fails: an unknown name, an error or a panic all
// become an error-tagged graph.ToolResult.
//
// # Defining capabilities
//
// NewFunc decodes the argument map into a typed struct with mapstructure,
// using the json tags of the struct:
//
//	type weatherArgs struct {
//		City string `json:"city"`
//	}
//
//	weather := tool.NewFunc("get_weather", "Current weather for a city",
//		tool.Object(tool.Props{"city": tool.String("City name")}, "city"),
//		func(ctx context.Context, args weatherArgs) (any, error) {
//			return map[string]any{"city": args.City, "sky": "clear"}, nil
//		})
//
// Any langchaingo tools.Tool can be registered with FromLangchain, and
// RateLimited throttles a capability with a golang.org/x/time/rate limiter.
//
// # Travel capabilities
//
// TravelAPI exposes the flight and hotel backend as search_flight_availability,
// search_hotels, book_flight and book_hotel. WebSearch implements web_search
// over the DuckDuckGo HTML endpoint.
//
//	api := tool.NewTravelAPI(cfg.Capabilities.BaseURL, nil)
//	reg := tool.NewRegistry(tool.WithLogger(logger))
//	reg.Register(api.SearchFlights(), tool.RateLimited(tool.NewWebSearch(), limiter))
package tool
