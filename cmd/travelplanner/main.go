// Command travelplanner serves the multi-agent travel planner and talks to it
// from the terminal.
//
//	travelplanner serve --config config.yaml
//	travelplanner chat --server http://localhost:8585
package main

func main() {
	Execute()
}
