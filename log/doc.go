// Package log provides the leveled logging interface shared by the travel planner packages.
//
// The engine, the capability layer, the stream adapter and the HTTP transport all accept a
// Logger. When none is given they fall back to the package-level default, which writes to
// stderr at info level until SetDefaultLogger or SetLogLevel replaces it.
//
// # Implementations
//
//   - DefaultLogger: stdlib log.Logger with a "[travelplanner]" prefix
//   - GologLogger: backed by github.com/kataras/golog, used by the travelplanner binary
//   - NoOpLogger: discards everything, handy in tests
//
// # Example
//
//	g := golog.New()
//	logger := log.NewGologLogger(g)
//	logger.SetLevel(log.LogLevelDebug)
//	log.SetDefaultLogger(logger)
//
//	log.Info("listening on %s", addr)
//
// Levels can be parsed from configuration strings with ParseLevel.
package log
