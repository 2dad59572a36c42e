// Package adapter holds adapters between the workflow engine and external
// protocols.
//
// Subpackages:
//   - uistream: translates engine updates into the UI message stream protocol
//     consumed by chat front ends, and encodes it as server-sent events.
package adapter
