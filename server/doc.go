// Package server exposes the travel graphs over HTTP.
//
// Routes:
//
//	GET  /                         banner
//	GET  /healthz                  liveness
//	GET  /metrics                  Prometheus exposition
//	POST /travel-system/chat       UI-message stream of the full pipeline
//	POST /travel-system/chat-sync  JSON result of one run of the full pipeline
//	POST /requirements/chat        UI-message stream of requirements gathering
//	POST /requirements/chat-sync   JSON result of one requirements run
//
// The streaming endpoints accept the chat request of the UI message protocol
// ({id, messages, trigger, thread_id?, resume?}) and answer with
// server-sent events encoded by adapter/uistream. A client that disconnects
// cancels its run. Engine failures are reported inside the stream, so a
// stream that started always answers 200.
//
// The sync endpoints accept {message, thread_id, resume} and report engine
// failures with an HTTP status.
package server
