// Package uistream translates the update sequence of a graph run into the UI
// message stream protocol and writes it as server-sent events.
//
// Every run produces one message:
//
//	start            {type, messageId}
//	text-start       {type, id}
//	text-delta       {type, id, delta}
//	text-end         {type, id}
//	tool-input-start {type, toolCallId, toolName}
//	tool-input-available  {type, toolCallId, toolName, input}
//	tool-output-available {type, toolCallId, output}
//	data-<field>     {type, data}
//	finish           {type, finishReason?}
//	error            {type, error}
//
// followed by the literal [DONE] line. Updates are translated in arrival
// order. For each update the most recent log entry decides the message
// events: a tool result becomes tool-output-available, an agent entry with
// tool calls becomes a tool-input-start/tool-input-available pair per call,
// and an agent entry with text becomes one text block with a fresh id. User
// entries are never echoed. Non-empty extension fields of the update follow as
// data-<field> events in name order. A suspension becomes a text block with
// the suspension text and finish{finishReason: "interrupt"}.
//
// Serving a run over HTTP:
//
//	a := uistream.New(uistream.WithLogger(logger))
//	events := a.Stream(r.Context(), runnable, graph.Start(state), threadID)
//	uistream.SetHeaders(w.Header())
//	enc := uistream.NewEncoder(w)
//	for ev := range events {
//		if err := enc.Encode(ev); err != nil {
//			break
//		}
//	}
//
// Cancelling the context, for example when the client disconnects, cancels
// the run.
package uistream
