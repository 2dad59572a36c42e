// Package graph implements a resumable workflow engine: a graph of named nodes
// sharing one execution state, with static and conditional edges, nested
// sub-workflows and human-in-the-loop suspensions.
//
// # Building a graph
//
//	g := graph.NewStateGraph("requirements")
//	g.AddAgentNode("agent", agentFn)
//	g.AddToolNode("tools", toolFn)
//	g.AddNode("ask", askFn)
//	g.AddConditionalEdge("agent", route, "tools", "ask", graph.END)
//	g.AddEdge("tools", "agent")
//	g.AddEdge("ask", "agent")
//	g.SetEntryPoint("agent")
//
//	r, err := g.Compile(graph.WithStore(st))
//
// Compile rejects undefined node references, a missing entry point, conditional
// edges without targets, nodes without exactly one outgoing rule and graphs where
// END cannot be reached. Each failure is a *GraphDefinitionError.
//
// # State
//
// State holds an append-only log of entries tagged user, agent or tool-result,
// named extension fields, and internal values. A node receives a private copy
// of the state and returns a Delta: entries are appended, fields and internal
// values overwrite.
//
// # Execution
//
// Execute runs one node at a time. After every node the delta is merged, a
// checkpoint is written and the outgoing edge picks the next node, until END.
// A failing or panicking node aborts the run with a *NodeExecutionError and the
// last checkpoint stays valid, so calling Execute again on the same thread
// continues from it.
//
// Two runs on one thread are rejected with ErrThreadBusy. Distinct threads
// are independent.
//
// # Suspend and resume
//
// A node asks for input with Interrupt and returns the Suspension it gets:
//
//	func ask(ctx context.Context, s graph.State) (graph.Delta, error) {
//	    answer, susp := graph.Interrupt(ctx, s.InternalString("question"))
//	    if susp != nil {
//	        return graph.Suspended(susp), nil
//	    }
//	    return graph.Delta{Entries: []graph.Entry{graph.UserEntry(answer.(string))}}, nil
//	}
//
// The run stops there and the checkpoint keeps the state from before the node.
// Resume re-runs the whole node, and this time Interrupt returns the resume
// value. Code placed before Interrupt therefore runs once per resume.
//
// # Sub-workflows
//
// AddSubgraph embeds a compiled graph. It runs under the thread id
// parent + Separator + node name, its updates are forwarded with the node name
// added to the namespace, and a suspension inside it suspends the parent. On
// resume the value goes straight to the nested run.
//
// # Streaming
//
// Stream runs in the background and sends one Update per completed node,
// followed by a final update carrying the Suspension if the run suspended.
package graph
