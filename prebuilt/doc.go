// Package prebuilt provides the building blocks of tool-using agents on top
// of the graph package.
//
// NewAgentNode calls an llms.Model with the execution log and either records
// the tool calls the model requests or its final answer. NewToolNode resolves
// those calls through a tool.Registry. ToolsCondition wires the two into the
// usual agent/tools loop:
//
//	reg := tool.NewRegistry().Register(api.SearchFlights())
//
//	g := graph.NewStateGraph("flights").
//		AddAgentNode("agent", prebuilt.NewAgentNode(prebuilt.AgentConfig{
//			Name:         "flights",
//			Model:        model,
//			SystemPrompt: "You search flights.",
//			Tools:        reg,
//		})).
//		AddToolNode("tools", prebuilt.NewToolNode(reg)).
//		AddConditionalEdge("agent", prebuilt.ToolsCondition("tools", nil), "tools", graph.END).
//		AddEdge("tools", "agent").
//		SetEntryPoint("agent")
//
// An agent that must hand back a typed record sets StructuredPrompt and
// Finish: once the model stops calling tools the node asks again in JSON mode
// and Finish decodes the answer into extension fields.
//
// ScriptedModel is a deterministic llms.Model for tests and offline demos.
package prebuilt
