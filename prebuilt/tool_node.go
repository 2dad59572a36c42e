package prebuilt

import (
	"context"
	"sync"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/tool"
)

// ToolNodeOption configures a tool-execution node
type ToolNodeOption func(*toolNode)

// WithMaxConcurrency bounds how many calls of one agent entry run at once.
// Zero, the default, runs them all at once.
func WithMaxConcurrency(n int) ToolNodeOption {
	return func(t *toolNode) { t.maxConcurrency = n }
}

type toolNode struct {
	registry       *tool.Registry
	maxConcurrency int
}

// NewToolNode creates a node that resolves the pending calls of the last
// agent entry. Calls run concurrently; results are appended in call order and
// a failing call becomes an error-tagged result without affecting its siblings.
func NewToolNode(registry *tool.Registry, opts ...ToolNodeOption) graph.NodeFunc {
	t := &toolNode{registry: registry}
	for _, opt := range opts {
		opt(t)
	}
	return t.run
}

func (t *toolNode) run(ctx context.Context, state graph.State) (graph.Delta, error) {
	last, ok := state.LastEntry()
	if !ok || !last.HasPendingCalls() {
		return graph.Delta{}, nil
	}

	calls := last.ToolCalls
	results := make([]graph.ToolResult, len(calls))

	var sem chan struct{}
	if t.maxConcurrency > 0 {
		sem = make(chan struct{}, t.maxConcurrency)
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call graph.ToolCall) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[i] = graph.ToolResult{CallID: call.ID, Name: call.Name, Error: ctx.Err().Error()}
					return
				}
			}
			results[i] = t.registry.Invoke(ctx, call)
		}(i, call)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return graph.Delta{}, err
	}

	entries := make([]graph.Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, graph.ToolResultEntry(r))
	}
	return graph.Delta{Entries: entries}, nil
}
