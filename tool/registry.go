package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/tmc/langchaingo/llms"
)

// Registry holds the capabilities available to a set of agents
type Registry struct {
	caps    map[string]Capability
	order   []string
	logger  log.Logger
	metrics *Metrics
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithLogger sets the registry logger
func WithLogger(l log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics records invocation metrics
func WithMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{caps: make(map[string]Capability)}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrDefault(r.logger)
	return r
}

// Register adds capabilities, replacing any with the same name
func (r *Registry) Register(caps ...Capability) *Registry {
	for _, c := range caps {
		if _, exists := r.caps[c.Name()]; !exists {
			r.order = append(r.order, c.Name())
		}
		r.caps[c.Name()] = c
	}
	return r
}

// Subset returns a registry sharing the logger and metrics that holds only the named capabilities
func (r *Registry) Subset(names ...string) *Registry {
	sub := &Registry{caps: make(map[string]Capability), logger: r.logger, metrics: r.metrics}
	for _, name := range names {
		if c, ok := r.caps[name]; ok {
			sub.Register(c)
		}
	}
	return sub
}

// Get returns a capability by name
func (r *Registry) Get(name string) (Capability, bool) {
	c, ok := r.caps[name]
	return c, ok
}

// Names returns the capability names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the tool definitions to bind to a model
func (r *Registry) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, Definition(r.caps[name]))
	}
	return defs
}

// Invoke resolves one tool call. It always returns a result: failures are
// reported in its Error field.
func (r *Registry) Invoke(ctx context.Context, call graph.ToolCall) (res graph.ToolResult) {
	res = graph.ToolResult{CallID: call.ID, Name: call.Name}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			res.Output = nil
			res.Error = fmt.Sprintf("capability %s panicked: %v", call.Name, p)
		}
		status := "ok"
		if res.IsError() {
			status = "error"
			r.logger.Warn("tool %s (call %s) failed: %s", call.Name, call.ID, res.Error)
		} else {
			r.logger.Debug("tool %s (call %s) succeeded in %s", call.Name, call.ID, time.Since(start))
		}
		r.metrics.observe(call.Name, status, time.Since(start))
	}()

	c, ok := r.caps[call.Name]
	if !ok {
		res.Error = fmt.Sprintf("%v: %s", ErrUnknownCapability, call.Name)
		return res
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	out, err := c.Invoke(ctx, args)
	if err != nil {
		res.Error = err.Error()
		if res.Error == "" {
			res.Error = "capability failed"
		}
		return res
	}
	res.Output = out
	return res
}
