package graph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ManupaDev/multi-agent-travel-planner/graph"

func (r *Runnable) startRunSpan(ctx context.Context, req runRequest) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "graph.run",
		trace.WithAttributes(
			attribute.String("graph.name", r.name),
			attribute.String("graph.thread_id", req.threadID),
			attribute.Bool("graph.resume", req.in.Resume),
			attribute.Bool("graph.nested", req.nested),
		),
	)
}

func (r *Runnable) startNodeSpan(ctx context.Context, req runRequest, n *node, step int) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "graph.node",
		trace.WithAttributes(
			attribute.String("graph.name", r.name),
			attribute.String("graph.thread_id", req.threadID),
			attribute.String("node.name", n.name),
			attribute.String("node.kind", string(n.kind)),
			attribute.Int("node.step", step),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
