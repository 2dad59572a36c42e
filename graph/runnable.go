package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/ManupaDev/multi-agent-travel-planner/store"
	"github.com/ManupaDev/multi-agent-travel-planner/store/memory"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrThreadIDRequired is returned when a run is started without a thread id
var ErrThreadIDRequired = errors.New("thread id is required")

// RunStatus is the status of a finished Execute or Resume call
type RunStatus string

const (
	// RunCompleted means the run reached END
	RunCompleted RunStatus = "completed"
	// RunSuspended means a node is waiting for a resume value
	RunSuspended RunStatus = "suspended"
)

// Outcome is the result of Execute or Resume
type Outcome struct {
	Status RunStatus
	// State is the final state, or the state before the suspended node
	State      State
	Suspension *Suspension
	// Step is the step of the last checkpoint written
	Step int
}

// IsSuspended reports whether the run is waiting for input
func (o Outcome) IsSuspended() bool {
	return o.Status == RunSuspended
}

// Option configures a Runnable at compile time
type Option func(*Runnable)

// WithStore sets the checkpoint store. Defaults to a fresh in-memory store.
func WithStore(s store.CheckpointStore) Option {
	return func(r *Runnable) { r.store = s }
}

// WithLocker sets the per-thread locker. Defaults to an in-process locker.
func WithLocker(l store.ThreadLocker) Option {
	return func(r *Runnable) { r.locker = l }
}

// WithLogger sets the logger. Defaults to the log package default.
func WithLogger(l log.Logger) Option {
	return func(r *Runnable) { r.logger = l }
}

// WithMaxSteps bounds the number of nodes one Execute or Resume call may run.
// Zero, the default, means unlimited.
func WithMaxSteps(n int) Option {
	return func(r *Runnable) { r.maxSteps = n }
}

// WithTracer sets the OpenTelemetry tracer used for run and node spans
func WithTracer(t trace.Tracer) Option {
	return func(r *Runnable) { r.tracer = t }
}

// WithMetrics records run and step metrics
func WithMetrics(m *Metrics) Option {
	return func(r *Runnable) { r.metrics = m }
}

// WithStreamBuffer sets the Updates channel capacity used by Stream
func WithStreamBuffer(n int) Option {
	return func(r *Runnable) { r.streamBuffer = n }
}

// Runnable is a compiled graph
type Runnable struct {
	name        string
	nodes       map[string]*node
	edges       map[string]string
	conditional map[string]*conditionalEdge
	entryPoint  string

	store        store.CheckpointStore
	locker       store.ThreadLocker
	logger       log.Logger
	tracer       trace.Tracer
	metrics      *Metrics
	maxSteps     int
	streamBuffer int
}

func newRunnable(name string) *Runnable {
	return &Runnable{
		name:        name,
		nodes:       make(map[string]*node),
		edges:       make(map[string]string),
		conditional: make(map[string]*conditionalEdge),
	}
}

func (r *Runnable) finish() error {
	if r.maxSteps < 0 {
		return definitionError(r.name, "", "max steps must not be negative")
	}
	if r.store == nil {
		r.store = memory.NewMemoryCheckpointStore()
	}
	if r.locker == nil {
		r.locker = store.NewLocalLocker()
	}
	r.logger = log.OrDefault(r.logger)
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	if r.streamBuffer <= 0 {
		r.streamBuffer = DefaultStreamBuffer
	}
	return nil
}

// Name returns the graph name
func (r *Runnable) Name() string {
	return r.name
}

// Store returns the checkpoint store
func (r *Runnable) Store() store.CheckpointStore {
	return r.store
}

// SubThreadID returns the thread id a sub-workflow node runs under
func SubThreadID(parent, node string) string {
	return parent + Separator + node
}

// Execute runs the graph for a thread.
//
// A thread without checkpoints starts from state. A completed thread starts a
// new run from the entry point on its previous final state with state merged
// in. A thread whose last run aborted continues from its last checkpoint and
// ignores state. A suspended thread fails with ErrThreadSuspended.
func (r *Runnable) Execute(ctx context.Context, state State, threadID string) (Outcome, error) {
	return r.invoke(ctx, Start(state), threadID, nil)
}

// Resume delivers value to the suspension the thread is waiting in and continues the run
func (r *Runnable) Resume(ctx context.Context, threadID string, value any) (Outcome, error) {
	return r.invoke(ctx, ResumeWith(value), threadID, nil)
}

// Run executes or resumes depending on in
func (r *Runnable) Run(ctx context.Context, in Input, threadID string) (Outcome, error) {
	return r.invoke(ctx, in, threadID, nil)
}

func (r *Runnable) invoke(ctx context.Context, in Input, threadID string, sink Sink) (Outcome, error) {
	if threadID == "" {
		return Outcome{}, ErrThreadIDRequired
	}

	unlock, err := r.locker.TryLock(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrThreadLocked) {
			return Outcome{}, fmt.Errorf("%w: %s", ErrThreadBusy, threadID)
		}
		return Outcome{}, fmt.Errorf("failed to lock thread %s: %w", threadID, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("graph %s: failed to unlock thread %s: %v", r.name, threadID, err)
		}
	}()

	start := time.Now()
	out, err := r.run(ctx, runRequest{threadID: threadID, in: in, sink: sink})
	switch {
	case err != nil:
		r.logger.Error("graph %s: thread %s failed: %v", r.name, threadID, err)
		r.metrics.observeRun(r.name, "error", time.Since(start))
		return Outcome{}, err
	case out.IsSuspended():
		r.logger.Info("graph %s: thread %s suspended at %s", r.name, threadID, out.Suspension.Node)
		r.metrics.observeRun(r.name, string(RunSuspended), time.Since(start))
		if sink != nil {
			u := Update{
				Namespace:  out.Suspension.Namespace,
				Node:       out.Suspension.Node,
				Step:       out.Step,
				Suspension: out.Suspension,
			}
			if err := sink(ctx, u); err != nil {
				return Outcome{}, err
			}
		}
	default:
		r.logger.Info("graph %s: thread %s completed at step %d", r.name, threadID, out.Step)
		r.metrics.observeRun(r.name, string(RunCompleted), time.Since(start))
	}
	return out, nil
}

type runRequest struct {
	threadID  string
	in        Input
	namespace []string
	sink      Sink
	// nested runs belong to a sub-workflow node and start fresh after completion
	nested bool
}

// cursor is the position of a run between two steps
type cursor struct {
	step  int
	state State
	next  string
	// pending is set when the node at next is being resumed
	pending *store.Pending
	value   any
}

func (r *Runnable) run(ctx context.Context, req runRequest) (out Outcome, err error) {
	ctx, span := r.startRunSpan(ctx, req)
	defer func() { endSpan(span, err) }()

	cur, err := r.begin(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	return r.loop(ctx, req, cur)
}

func (r *Runnable) begin(ctx context.Context, req runRequest) (cursor, error) {
	latest, err := r.store.Latest(ctx, req.threadID)
	if errors.Is(err, store.ErrCheckpointNotFound) {
		latest, err = nil, nil
	}
	if err != nil {
		return cursor{}, fmt.Errorf("failed to load checkpoint for thread %s: %w", req.threadID, err)
	}

	if req.in.Resume {
		if latest == nil {
			return cursor{}, fmt.Errorf("%w: %s", ErrThreadNotFound, req.threadID)
		}
		if latest.Status != store.StatusSuspended || latest.Pending == nil {
			return cursor{}, fmt.Errorf("%w: %s is %s", ErrThreadNotSuspended, req.threadID, latest.Status)
		}
		state, err := decodeState(latest.State)
		if err != nil {
			return cursor{}, err
		}
		r.logger.Info("graph %s: resuming thread %s at %s", r.name, req.threadID, latest.Pending.Node)
		return cursor{
			step:    latest.Step,
			state:   state,
			next:    latest.Pending.Node,
			pending: latest.Pending,
			value:   req.in.Value,
		}, nil
	}

	if latest != nil {
		switch latest.Status {
		case store.StatusSuspended:
			return cursor{}, fmt.Errorf("%w: %s", ErrThreadSuspended, req.threadID)
		case store.StatusRunning:
			state, err := decodeState(latest.State)
			if err != nil {
				return cursor{}, err
			}
			r.logger.Info("graph %s: retrying thread %s from step %d", r.name, req.threadID, latest.Step)
			return cursor{step: latest.Step, state: state, next: latest.Next}, nil
		}
	}

	step, base := 0, State{}
	if latest != nil {
		step = latest.Step + 1
		if !req.nested {
			if base, err = decodeState(latest.State); err != nil {
				return cursor{}, err
			}
		}
	}
	state := base.Apply(req.in.State.AsDelta())
	if err := r.save(ctx, req.threadID, step, "", r.entryPoint, store.StatusRunning, state, nil); err != nil {
		return cursor{}, err
	}
	r.logger.Info("graph %s: thread %s started at step %d", r.name, req.threadID, step)
	return cursor{step: step, state: state, next: r.entryPoint}, nil
}

func (r *Runnable) loop(ctx context.Context, req runRequest, cur cursor) (Outcome, error) {
	executed := 0
	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		if r.maxSteps > 0 && executed >= r.maxSteps {
			return Outcome{}, fmt.Errorf("%w: graph %s ran %d nodes on thread %s", ErrStepLimitExceeded, r.name, executed, req.threadID)
		}

		n := r.nodes[cur.next]
		if n == nil {
			return Outcome{}, definitionError(r.name, cur.next, "node is not defined")
		}
		executed++
		r.logger.Debug("graph %s: thread %s step %d running %s", r.name, req.threadID, cur.step+1, n.name)

		res, err := r.runNode(ctx, req, cur, n)
		if err != nil {
			return Outcome{}, err
		}
		if res.delta.Suspend != nil {
			return r.suspend(ctx, req, cur, n, res)
		}

		state := cur.state.Apply(res.delta)
		next, err := r.route(ctx, n.name, state, cur.step+1)
		if err != nil {
			return Outcome{}, err
		}

		status := store.StatusRunning
		if next == END {
			status = store.StatusCompleted
		}
		step := cur.step + 1
		if err := r.save(ctx, req.threadID, step, n.name, next, status, state, nil); err != nil {
			return Outcome{}, err
		}
		if req.sink != nil {
			u := Update{Namespace: req.namespace, Node: n.name, Step: step, Delta: res.delta}
			if err := req.sink(ctx, u); err != nil {
				return Outcome{}, err
			}
		}

		if next == END {
			return Outcome{Status: RunCompleted, State: state, Step: step}, nil
		}
		cur = cursor{step: step, state: state, next: next}
	}
}

type nodeResult struct {
	delta        Delta
	resumeValues []any
	subgraph     bool
}

func (r *Runnable) runNode(ctx context.Context, req runRequest, cur cursor, n *node) (res nodeResult, err error) {
	step := cur.step + 1
	ctx, span := r.startNodeSpan(ctx, req, n, step)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p}
		}
		if err != nil {
			err = &NodeExecutionError{Graph: r.name, Node: n.name, Step: step, Err: err}
		}
		status := "ok"
		switch {
		case err != nil:
			status = "error"
		case res.delta.Suspend != nil:
			status = "suspended"
		}
		r.metrics.observeStep(r.name, n.name, status, time.Since(start))
		endSpan(span, err)
	}()

	if n.kind == KindSubgraph {
		return r.runSubgraph(ctx, req, cur, n)
	}

	values, err := resumeValues(cur)
	if err != nil {
		return nodeResult{}, err
	}
	sctx, _ := withInterruptScope(ctx, values)
	delta, err := n.fn(sctx, cur.state.Clone())
	if err != nil {
		return nodeResult{}, err
	}
	return nodeResult{delta: delta, resumeValues: values}, nil
}

// resumeValues returns the values for the call sites of the node being resumed
func resumeValues(cur cursor) ([]any, error) {
	if cur.pending == nil || cur.pending.Subgraph {
		return nil, nil
	}
	values, err := decodeValues(cur.pending.ResumeValues)
	if err != nil {
		return nil, err
	}
	// round-trip through JSON so replays see the same types as a restored value
	fresh, err := encodeValues([]any{cur.value})
	if err != nil {
		return nil, err
	}
	decoded, err := decodeValues(fresh)
	if err != nil {
		return nil, err
	}
	return append(values, decoded...), nil
}

func (r *Runnable) runSubgraph(ctx context.Context, req runRequest, cur cursor, n *node) (nodeResult, error) {
	ns := make([]string, 0, len(req.namespace)+1)
	ns = append(append(ns, req.namespace...), n.name)
	child := runRequest{
		threadID:  SubThreadID(req.threadID, n.name),
		namespace: ns,
		sink:      req.sink,
		nested:    true,
	}
	if cur.pending != nil && cur.pending.Subgraph {
		child.in = ResumeWith(cur.value)
	} else {
		child.in = Start(n.mapping.Input(cur.state.Clone()))
	}

	out, err := n.sub.run(ctx, child)
	if err != nil {
		return nodeResult{}, err
	}
	if out.IsSuspended() {
		return nodeResult{delta: Suspended(out.Suspension), subgraph: true}, nil
	}
	return nodeResult{delta: n.mapping.Output(cur.state.Clone(), out.State)}, nil
}

func (r *Runnable) suspend(ctx context.Context, req runRequest, cur cursor, n *node, res nodeResult) (Outcome, error) {
	s := *res.delta.Suspend
	if s.ThreadID == "" {
		s.ThreadID = req.threadID
	}
	if s.Node == "" {
		s.Node = n.name
	}
	if s.Namespace == nil && len(req.namespace) > 0 {
		s.Namespace = append([]string(nil), req.namespace...)
	}

	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to marshal suspension payload: %w", err)
	}
	values, err := encodeValues(res.resumeValues)
	if err != nil {
		return Outcome{}, err
	}
	pending := &store.Pending{
		Node:         n.name,
		ResumeValues: values,
		Payload:      payload,
		Subgraph:     res.subgraph,
	}

	step := cur.step + 1
	if err := r.save(ctx, req.threadID, step, n.name, n.name, store.StatusSuspended, cur.state, pending); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: RunSuspended, State: cur.state, Suspension: &s, Step: step}, nil
}

func (r *Runnable) route(ctx context.Context, from string, state State, step int) (next string, err error) {
	if to, ok := r.edges[from]; ok {
		return to, nil
	}
	ce := r.conditional[from]
	if ce == nil {
		return "", definitionError(r.name, from, "node has no outgoing edge")
	}

	defer func() {
		if p := recover(); p != nil {
			err = &NodeExecutionError{Graph: r.name, Node: from, Step: step, Err: &PanicError{Value: p}}
		}
	}()
	next = ce.route(ctx, state)
	if !ce.targets[next] {
		return "", definitionError(r.name, from, "routing function returned undeclared target %q", next)
	}
	return next, nil
}

func (r *Runnable) save(ctx context.Context, threadID string, step int, nodeName, next string, status store.Status, state State, pending *store.Pending) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	cp := &store.Checkpoint{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Step:      step,
		NodeName:  nodeName,
		Next:      next,
		Status:    status,
		State:     data,
		Pending:   pending,
		Metadata:  map[string]any{"graph": r.name},
		Timestamp: time.Now(),
	}
	if err := r.store.Save(ctx, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint %d for thread %s: %w", step, threadID, err)
	}
	return nil
}
