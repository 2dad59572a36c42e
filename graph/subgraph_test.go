package graph

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ManupaDev/multi-agent-travel-planner/store"
	"github.com/ManupaDev/multi-agent-travel-planner/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nestedCounters struct {
	before atomic.Int32
	prep   atomic.Int32
}

func nestedGraph(t *testing.T, st store.CheckpointStore, c *nestedCounters) *Runnable {
	t.Helper()
	child, err := NewStateGraph("child").
		AddNode("prep", func(context.Context, State) (Delta, error) {
			c.prep.Add(1)
			return Delta{Entries: []Entry{AgentEntry("child start")}}, nil
		}).
		AddNode("ask", func(ctx context.Context, s State) (Delta, error) {
			name, susp := Interrupt(ctx, "What is your name?")
			if susp != nil {
				return Suspended(susp), nil
			}
			return Delta{Fields: map[string]any{"name": name}}, nil
		}).
		AddEdge("prep", "ask").
		AddEdge("ask", END).
		SetEntryPoint("prep").
		Compile(WithStore(st))
	require.NoError(t, err)

	parent, err := NewStateGraph("parent").
		AddNode("before", func(context.Context, State) (Delta, error) {
			c.before.Add(1)
			return Delta{Entries: []Entry{AgentEntry("parent start")}}, nil
		}).
		AddSubgraph("sub", child, SubgraphMapping{}).
		AddNode("after", func(_ context.Context, s State) (Delta, error) {
			name, _ := s.Fields["name"].(string)
			return Delta{Entries: []Entry{AgentEntry("bye " + name)}}, nil
		}).
		AddEdge("before", "sub").
		AddEdge("sub", "after").
		AddEdge("after", END).
		SetEntryPoint("before").
		Compile(WithStore(st))
	require.NoError(t, err)
	return parent
}

func collect(t *testing.T, res *StreamResult) []Update {
	t.Helper()
	var updates []Update
	for u := range res.Updates {
		updates = append(updates, u)
	}
	return updates
}

func TestSubgraphSuspendAndResume(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryCheckpointStore()
	var c nestedCounters
	parent := nestedGraph(t, st, &c)

	res := parent.Stream(ctx, Start(NewState(UserEntry("hi"))), "t1")
	updates := collect(t, res)
	out, err := res.Wait()
	require.NoError(t, err)

	require.True(t, out.IsSuspended())
	assert.Equal(t, SubThreadID("t1", "sub"), out.Suspension.ThreadID)
	assert.Equal(t, "t1:sub", out.Suspension.ThreadID)
	assert.Equal(t, "ask", out.Suspension.Node)
	assert.Equal(t, []string{"sub"}, out.Suspension.Namespace)

	require.Len(t, updates, 3)
	assert.True(t, updates[0].IsRoot())
	assert.Equal(t, "before", updates[0].Node)
	assert.Equal(t, []string{"sub"}, updates[1].Namespace)
	assert.Equal(t, "prep", updates[1].Node)
	require.NotNil(t, updates[2].Suspension)
	assert.Equal(t, "What is your name?", updates[2].Suspension.Text())

	parentCP, err := st.Latest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuspended, parentCP.Status)
	require.NotNil(t, parentCP.Pending)
	assert.Equal(t, "sub", parentCP.Pending.Node)
	assert.True(t, parentCP.Pending.Subgraph)

	childCP, err := st.Latest(ctx, "t1:sub")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuspended, childCP.Status)
	assert.Equal(t, "ask", childCP.Pending.Node)

	res = parent.Stream(ctx, ResumeWith("Ada"), "t1")
	updates = collect(t, res)
	out, err = res.Wait()
	require.NoError(t, err)
	require.Equal(t, RunCompleted, out.Status)

	require.Len(t, updates, 3)
	assert.Equal(t, []string{"sub"}, updates[0].Namespace)
	assert.Equal(t, "ask", updates[0].Node)
	assert.Equal(t, "Ada", updates[0].Delta.Fields["name"])
	assert.True(t, updates[1].IsRoot())
	assert.Equal(t, "sub", updates[1].Node)
	assert.Equal(t, "Ada", updates[1].Delta.Fields["name"])
	assert.Equal(t, "after", updates[2].Node)
	for _, u := range updates {
		assert.Nil(t, u.Suspension)
	}

	assert.Equal(t, "Ada", out.State.Fields["name"])
	last, _ := out.State.LastEntry()
	assert.Equal(t, "bye Ada", last.Text)

	// neither the parent prefix nor the child prefix ran again
	assert.Equal(t, int32(1), c.before.Load())
	assert.Equal(t, int32(1), c.prep.Load())
}

func TestSubgraphChildStartsFreshOnNextRun(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryCheckpointStore()
	var c nestedCounters
	parent := nestedGraph(t, st, &c)

	_, err := parent.Execute(ctx, NewState(UserEntry("hi")), "t1")
	require.NoError(t, err)
	_, err = parent.Resume(ctx, "t1", "Ada")
	require.NoError(t, err)

	out, err := parent.Execute(ctx, NewState(UserEntry("again")), "t1")
	require.NoError(t, err)
	require.True(t, out.IsSuspended())
	assert.Equal(t, "t1:sub", out.Suspension.ThreadID)
	assert.Equal(t, int32(2), c.prep.Load())
}

func TestNestedSubgraphNamespaces(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryCheckpointStore()

	leaf := NewStateGraph("leaf").
		AddNode("ask", func(ctx context.Context, s State) (Delta, error) {
			v, susp := Interrupt(ctx, "deep?")
			if susp != nil {
				return Suspended(susp), nil
			}
			return Delta{Fields: map[string]any{"deep": v}}, nil
		}).
		AddEdge("ask", END).
		SetEntryPoint("ask").
		MustCompile(WithStore(st))
	mid := NewStateGraph("mid").
		AddSubgraph("leaf", leaf, SubgraphMapping{}).
		AddEdge("leaf", END).
		SetEntryPoint("leaf").
		MustCompile(WithStore(st))
	root := NewStateGraph("root").
		AddSubgraph("mid", mid, SubgraphMapping{}).
		AddEdge("mid", END).
		SetEntryPoint("mid").
		MustCompile(WithStore(st))

	out, err := root.Execute(ctx, NewState(), "t1")
	require.NoError(t, err)
	require.True(t, out.IsSuspended())
	assert.Equal(t, "t1:mid:leaf", out.Suspension.ThreadID)
	assert.Equal(t, []string{"mid", "leaf"}, out.Suspension.Namespace)

	res := root.Stream(ctx, ResumeWith("yes"), "t1")
	updates := collect(t, res)
	out, err = res.Wait()
	require.NoError(t, err)
	assert.Equal(t, "yes", out.State.Fields["deep"])

	require.Len(t, updates, 3)
	assert.Equal(t, []string{"mid", "leaf"}, updates[0].Namespace)
	assert.Equal(t, []string{"mid"}, updates[1].Namespace)
	assert.True(t, updates[2].IsRoot())
}

func TestSubgraphCustomMapping(t *testing.T) {
	child := NewStateGraph("echo").
		AddNode("echo", func(_ context.Context, s State) (Delta, error) {
			last, _ := s.LastEntry()
			return Delta{Entries: []Entry{AgentEntry("echo " + last.Text)}}, nil
		}).
		AddEdge("echo", END).
		SetEntryPoint("echo").
		MustCompile()

	parent := NewStateGraph("wrapper").
		AddSubgraph("echo", child, SubgraphMapping{
			Input: func(p State) State {
				last, _ := p.LastEntryOf(RoleUser)
				return NewState(last)
			},
			Output: func(_ State, c State) Delta {
				last, _ := c.LastEntry()
				return Delta{Fields: map[string]any{"echoed": last.Text}}
			},
		}).
		AddEdge("echo", END).
		SetEntryPoint("echo").
		MustCompile()

	out, err := parent.Execute(context.Background(), NewState(UserEntry("one"), AgentEntry("x"), UserEntry("two")), "t1")
	require.NoError(t, err)
	assert.Equal(t, "echo two", out.State.Fields["echoed"])
	assert.Len(t, out.State.Entries, 3)
}

func TestSubgraphCheckpointsLiveInTheNestedStore(t *testing.T) {
	ctx := context.Background()
	child := NewStateGraph("child").
		AddNode("greet", say("hello")).
		AddEdge("greet", END).
		SetEntryPoint("greet").
		MustCompile()
	parent := NewStateGraph("parent").
		AddSubgraph("sub", child, SubgraphMapping{}).
		AddEdge("sub", END).
		SetEntryPoint("sub").
		MustCompile()

	_, err := parent.Execute(ctx, NewState(), "t1")
	require.NoError(t, err)

	_, err = parent.State(ctx, SubThreadID("t1", "sub"))
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
	snap, err := child.State(ctx, SubThreadID("t1", "sub"))
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, snap.Status)

	st := memory.NewMemoryCheckpointStore()
	shared := NewStateGraph("parent").
		AddSubgraph("sub", NewStateGraph("child").
			AddNode("greet", say("hello")).
			AddEdge("greet", END).
			SetEntryPoint("greet").
			MustCompile(WithStore(st)), SubgraphMapping{}).
		AddEdge("sub", END).
		SetEntryPoint("sub").
		MustCompile(WithStore(st))

	_, err = shared.Execute(ctx, NewState(), "t2")
	require.NoError(t, err)
	snap, err = shared.State(ctx, SubThreadID("t2", "sub"))
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, snap.Status)
}
