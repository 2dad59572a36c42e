package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/store"
)

// Snapshot is a decoded checkpoint
type Snapshot struct {
	ThreadID  string
	Step      int
	Node      string
	Next      string
	Status    store.Status
	State     State
	Timestamp time.Time
	// Suspension is set when the thread is waiting for a resume value
	Suspension *Suspension
}

func snapshotOf(cp *store.Checkpoint) (*Snapshot, error) {
	state, err := decodeState(cp.State)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		ThreadID:  cp.ThreadID,
		Step:      cp.Step,
		Node:      cp.NodeName,
		Next:      cp.Next,
		Status:    cp.Status,
		State:     state,
		Timestamp: cp.Timestamp,
	}
	if cp.Status == store.StatusSuspended && cp.Pending != nil {
		var payload any
		if len(cp.Pending.Payload) > 0 {
			if err := json.Unmarshal(cp.Pending.Payload, &payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal suspension payload: %w", err)
			}
		}
		snap.Suspension = &Suspension{ThreadID: cp.ThreadID, Node: cp.Pending.Node, Payload: payload}
	}
	return snap, nil
}

// State returns the latest snapshot of a thread
func (r *Runnable) State(ctx context.Context, threadID string) (*Snapshot, error) {
	cp, err := r.store.Latest(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state of thread %s: %w", threadID, err)
	}
	return snapshotOf(cp)
}

// History returns every snapshot of a thread ordered by step
func (r *Runnable) History(ctx context.Context, threadID string) ([]*Snapshot, error) {
	cps, err := r.store.List(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints of thread %s: %w", threadID, err)
	}
	out := make([]*Snapshot, 0, len(cps))
	for _, cp := range cps {
		snap, err := snapshotOf(cp)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}
