package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// ErrCheckpointNotFound is returned when a thread or step has no checkpoint
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Status is the run status recorded on a checkpoint
type Status string

const (
	// StatusRunning marks a checkpoint written mid-run. When it is the latest one
	// the run was aborted by an error or cancellation.
	StatusRunning Status = "running"
	// StatusSuspended marks a checkpoint waiting for a resume value
	StatusSuspended Status = "suspended"
	// StatusCompleted marks the terminal checkpoint of a finished run
	StatusCompleted Status = "completed"
)

// Pending describes the node a suspended thread is waiting in
type Pending struct {
	// Node is the node that suspended and will be re-entered on resume
	Node string `json:"node"`
	// ResumeValues holds the values already supplied for this node's
	// suspension call sites, in call order
	ResumeValues []json.RawMessage `json:"resume_values,omitempty"`
	// Payload is the payload of the suspension currently awaiting a value
	Payload json.RawMessage `json:"payload,omitempty"`
	// Subgraph is true when the node is a sub-workflow awaiting its own resume
	Subgraph bool `json:"subgraph,omitempty"`
}

// Checkpoint is an immutable snapshot of a thread's execution state after one step
type Checkpoint struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Step     int    `json:"step"`
	// NodeName is the node whose delta produced this checkpoint, empty for the input checkpoint
	NodeName string `json:"node_name"`
	// Next is the node to run from this checkpoint
	Next      string          `json:"next"`
	Status    Status          `json:"status"`
	State     json.RawMessage `json:"state"`
	Pending   *Pending        `json:"pending,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Clone returns a deep copy so callers never share byte slices with a store
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	cp := *c
	cp.State = append(json.RawMessage(nil), c.State...)
	if c.Pending != nil {
		p := *c.Pending
		p.Payload = append(json.RawMessage(nil), c.Pending.Payload...)
		p.ResumeValues = make([]json.RawMessage, len(c.Pending.ResumeValues))
		for i, v := range c.Pending.ResumeValues {
			p.ResumeValues[i] = append(json.RawMessage(nil), v...)
		}
		cp.Pending = &p
	}
	if c.Metadata != nil {
		cp.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// CheckpointStore persists checkpoints keyed by thread id and step.
// Implementations must be safe for concurrent use across different thread ids.
type CheckpointStore interface {
	// Save stores a checkpoint. Saving the same thread and step twice overwrites.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Latest returns the checkpoint with the highest step for a thread
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)

	// Get returns the checkpoint for a thread at a specific step
	Get(ctx context.Context, threadID string, step int) (*Checkpoint, error)

	// List returns all checkpoints for a thread ordered by step
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// Clear removes all checkpoints for a thread
	Clear(ctx context.Context, threadID string) error
}

// SortByStep orders checkpoints by ascending step
func SortByStep(cps []*Checkpoint) {
	sort.Slice(cps, func(i, j int) bool { return cps[i].Step < cps[j].Step })
}
