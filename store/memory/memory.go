package memory

import (
	"context"
	"sync"

	"github.com/ManupaDev/multi-agent-travel-planner/store"
)

// MemoryCheckpointStore keeps checkpoints in process memory.
// Contents live as long as the store value does.
type MemoryCheckpointStore struct {
	mu      sync.RWMutex
	threads map[string]map[int]*store.Checkpoint
}

var _ store.CheckpointStore = (*MemoryCheckpointStore)(nil)

// NewMemoryCheckpointStore creates a new in-memory checkpoint store
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		threads: make(map[string]map[int]*store.Checkpoint),
	}
}

// Save stores a copy of the checkpoint
func (m *MemoryCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	steps, ok := m.threads[checkpoint.ThreadID]
	if !ok {
		steps = make(map[int]*store.Checkpoint)
		m.threads[checkpoint.ThreadID] = steps
	}
	steps[checkpoint.Step] = checkpoint.Clone()
	return nil
}

// Latest returns the highest-step checkpoint of a thread
func (m *MemoryCheckpointStore) Latest(_ context.Context, threadID string) (*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *store.Checkpoint
	for _, cp := range m.threads[threadID] {
		if latest == nil || cp.Step > latest.Step {
			latest = cp
		}
	}
	if latest == nil {
		return nil, store.ErrCheckpointNotFound
	}
	return latest.Clone(), nil
}

// Get returns the checkpoint of a thread at step
func (m *MemoryCheckpointStore) Get(_ context.Context, threadID string, step int) (*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.threads[threadID][step]
	if !ok {
		return nil, store.ErrCheckpointNotFound
	}
	return cp.Clone(), nil
}

// List returns the checkpoints of a thread ordered by step
func (m *MemoryCheckpointStore) List(_ context.Context, threadID string) ([]*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	steps := m.threads[threadID]
	out := make([]*store.Checkpoint, 0, len(steps))
	for _, cp := range steps {
		out = append(out, cp.Clone())
	}
	store.SortByStep(out)
	return out, nil
}

// Clear removes every checkpoint of a thread
func (m *MemoryCheckpointStore) Clear(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.threads, threadID)
	return nil
}
