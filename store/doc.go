// Package store defines the checkpoint model and the storage interface used by the
// workflow engine to persist per-thread execution history.
//
// A Checkpoint is written after every completed node. It holds the serialized execution
// state, the step number, the next node to run and the run status. A suspended thread
// additionally records a Pending block naming the node to re-enter and the resume values
// collected so far.
//
// Backends live in sub-packages:
//   - memory: in-process map, the default for a single server
//   - redis: sorted set per thread, plus a distributed per-thread lock
//   - postgres: pgx v5 table keyed by (thread_id, step)
//   - sqlite: file-based table via mattn/go-sqlite3
//
// All backends store the state as opaque JSON so a checkpoint can never alias live
// engine state.
package store
