package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresCheckpointStore implements store.CheckpointStore using PostgreSQL
type PostgresCheckpointStore struct {
	pool      DBPool
	tableName string
}

var _ store.CheckpointStore = (*PostgresCheckpointStore)(nil)

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "checkpoints"
}

// NewPostgresCheckpointStore creates a new Postgres checkpoint store
func NewPostgresCheckpointStore(ctx context.Context, opts PostgresOptions) (*PostgresCheckpointStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewPostgresCheckpointStoreWithPool(pool, opts.TableName), nil
}

// NewPostgresCheckpointStoreWithPool creates a store with an existing pool
func NewPostgresCheckpointStoreWithPool(pool DBPool, tableName string) *PostgresCheckpointStore {
	if tableName == "" {
		tableName = "checkpoints"
	}
	return &PostgresCheckpointStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresCheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			id TEXT NOT NULL,
			node_name TEXT NOT NULL,
			next_node TEXT NOT NULL,
			status TEXT NOT NULL,
			state JSONB NOT NULL,
			pending JSONB,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (thread_id, step)
		)
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresCheckpointStore) Close() {
	s.pool.Close()
}

// Save stores a checkpoint
func (s *PostgresCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	pendingJSON, err := marshalNullable(checkpoint.Pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending: %w", err)
	}
	metadataJSON, err := marshalNullable(checkpoint.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, step, id, node_name, next_node, status, state, pending, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (thread_id, step) DO UPDATE SET
			id = EXCLUDED.id,
			node_name = EXCLUDED.node_name,
			next_node = EXCLUDED.next_node,
			status = EXCLUDED.status,
			state = EXCLUDED.state,
			pending = EXCLUDED.pending,
			metadata = EXCLUDED.metadata,
			timestamp = EXCLUDED.timestamp
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		checkpoint.ThreadID,
		checkpoint.Step,
		checkpoint.ID,
		checkpoint.NodeName,
		checkpoint.Next,
		string(checkpoint.Status),
		[]byte(checkpoint.State),
		pendingJSON,
		metadataJSON,
		checkpoint.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresCheckpointStore) selectColumns() string {
	return fmt.Sprintf("SELECT thread_id, step, id, node_name, next_node, status, state, pending, metadata, timestamp FROM %s", s.tableName)
}

// Latest returns the highest-step checkpoint of a thread
func (s *PostgresCheckpointStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	query := s.selectColumns() + " WHERE thread_id = $1 ORDER BY step DESC LIMIT 1"
	return s.queryOne(ctx, query, threadID)
}

// Get returns the checkpoint of a thread at step
func (s *PostgresCheckpointStore) Get(ctx context.Context, threadID string, step int) (*store.Checkpoint, error) {
	query := s.selectColumns() + " WHERE thread_id = $1 AND step = $2"
	return s.queryOne(ctx, query, threadID, step)
}

func (s *PostgresCheckpointStore) queryOne(ctx context.Context, query string, args ...any) (*store.Checkpoint, error) {
	cp, err := scanCheckpoint(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List returns the checkpoints of a thread ordered by step
func (s *PostgresCheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	query := s.selectColumns() + " WHERE thread_id = $1 ORDER BY step ASC"

	rows, err := s.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := []*store.Checkpoint{}
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}
	return checkpoints, nil
}

// Clear removes all checkpoints of a thread
func (s *PostgresCheckpointStore) Clear(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

func scanCheckpoint(row pgx.Row) (*store.Checkpoint, error) {
	var (
		cp           store.Checkpoint
		status       string
		stateJSON    []byte
		pendingJSON  []byte
		metadataJSON []byte
		ts           time.Time
	)
	if err := row.Scan(&cp.ThreadID, &cp.Step, &cp.ID, &cp.NodeName, &cp.Next, &status,
		&stateJSON, &pendingJSON, &metadataJSON, &ts); err != nil {
		return nil, err
	}
	cp.Status = store.Status(status)
	cp.State = json.RawMessage(stateJSON)
	cp.Timestamp = ts

	if len(pendingJSON) > 0 {
		if err := json.Unmarshal(pendingJSON, &cp.Pending); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &cp, nil
}

func marshalNullable[T any](v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}
