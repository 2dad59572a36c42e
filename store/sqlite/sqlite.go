package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/store"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteCheckpointStore implements store.CheckpointStore using SQLite
type SqliteCheckpointStore struct {
	db        *sql.DB
	tableName string
}

var _ store.CheckpointStore = (*SqliteCheckpointStore)(nil)

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "checkpoints"
}

// NewSqliteCheckpointStore opens the database and creates the table if needed
func NewSqliteCheckpointStore(opts SqliteOptions) (*SqliteCheckpointStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoints"
	}

	s := &SqliteCheckpointStore{
		db:        db,
		tableName: tableName,
	}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteCheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			id TEXT NOT NULL,
			node_name TEXT NOT NULL,
			next_node TEXT NOT NULL,
			status TEXT NOT NULL,
			state TEXT NOT NULL,
			pending TEXT,
			metadata TEXT,
			timestamp DATETIME NOT NULL,
			PRIMARY KEY (thread_id, step)
		)
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteCheckpointStore) Close() error {
	return s.db.Close()
}

// Save stores a checkpoint
func (s *SqliteCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	pending, err := nullableJSON(checkpoint.Pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending: %w", err)
	}
	metadata, err := nullableJSON(checkpoint.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, step, id, node_name, next_node, status, state, pending, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, step) DO UPDATE SET
			id = excluded.id,
			node_name = excluded.node_name,
			next_node = excluded.next_node,
			status = excluded.status,
			state = excluded.state,
			pending = excluded.pending,
			metadata = excluded.metadata,
			timestamp = excluded.timestamp
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		checkpoint.ThreadID,
		checkpoint.Step,
		checkpoint.ID,
		checkpoint.NodeName,
		checkpoint.Next,
		string(checkpoint.Status),
		string(checkpoint.State),
		pending,
		metadata,
		checkpoint.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *SqliteCheckpointStore) selectColumns() string {
	return fmt.Sprintf("SELECT thread_id, step, id, node_name, next_node, status, state, pending, metadata, timestamp FROM %s", s.tableName)
}

// Latest returns the highest-step checkpoint of a thread
func (s *SqliteCheckpointStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, s.selectColumns()+" WHERE thread_id = ? ORDER BY step DESC LIMIT 1", threadID)
	return loadOne(row)
}

// Get returns the checkpoint of a thread at step
func (s *SqliteCheckpointStore) Get(ctx context.Context, threadID string, step int) (*store.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, s.selectColumns()+" WHERE thread_id = ? AND step = ?", threadID, step)
	return loadOne(row)
}

func loadOne(row *sql.Row) (*store.Checkpoint, error) {
	cp, err := scanCheckpoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List returns the checkpoints of a thread ordered by step
func (s *SqliteCheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, s.selectColumns()+" WHERE thread_id = ? ORDER BY step ASC", threadID)
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
func (s *SqliteCheckpointStore) Clear(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scanner) (*store.Checkpoint, error) {
	var (
		cp       store.Checkpoint
		status   string
		state    string
		pending  sql.NullString
		metadata sql.NullString
		ts       time.Time
	)
	if err := row.Scan(&cp.ThreadID, &cp.Step, &cp.ID, &cp.NodeName, &cp.Next, &status,
		&state, &pending, &metadata, &ts); err != nil {
		return nil, err
	}
	cp.Status = store.Status(status)
	cp.State = json.RawMessage(state)
	cp.Timestamp = ts

	if pending.Valid && pending.String != "" {
		if err := json.Unmarshal([]byte(pending.String), &cp.Pending); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending: %w", err)
		}
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &cp, nil
}

func nullableJSON(v any) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(data) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
