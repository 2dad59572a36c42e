package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/store"
	"github.com/redis/go-redis/v9"
)

// RedisCheckpointStore implements store.CheckpointStore using Redis.
// Each thread owns a sorted set of steps and one string key per checkpoint.
type RedisCheckpointStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ store.CheckpointStore = (*RedisCheckpointStore)(nil)

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "travelplanner:"
	TTL      time.Duration // Expiration for checkpoints, default 0 (no expiration)
}

// NewRedisCheckpointStore creates a new Redis checkpoint store
func NewRedisCheckpointStore(opts RedisOptions) *RedisCheckpointStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisCheckpointStoreWithClient(client, opts.Prefix, opts.TTL)
}

// NewRedisCheckpointStoreWithClient creates a store on an existing client
func NewRedisCheckpointStoreWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCheckpointStore {
	if prefix == "" {
		prefix = "travelplanner:"
	}
	return &RedisCheckpointStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Client exposes the underlying client so a Locker can share it
func (s *RedisCheckpointStore) Client() redis.UniversalClient {
	return s.client
}

func (s *RedisCheckpointStore) checkpointKey(threadID string, step int) string {
	return fmt.Sprintf("%sthread:%s:step:%d", s.prefix, threadID, step)
}

func (s *RedisCheckpointStore) stepsKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s:steps", s.prefix, threadID)
}

// Save stores a checkpoint and indexes its step
func (s *RedisCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	stepsKey := s.stepsKey(checkpoint.ThreadID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.checkpointKey(checkpoint.ThreadID, checkpoint.Step), data, s.ttl)
	pipe.ZAdd(ctx, stepsKey, redis.Z{
		Score:  float64(checkpoint.Step),
		Member: strconv.Itoa(checkpoint.Step),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, stepsKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Latest returns the highest-step checkpoint of a thread
func (s *RedisCheckpointStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	members, err := s.client.ZRevRange(ctx, s.stepsKey(threadID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read steps for thread %s: %w", threadID, err)
	}
	if len(members) == 0 {
		return nil, store.ErrCheckpointNotFound
	}
	step, err := strconv.Atoi(members[0])
	if err != nil {
		return nil, fmt.Errorf("invalid step member %q: %w", members[0], err)
	}
	return s.Get(ctx, threadID, step)
}

// Get returns the checkpoint of a thread at step
func (s *RedisCheckpointStore) Get(ctx context.Context, threadID string, step int) (*store.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(threadID, step)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}

	var checkpoint store.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// List returns the checkpoints of a thread ordered by step
func (s *RedisCheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	members, err := s.client.ZRange(ctx, s.stepsKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for thread %s: %w", threadID, err)
	}
	if len(members) == 0 {
		return []*store.Checkpoint{}, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		step, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("invalid step member %q: %w", m, err)
		}
		keys = append(keys, s.checkpointKey(threadID, step))
	}

	// MGet returns nil for keys that expired after the index was read
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkpoints: %w", err)
	}

	checkpoints := make([]*store.Checkpoint, 0, len(results))
	for _, result := range results {
		raw, ok := result.(string)
		if !ok {
			continue
		}
		var checkpoint store.Checkpoint
		if err := json.Unmarshal([]byte(raw), &checkpoint); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, &checkpoint)
	}
	store.SortByStep(checkpoints)
	return checkpoints, nil
}

// Clear removes all checkpoints of a thread
func (s *RedisCheckpointStore) Clear(ctx context.Context, threadID string) error {
	stepsKey := s.stepsKey(threadID)
	members, err := s.client.ZRange(ctx, stepsKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get checkpoints for clearing: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, m := range members {
		step, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		pipe.Del(ctx, s.checkpointKey(threadID, step))
	}
	pipe.Del(ctx, stepsKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}
