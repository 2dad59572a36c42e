package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed run can hold a thread
const DefaultLockTTL = 10 * time.Minute

// unlockScript deletes the lock only if it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker implements store.ThreadLocker with SET NX so runs are serialized
// across processes sharing one Redis.
type Locker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ store.ThreadLocker = (*Locker)(nil)

// NewLocker creates a new Redis locker. A zero ttl uses DefaultLockTTL.
func NewLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *Locker {
	if prefix == "" {
		prefix = "travelplanner:"
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: client, prefix: prefix, ttl: ttl}
}

func (l *Locker) lockKey(threadID string) string {
	return l.prefix + "lock:" + threadID
}

// TryLock acquires the thread lock or fails with store.ErrThreadLocked
func (l *Locker) TryLock(ctx context.Context, threadID string) (store.UnlockFunc, error) {
	key := l.lockKey(threadID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error acquiring lock: %w", err)
	}
	if !ok {
		return nil, store.ErrThreadLocked
	}

	return func(ctx context.Context) error {
		if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock: %w", err)
		}
		return nil
	}, nil
}
