package store

import (
	"context"
	"errors"
	"sync"
)

// ErrThreadLocked is returned by TryLock when another run holds the thread
var ErrThreadLocked = errors.New("thread is locked by another run")

// UnlockFunc releases a lock acquired with TryLock
type UnlockFunc func(ctx context.Context) error

// ThreadLocker serializes runs per thread id. TryLock never waits: it either
// acquires the lock or fails with ErrThreadLocked.
type ThreadLocker interface {
	TryLock(ctx context.Context, threadID string) (UnlockFunc, error)
}

// LocalLocker is an in-process ThreadLocker
type LocalLocker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

var _ ThreadLocker = (*LocalLocker)(nil)

// NewLocalLocker creates a new in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{active: make(map[string]struct{})}
}

// TryLock marks threadID as busy until the returned UnlockFunc is called
func (l *LocalLocker) TryLock(_ context.Context, threadID string) (UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.active[threadID]; busy {
		return nil, ErrThreadLocked
	}
	l.active[threadID] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, threadID)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
