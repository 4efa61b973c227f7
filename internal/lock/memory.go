package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker is a process-local Locker for single-instance deployments
// and tests. Expired locks are taken over on the next Acquire.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	clock func() time.Time
}

type memoryEntry struct {
	token   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryEntry), clock: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrLockNotAcquired
	}
	token := uuid.NewString()
	l.held[key] = memoryEntry{token: token, expires: now.Add(ttl)}
	return &memoryLock{locker: l, key: key, token: token}, nil
}

type memoryLock struct {
	locker *MemoryLocker
	key    string
	token  string
}

func (lk *memoryLock) Release(context.Context) error {
	l := lk.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.held[lk.key]
	if !ok || e.token != lk.token {
		return ErrLockNotHeld
	}
	delete(l.held, lk.key)
	return nil
}

func (lk *memoryLock) Extend(_ context.Context, ttl time.Duration) error {
	l := lk.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.held[lk.key]
	if !ok || e.token != lk.token {
		return ErrLockNotHeld
	}
	e.expires = l.clock().Add(ttl)
	l.held[lk.key] = e
	return nil
}
