package redisclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalLocker serializes providers within a single process. It is the fallback
// when Redis is disabled and the locker used by tests.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
	wait  time.Duration
}

type LocalOption func(*LocalLocker)

// WaitAtMost bounds how long a caller queues for a held provider. Zero waits
// until the caller's context is done.
func WaitAtMost(d time.Duration) LocalOption {
	return func(l *LocalLocker) { l.wait = d }
}

func NewLocalLocker(opts ...LocalOption) *LocalLocker {
	l := &LocalLocker{slots: make(map[uuid.UUID]chan struct{})}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LocalLocker) slot(providerID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[providerID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[providerID] = ch
	}
	return ch
}

func (l *LocalLocker) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	ch := l.slot(providerID)

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- struct{}{}:
	case <-timeout:
		return ErrLockNotAcquired
	case <-ctx.Done():
		return fmt.Errorf("wait for provider lock: %w: %w", ErrLockNotAcquired, ctx.Err())
	}
	defer func() { <-ch }()

	return fn(ctx)
}
