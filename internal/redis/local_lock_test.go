package redisclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocalLocker_SerializesSameProvider(t *testing.T) {
	l := NewLocalLocker()
	providerID := uuid.New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithProviderLock(context.Background(), providerID, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most 1 goroutine in the critical section, saw %d", maxInside)
	}
}

func TestLocalLocker_ProvidersAreIndependent(t *testing.T) {
	l := NewLocalLocker()
	a, b := uuid.New(), uuid.New()

	done := make(chan struct{})
	err := l.WithProviderLock(context.Background(), a, func(ctx context.Context) error {
		go func() {
			_ = l.WithProviderLock(context.Background(), b, func(ctx context.Context) error { return nil })
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(time.Second):
			return errors.New("provider b blocked by provider a")
		}
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalLocker_HonoursContextWhileWaiting(t *testing.T) {
	l := NewLocalLocker()
	providerID := uuid.New()

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = l.WithProviderLock(context.Background(), providerID, func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.WithProviderLock(ctx, providerID, func(ctx context.Context) error {
		t.Fatal("critical section must not run")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("expected deadline exceeded wrapped as ErrLockNotAcquired, got %v", err)
	}
}

func TestLocalLocker_WaitAtMost(t *testing.T) {
	l := NewLocalLocker(WaitAtMost(10 * time.Millisecond))
	providerID := uuid.New()

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = l.WithProviderLock(context.Background(), providerID, func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	start := time.Now()
	err := l.WithProviderLock(context.Background(), providerID, func(ctx context.Context) error {
		t.Fatal("critical section must not run")
		return nil
	})
	if !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Fatalf("waited %s, expected the bound to apply", waited)
	}

	close(release)
	if err := l.WithProviderLock(context.Background(), providerID, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("lock should be free after release: %v", err)
	}
}

func TestLocalLocker_PropagatesError(t *testing.T) {
	l := NewLocalLocker()
	want := errors.New("boom")
	got := l.WithProviderLock(context.Background(), uuid.New(), func(ctx context.Context) error { return want })
	if !errors.Is(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
