//go:build !integration

package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
	red "subscription-billing/internal/infra/redis"
)

func newTestQueue(t *testing.T) (*red.DelayedQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	return red.NewDelayedQueue(red.NewClientFromRedis(cli)), mr
}

func TestDelayedQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("immediate job is visible right away", func(t *testing.T) {
		q, _ := newTestQueue(t)
		job := adapter.Job{ID: "j1", Queue: adapter.QueueBilling, Kind: adapter.JobGenerateInvoice, SubscriptionID: "sub-1"}

		if err := q.Enqueue(ctx, job, 0); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		got, err := q.DequeueDue(ctx, adapter.QueueBilling, time.Now())
		if err != nil {
			t.Fatalf("DequeueDue: %v", err)
		}
		if got.ID != "j1" || got.SubscriptionID != "sub-1" {
			t.Fatalf("unexpected job %+v", got)
		}
	})

	t.Run("delayed job stays invisible until its ready time", func(t *testing.T) {
		q, _ := newTestQueue(t)
		job := adapter.Job{ID: "j1", Queue: adapter.QueuePaymentRetry, Kind: adapter.JobPaymentRetry, SubscriptionID: "sub-1", Attempt: 2}

		if err := q.Enqueue(ctx, job, time.Hour); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		if _, err := q.DequeueDue(ctx, adapter.QueuePaymentRetry, time.Now()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("job visible before its delay elapsed: %v", err)
		}

		got, err := q.DequeueDue(ctx, adapter.QueuePaymentRetry, time.Now().Add(2*time.Hour))
		if err != nil {
			t.Fatalf("DequeueDue after delay: %v", err)
		}
		if got.Attempt != 2 {
			t.Fatalf("Attempt = %d, want 2", got.Attempt)
		}
	})

	t.Run("a job pops exactly once", func(t *testing.T) {
		q, _ := newTestQueue(t)
		job := adapter.Job{ID: "j1", Queue: adapter.QueueBilling, Kind: adapter.JobGenerateInvoice, SubscriptionID: "sub-1"}
		_ = q.Enqueue(ctx, job, 0)

		if _, err := q.DequeueDue(ctx, adapter.QueueBilling, time.Now()); err != nil {
			t.Fatalf("first pop: %v", err)
		}
		if _, err := q.DequeueDue(ctx, adapter.QueueBilling, time.Now()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("second pop must find nothing, got %v", err)
		}
	})

	t.Run("queues are independent", func(t *testing.T) {
		q, _ := newTestQueue(t)
		_ = q.Enqueue(ctx, adapter.Job{ID: "j1", Queue: adapter.QueueBilling, Kind: adapter.JobGenerateInvoice, SubscriptionID: "s"}, 0)

		if _, err := q.DequeueDue(ctx, adapter.QueuePaymentRetry, time.Now()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("billing job leaked into the retry queue: %v", err)
		}
	})

	t.Run("depth counts due and delayed jobs", func(t *testing.T) {
		q, _ := newTestQueue(t)
		_ = q.Enqueue(ctx, adapter.Job{ID: "j1", Queue: adapter.QueueBilling, Kind: adapter.JobGenerateInvoice, SubscriptionID: "a"}, 0)
		_ = q.Enqueue(ctx, adapter.Job{ID: "j2", Queue: adapter.QueueBilling, Kind: adapter.JobGenerateInvoice, SubscriptionID: "b"}, time.Hour)

		n, err := q.Depth(ctx, adapter.QueueBilling)
		if err != nil || n != 2 {
			t.Fatalf("Depth = (%d, %v), want (2, nil)", n, err)
		}
	})

	t.Run("rejects jobs without a queue or subscription", func(t *testing.T) {
		q, _ := newTestQueue(t)
		err := q.Enqueue(ctx, adapter.Job{ID: "j1"}, 0)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	newLocker := func(t *testing.T) (*red.RedisLocker, *miniredis.Miniredis) {
		t.Helper()
		mr := miniredis.RunT(t)
		cli := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = cli.Close() })
		return red.NewLocker(red.NewClientFromRedis(cli)), mr
	}

	t.Run("second holder is rejected until unlock", func(t *testing.T) {
		l, _ := newLocker(t)

		token, err := l.TryLock(ctx, "lock:subscription:sub-1", time.Minute)
		if err != nil {
			t.Fatalf("TryLock: %v", err)
		}
		if _, err := l.TryLock(ctx, "lock:subscription:sub-1", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
			t.Fatalf("expected ErrLockHeld, got %v", err)
		}

		if err := l.Unlock(ctx, "lock:subscription:sub-1", token); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
		if _, err := l.TryLock(ctx, "lock:subscription:sub-1", time.Minute); err != nil {
			t.Fatalf("TryLock after unlock: %v", err)
		}
	})

	t.Run("unlock with a stale token leaves the lock in place", func(t *testing.T) {
		l, _ := newLocker(t)

		_, err := l.TryLock(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("TryLock: %v", err)
		}
		if err := l.Unlock(ctx, "k", "not-my-token"); err != nil {
			t.Fatalf("Unlock with wrong token must be a no-op, got %v", err)
		}
		if _, err := l.TryLock(ctx, "k", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
			t.Fatalf("lock should still be held, got %v", err)
		}
	})

	t.Run("lock expires by TTL", func(t *testing.T) {
		l, mr := newLocker(t)

		if _, err := l.TryLock(ctx, "k", time.Second); err != nil {
			t.Fatalf("TryLock: %v", err)
		}
		mr.FastForward(2 * time.Second)
		if _, err := l.TryLock(ctx, "k", time.Second); err != nil {
			t.Fatalf("expired lock must be acquirable: %v", err)
		}
	})
}
