package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newRedisLocker(t *testing.T, wait time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, 5*time.Second, wait, zap.NewNop()), mr
}

func TestRedisLockerAcquireRelease(t *testing.T) {
	l, mr := newRedisLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "project:7:numbering")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("lock:project:7:numbering") {
		t.Fatal("expected lock key to exist")
	}

	if _, err := l.Acquire(ctx, "project:7:numbering"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout while held, got %v", err)
	}

	release()
	if mr.Exists("lock:project:7:numbering") {
		t.Fatal("expected lock key to be deleted on release")
	}

	again, err := l.Acquire(ctx, "project:7:numbering")
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	again()
}

func TestRedisLockerDoesNotReleaseForeignLock(t *testing.T) {
	l, mr := newRedisLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// 锁过期后被其他持有者获取
	mr.FastForward(6 * time.Second)
	if err := mr.Set("lock:k", "someone-else"); err != nil {
		t.Fatalf("set: %v", err)
	}

	release()
	got, err := mr.Get("lock:k")
	if err != nil || got != "someone-else" {
		t.Fatalf("foreign lock must survive release, got %q err=%v", got, err)
	}
}

func TestRedisLockerSetsTTL(t *testing.T) {
	l, mr := newRedisLocker(t, 100*time.Millisecond)
	release, err := l.Acquire(context.Background(), "ttl")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	if ttl := mr.TTL("lock:ttl"); ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}
