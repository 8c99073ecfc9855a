package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return NewFromAddr(srv.Addr())
}

func TestAcquireLockIsExclusive(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	key := client.UserLockKey("user-1")
	ok, err := client.AcquireLock(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok {
		t.Fatal("first acquire should succeed")
	}

	ok, err = client.AcquireLock(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("lock should be held")
	}

	if err := client.ReleaseLock(ctx, key); err != nil {
		t.Fatalf("release: %v", err)
	}

	ok, err = client.AcquireLock(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !ok {
		t.Fatal("lock should be free after release")
	}
}

func TestFixedWindowAllow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := client.FixedWindowAllow(ctx, "login:1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	allowed, count, err := client.FixedWindowAllow(ctx, "login:1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("final allow: %v", err)
	}
	if allowed {
		t.Fatal("fourth request should be rejected")
	}
	if count != 4 {
		t.Fatalf("expected count 4, got %d", count)
	}
}
