package cache

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisFromClient(client, zap.NewNop()), mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRedisCacheGetSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var got payload
	hit, err := c.Get(ctx, "missing", &got)
	if err != nil || hit {
		t.Fatalf("Get(missing) = %v, %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "k", payload{Name: "a", Count: 3}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	hit, err = c.Get(ctx, "k", &got)
	if err != nil || !hit {
		t.Fatalf("Get(k) = %v, %v; want hit", hit, err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	hit, _ = c.Get(ctx, "k", &got)
	if hit {
		t.Error("entry should have expired")
	}
}

func TestRedisCacheDeletePattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 750; i++ {
		if err := c.Set(ctx, fmt.Sprintf("availability:t1:%d", i), i, time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := c.Set(ctx, "availability:t2:0", 0, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := c.DeletePattern(ctx, "availability:t1:*"); err != nil {
		t.Fatalf("DeletePattern: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "availability:t2:0" {
		t.Errorf("remaining keys = %v", keys)
	}
}

func TestRedisCacheDeletePatternInterleavedKeyspace(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	// Matching and non-matching keys share the keyspace so every SCAN page
	// mixes both, and the match count spans several DEL batches.
	for i := 0; i < 1300; i++ {
		mr.Set(fmt.Sprintf("availability:t1:%04d", i), "x")
		mr.Set(fmt.Sprintf("availability:t2:%04d", i), "x")
	}

	if err := c.DeletePattern(ctx, "availability:t1:*"); err != nil {
		t.Fatalf("DeletePattern: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1300 {
		t.Fatalf("remaining keys = %d, want 1300", len(keys))
	}
	for _, k := range keys {
		if strings.HasPrefix(k, "availability:t1:") {
			t.Fatalf("key %s survived invalidation", k)
		}
	}

	if err := c.DeletePattern(ctx, "availability:none:*"); err != nil {
		t.Errorf("DeletePattern with no matches: %v", err)
	}
}

func TestRedisCacheIncrWindow(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "ratelimit:login:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Errorf("Incr = %d, want %d", got, want)
		}
	}
	if ttl := mr.TTL("ratelimit:login:1.2.3.4"); ttl != time.Minute {
		t.Errorf("TTL = %v, want the window set by the first increment", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	got, err := c.Incr(ctx, "ratelimit:login:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if got != 1 {
		t.Errorf("Incr after window = %d, want 1", got)
	}
}

func TestRedisCacheErrorsWhenDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	var got payload
	if _, err := c.Get(context.Background(), "k", &got); err == nil {
		t.Error("expected error from closed server")
	}
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	if err := c.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatal(err)
	}
	var v int
	if hit, err := c.Get(ctx, "k", &v); hit || err != nil {
		t.Errorf("Noop.Get = %v, %v", hit, err)
	}
}
