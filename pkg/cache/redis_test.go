package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisCache(t *testing.T) Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCacheRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := newRedisCache(t)

	if _, hit, err := c.Get(ctx, "k"); err != nil || hit {
		t.Fatalf("empty cache should miss cleanly: hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get miss after Set: hit=%v err=%v", hit, err)
	}
	if string(data) != "v" {
		t.Errorf("data unexpected: %q", data)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted key should miss")
	}
}

func TestRedisCacheDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := NewRedisCache(ctx, "127.0.0.1:1", "", 0); err == nil {
		t.Error("unreachable server should fail the ping")
	}
}
