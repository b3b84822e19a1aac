package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/me/rtodash/internal/logging"
)

// setupRedis connects to RTODASH_TEST_REDIS_URL (default DB 15 on
// localhost) and skips when no server answers.
func setupRedis(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("RTODASH_TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := NewRedisStore(ctx, url, time.Minute, logging.Discard())
	if err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	st.prefix = "rtodash:test:" + t.Name() + ":"
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRedisStore_KV(t *testing.T) {
	st := setupRedis(t)
	t.Cleanup(func() { st.DeleteClient(context.Background(), "c_1") })
	exerciseKV(t, st.Client("c_1"))
}

func TestRedisStore_TouchAndDelete(t *testing.T) {
	st := setupRedis(t)
	ctx := context.Background()
	kv := st.Client("c_2")

	if err := st.Touch(ctx, "c_2"); err != nil {
		t.Fatalf("Touch before any Set: %v", err)
	}
	if err := kv.Set(ctx, KeyTheme, "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ttl, err := st.client.TTL(ctx, st.key("c_2")).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("TTL = %v err:%v, want (0, 1m]", ttl, err)
	}

	if err := st.DeleteClient(ctx, "c_2"); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, KeyTheme); ok {
		t.Error("expected client storage to be gone")
	}
}
