package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultTestRedisDB keeps tests away from DB 0, where a developer's own data usually lives.
const defaultTestRedisDB = 15

// SetupTestRedis returns a client on an emptied test DB, trying TEST_REDIS_ADDR or REDIS_ADDR,
// then the compose addresses. It skips t when no Redis answers unless TEST_REQUIRE_REDIS is set.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	for _, key := range []string{"REDIS_ADDR", "TEST_REDIS_ADDR"} {
		if v := os.Getenv(key); v != "" {
			candidates = append([]string{v}, candidates...)
		}
	}

	dbIndex := defaultTestRedisDB
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			dbIndex = i
		}
	}

	for _, addr := range candidates {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		if err == nil {
			err = client.FlushDB(ctx).Err()
		}
		cancel()
		if err != nil {
			t.Logf("Redis not available at %s: %v", addr, err)
			_ = client.Close()
			continue
		}
		t.Logf("Using Redis DB=%d at %s", dbIndex, addr)
		t.Cleanup(func() { _ = client.Close() })
		return client
	}

	if requireRedis() {
		t.Fatal("Redis not available for testing")
	}
	t.Skip("Redis not available for testing")
	return nil
}
