//go:build integration

// Package testutil provides helpers for tests that need a Redis server.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// Databases the integration tests use. They are flushed freely, so they
// differ from the SONiC defaults.
const (
	AsicDB     = 11
	CountersDB = 12
)

// RedisAddr returns the address of the test Redis server from
// SAIMETA_TEST_REDIS_ADDR, or the empty string.
func RedisAddr() string {
	return os.Getenv("SAIMETA_TEST_REDIS_ADDR")
}

// SkipIfNoRedis skips the test if the test Redis server is not reachable.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not available: set SAIMETA_TEST_REDIS_ADDR")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
}

// Context returns a context with a reasonable timeout for tests.
// The cancel function is registered via t.Cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// RedisClient returns a redis client for the specified DB.
func RedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()
	addr := RedisAddr()
	if addr == "" {
		t.Fatal("test Redis not available")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	t.Cleanup(func() { client.Close() })
	return client
}

// ResetDBs flushes the ASIC and counters test databases.
func ResetDBs(t *testing.T) {
	t.Helper()
	for _, db := range []int{AsicDB, CountersDB} {
		if err := RedisClient(t, db).FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("flushing DB %d: %v", db, err)
		}
	}
}
