//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"os"
	"testing"
)

// SeedAsicDB loads a JSON seed file into the ASIC test database.
// The JSON format is: { "ASIC_STATE:<type>:<key>": { "field": "value", ... }, ... }
// An empty object is written with the NULL sentinel.
func SeedAsicDB(t *testing.T, seedFile string) {
	t.Helper()

	data, err := os.ReadFile(seedFile)
	if err != nil {
		t.Fatalf("reading seed file %s: %v", seedFile, err)
	}
	var objects map[string]map[string]string
	if err := json.Unmarshal(data, &objects); err != nil {
		t.Fatalf("parsing seed file %s: %v", seedFile, err)
	}
	for key, fields := range objects {
		WriteHash(t, AsicDB, key, fields)
	}
}

// WriteHash writes a single hash to a test database.
func WriteHash(t *testing.T, db int, key string, fields map[string]string) {
	t.Helper()

	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if len(args) == 0 {
		args = append(args, "NULL", "NULL")
	}
	if err := RedisClient(t, db).HSet(context.Background(), key, args...).Err(); err != nil {
		t.Fatalf("writing %s: %v", key, err)
	}
}

// ReadHash reads a hash from a test database.
func ReadHash(t *testing.T, db int, key string) map[string]string {
	t.Helper()

	vals, err := RedisClient(t, db).HGetAll(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("reading %s: %v", key, err)
	}
	return vals
}

// KeyExists checks if a key exists in a test database.
func KeyExists(t *testing.T, db int, key string) bool {
	t.Helper()

	n, err := RedisClient(t, db).Exists(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("checking existence of %s: %v", key, err)
	}
	return n > 0
}
