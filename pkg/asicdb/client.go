// Package asicdb delegates SAI operations to a switch through its Redis
// databases. Object state is written to ASIC_DB as ASIC_STATE hashes,
// counters are read from COUNTERS_DB, and notifications arrive on the
// NOTIFICATIONS pub/sub channel.
package asicdb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Database numbers used by SONiC.
const (
	DefaultAsicDB     = 1
	DefaultCountersDB = 2
)

const (
	asicStatePrefix      = "ASIC_STATE:"
	countersPrefix       = "COUNTERS:"
	vidCounterKey        = "VIDCOUNTER"
	switchCounterKey     = "SWITCHCOUNTER"
	notificationsChannel = "NOTIFICATIONS"
	scanCount            = 1000
	defaultTimeout       = 5 * time.Second
)

// Options locates the switch's Redis server.
type Options struct {
	Addr       string
	AsicDB     int
	CountersDB int
	// Timeout bounds every Redis round trip. Zero selects five seconds.
	Timeout time.Duration
}

// Client wraps the ASIC_DB and COUNTERS_DB connections of one switch.
type Client struct {
	asic     *redis.Client
	counters *redis.Client
	addr     string
}

// NewClient creates a client. No connection is made until the first call.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	newRedis := func(db int) *redis.Client {
		return redis.NewClient(&redis.Options{
			Addr:         opts.Addr,
			DB:           db,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		})
	}
	return &Client{
		asic:     newRedis(opts.AsicDB),
		counters: newRedis(opts.CountersDB),
		addr:     opts.Addr,
	}
}

// Addr returns the Redis address the client talks to.
func (c *Client) Addr() string { return c.addr }

// Connect checks that both databases answer.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.asic.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("asic_db ping: %w", err)
	}
	if err := c.counters.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("counters_db ping: %w", err)
	}
	return nil
}

// Close closes both connections.
func (c *Client) Close() error {
	err := c.asic.Close()
	if cerr := c.counters.Close(); err == nil {
		err = cerr
	}
	return err
}

// ObjectKeys lists every ASIC_STATE key.
func (c *Client) ObjectKeys(ctx context.Context) ([]string, error) {
	return c.scanKeys(ctx, asicStatePrefix+"*")
}

// ReadObject returns the hash fields stored under an ASIC_STATE key.
func (c *Client) ReadObject(ctx context.Context, key string) (map[string]string, error) {
	fields, err := c.asic.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return fields, nil
}

// scanKeys uses SCAN to find keys matching a pattern (avoids KEYS on large databases).
func (c *Client) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var allKeys []string
	var cursor uint64
	for {
		keys, nextCursor, err := c.asic.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, err
		}
		allKeys = append(allKeys, keys...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return allKeys, nil
}
