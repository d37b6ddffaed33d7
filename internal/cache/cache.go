// Package cache wraps a Redis client for idcenter's two cross-process
// caching needs: a second-level resolution cache the Resolver can consult
// before falling back to the directory (so a resolved name survives past
// one batch run's in-memory Resolver), and the orphaned-assignment
// detection cache named in §6's persisted-state layout.
//
// Grounded on the sibling Open Cloud Ops module's own pkg/cache/cache.go
// (Cerebra's Redis-backed budget/rate-limit cache): the same
// *redis.Client-wrapping shape, the same connect-and-ping-on-construction
// pattern, the same key-prefix-per-concern convention.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with idcenter-specific caching operations.
type Cache struct {
	client *redis.Client
}

// New creates a Redis-backed Cache connected to redisURL ("host:port").
// Connectivity is verified at construction with a Ping so wiring failures
// surface at startup rather than on first use.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisURL,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: failed to connect to Redis at %s: %w", redisURL, err)
	}

	log.Printf("cache: connected to Redis at %s", redisURL)
	return &Cache{client: client}, nil
}

// Close gracefully shuts down the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func resolutionKey(kind, name string) string {
	return fmt.Sprintf("resolve:%s:%s", kind, name)
}

// GetResolution looks up a previously cached (kind, name) -> id resolution.
// found reports whether the key was present in Redis at all (a cached
// negative lookup is still "present" with an empty id, matching the
// Resolver's own in-memory cacheEntry.found semantics).
func (c *Cache) GetResolution(ctx context.Context, kind, name string) (id string, found bool, err error) {
	val, err := c.client.Get(ctx, resolutionKey(kind, name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get resolution %s/%s: %w", kind, name, err)
	}
	if val == negativeMarker {
		return "", true, nil
	}
	return val, true, nil
}

// negativeMarker caches a confirmed not-found result distinctly from an
// absent cache entry, so a repeated miss doesn't re-query the directory
// within the TTL window.
const negativeMarker = "\x00absent"

// PutResolution caches a (kind, name) -> id resolution. An empty id caches
// a negative (not-found) result. ttl of zero means no expiry.
func (c *Cache) PutResolution(ctx context.Context, kind, name, id string, ttl time.Duration) error {
	val := id
	if val == "" {
		val = negativeMarker
	}
	if err := c.client.Set(ctx, resolutionKey(kind, name), val, ttl).Err(); err != nil {
		return fmt.Errorf("cache: put resolution %s/%s: %w", kind, name, err)
	}
	return nil
}

func orphanKey(assignmentKey string) string {
	return fmt.Sprintf("orphan:%s", assignmentKey)
}

// MarkOrphanChecked records that an assignment's principal existence was
// verified at the current time, so a repeated orphan sweep within ttl can
// skip re-checking it.
func (c *Cache) MarkOrphanChecked(ctx context.Context, assignmentKey string, orphaned bool, ttl time.Duration) error {
	val := "ok"
	if orphaned {
		val = "orphaned"
	}
	if err := c.client.Set(ctx, orphanKey(assignmentKey), val, ttl).Err(); err != nil {
		return fmt.Errorf("cache: mark orphan check %q: %w", assignmentKey, err)
	}
	return nil
}

// OrphanStatus reports whether assignmentKey's orphan status is cached and,
// if so, what it was.
func (c *Cache) OrphanStatus(ctx context.Context, assignmentKey string) (orphaned bool, cached bool, err error) {
	val, err := c.client.Get(ctx, orphanKey(assignmentKey)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("cache: get orphan status %q: %w", assignmentKey, err)
	}
	return val == "orphaned", true, nil
}

// Client returns the underlying Redis client for operations this wrapper
// doesn't expose directly.
func (c *Cache) Client() *redis.Client {
	return c.client
}
