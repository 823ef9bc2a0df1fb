package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"floodrescue/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Cache keeps computed routes by request and responder position.
type Cache interface {
	Get(ctx context.Context, requestID string, from models.Location) (Route, bool)
	Put(ctx context.Context, requestID string, from models.Location, r Route)
}

// MemoryCache holds one route per request. A route computed from a different
// responder position replaces the previous one.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	from  models.Location
	route Route
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, requestID string, from models.Location) (Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[requestID]
	if !ok || e.from != from {
		return Route{}, false
	}
	return e.route, true
}

func (c *MemoryCache) Put(_ context.Context, requestID string, from models.Location, r Route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[requestID] = memoryEntry{from: from, route: r}
}

// Forget drops the route of a request, e.g. once it is resolved or cancelled.
func (c *MemoryCache) Forget(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, requestID)
}

// RedisCache shares routes between processes. Entries expire after ttl.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// RedisKey is the key a route is stored under.
func RedisKey(requestID string, from models.Location) string {
	return fmt.Sprintf("route:%s:%f,%f", requestID, from.Lat, from.Lng)
}

func (c *RedisCache) Get(ctx context.Context, requestID string, from models.Location) (Route, bool) {
	data, err := c.rdb.Get(ctx, RedisKey(requestID, from)).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; other errors are treated the same.
		return Route{}, false
	}
	var r Route
	if err := json.Unmarshal(data, &r); err != nil {
		return Route{}, false
	}
	return r, true
}

func (c *RedisCache) Put(ctx context.Context, requestID string, from models.Location, r Route) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, RedisKey(requestID, from), data, c.ttl).Err()
}
