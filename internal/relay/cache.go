// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/toeirei/waymaster/internal/model"
)

// topologyCacheKey is the single Redis key holding the JSON-encoded edge set.
const topologyCacheKey = "waymaster:topology"

// DefaultCacheTTL bounds how stale a cached topology may get before the
// relay goes back to the cloud server.
const DefaultCacheTTL = 30 * time.Second

// ErrCacheMiss is returned by Get when no topology is cached.
var ErrCacheMiss = errors.New("relay: topology not in cache")

// WeightCache keeps the last fetched topology in Redis so a busy relay does
// not hammer the cloud server on every route request.
type WeightCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWeightCache connects to Redis and verifies the connection.
// ttl <= 0 selects DefaultCacheTTL.
func NewWeightCache(ctx context.Context, addr, password string, dbNum int, ttl time.Duration) (*WeightCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &WeightCache{client: rdb, ttl: ttl}, nil
}

// Get returns the cached topology, or ErrCacheMiss when the key is absent
// or expired.
func (c *WeightCache) Get(ctx context.Context) ([]model.Edge, error) {
	val, err := c.client.Get(ctx, topologyCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var edges []model.Edge
	if err := json.Unmarshal(val, &edges); err != nil {
		return nil, err
	}
	return edges, nil
}

// Put stores the topology with the configured TTL.
func (c *WeightCache) Put(ctx context.Context, edges []model.Edge) error {
	data, err := json.Marshal(edges)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, topologyCacheKey, data, c.ttl).Err()
}

// Close releases the Redis connection.
func (c *WeightCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
