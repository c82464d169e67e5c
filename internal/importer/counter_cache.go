package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cablesync/internal/config"
	"cablesync/internal/constants"
	"cablesync/pkg/circuitbreaker"
)

type RedisCounterCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCounterCache(client *redis.Client, ttl time.Duration) *RedisCounterCache {
	if ttl <= 0 {
		ttl = time.Duration(constants.DefaultTTLSeconds) * time.Second
	}
	return &RedisCounterCache{client: client, ttl: ttl}
}

func counterKey(scopeID string) string {
	return constants.CacheKeyPrefixCounters + scopeID
}

func generationKey(scopeID string) string {
	return constants.CacheKeyPrefixCounters + "gen:" + scopeID
}

func (c *RedisCounterCache) Get(ctx context.Context, scopeID string) (CounterLookup, error) {
	values, err := c.client.MGet(ctx, counterKey(scopeID), generationKey(scopeID)).Result()
	if err != nil {
		return CounterLookup{}, fmt.Errorf("redis mget failed: %w", err)
	}

	if raw, ok := values[0].(string); ok {
		var counters map[string]Counters
		if err := json.Unmarshal([]byte(raw), &counters); err != nil {
			return CounterLookup{}, fmt.Errorf("failed to decode cached counters: %w", err)
		}
		return CounterLookup{Counters: counters, Hit: true}, nil
	}

	var lookup CounterLookup
	if raw, ok := values[1].(string); ok {
		if lookup.Generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return CounterLookup{}, fmt.Errorf("failed to decode counter generation: %w", err)
		}
	}
	return lookup, nil
}

// Set writes under WATCH on the generation key, so an Invalidate that lands
// between the lookup and this call wins.
func (c *RedisCounterCache) Set(ctx context.Context, scopeID string, generation int64, counters map[string]Counters) (bool, error) {
	raw, err := json.Marshal(counters)
	if err != nil {
		return false, fmt.Errorf("failed to encode counters: %w", err)
	}

	genKey := generationKey(scopeID)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, counterKey(scopeID), raw, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("redis set failed: %w", err)
	}
	return stored, nil
}

func (c *RedisCounterCache) Invalidate(ctx context.Context, scopeID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(scopeID))
		pipe.Del(ctx, counterKey(scopeID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

type CircuitBreakerCounterCache struct {
	cache CounterCache
	cb    *circuitbreaker.Wrapper
}

// NewCircuitBreakerCounterCache returns cache unchanged when the breaker is disabled.
func NewCircuitBreakerCounterCache(cache CounterCache, cfg config.CircuitBreakerConfig) CounterCache {
	if !cfg.Enabled {
		return cache
	}
	return &CircuitBreakerCounterCache{
		cache: cache,
		cb:    circuitbreaker.NewWrapper(circuitbreaker.FromSettings("redis-counters", cfg)),
	}
}

func (c *CircuitBreakerCounterCache) Get(ctx context.Context, scopeID string) (lookup CounterLookup, err error) {
	err = c.cb.Call(ctx, func() error {
		var getErr error
		lookup, getErr = c.cache.Get(ctx, scopeID)
		return getErr
	})
	if err != nil {
		return CounterLookup{}, err
	}
	return lookup, nil
}

func (c *CircuitBreakerCounterCache) Set(ctx context.Context, scopeID string, generation int64, counters map[string]Counters) (stored bool, err error) {
	err = c.cb.Call(ctx, func() error {
		var setErr error
		stored, setErr = c.cache.Set(ctx, scopeID, generation, counters)
		return setErr
	})
	if err != nil {
		return false, err
	}
	return stored, nil
}

func (c *CircuitBreakerCounterCache) Invalidate(ctx context.Context, scopeID string) error {
	return c.cb.Call(ctx, func() error {
		return c.cache.Invalidate(ctx, scopeID)
	})
}

func (c *CircuitBreakerCounterCache) State() string {
	return c.cb.State()
}
