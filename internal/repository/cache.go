package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"restobook/internal/models"
)

const cacheRetryInterval = time.Minute

// CachedRepository serves restaurant reads from Redis and falls back to the
// underlying store. When Redis starts failing the cache is bypassed and only
// probed again once per cacheRetryInterval.
type CachedRepository struct {
	store  RestaurantRepository
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewCachedRepository(store RestaurantRepository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedRepository {
	return &CachedRepository{
		store:  store,
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "restaurant_cache").Logger(),
	}
}

func restaurantKey(id int64) string {
	return fmt.Sprintf("restaurant:%d", id)
}

func (c *CachedRepository) Load(ctx context.Context, id int64) (*models.Restaurant, error) {
	if r, ok := c.readCache(ctx, id); ok {
		return r, nil
	}

	r, err := c.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, r)
	return r, nil
}

func (c *CachedRepository) Save(ctx context.Context, r *models.Restaurant) (*models.Restaurant, error) {
	saved, err := c.store.Save(ctx, r)
	if r != nil {
		c.invalidate(ctx, r.ID)
	}
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, saved)
	return saved, nil
}

func (c *CachedRepository) List(ctx context.Context) ([]*models.Restaurant, error) {
	return c.store.List(ctx)
}

func (c *CachedRepository) ListByCity(ctx context.Context, city string) ([]*models.Restaurant, error) {
	return c.store.ListByCity(ctx, city)
}

func (c *CachedRepository) readCache(ctx context.Context, id int64) (*models.Restaurant, bool) {
	if !c.usable() {
		return nil, false
	}
	val, err := c.redis.Get(ctx, restaurantKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		c.markUp()
		return nil, false
	}
	if err != nil {
		c.markDown(err)
		return nil, false
	}
	c.markUp()

	var r models.Restaurant
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		c.logger.Warn().Err(err).Int64("restaurant_id", id).Msg("Dropping undecodable cache entry")
		return nil, false
	}
	return &r, true
}

func (c *CachedRepository) writeCache(ctx context.Context, r *models.Restaurant) {
	if !c.usable() {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, restaurantKey(r.ID), data, c.ttl).Err(); err != nil {
		c.markDown(err)
		return
	}
	c.markUp()
}

func (c *CachedRepository) invalidate(ctx context.Context, id int64) {
	if !c.usable() {
		return
	}
	if err := c.redis.Del(ctx, restaurantKey(id)).Err(); err != nil {
		c.markDown(err)
	}
}

// usable reports whether the cache may be used right now. While the cache is
// marked down one caller per retry interval is let through as a probe.
func (c *CachedRepository) usable() bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	if !c.isDown.Load() {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastCheck) < cacheRetryInterval {
		return false
	}
	c.lastCheck = time.Now()
	return true
}

func (c *CachedRepository) markDown(err error) {
	if !c.isDown.Swap(true) {
		c.logger.Warn().Err(err).Msg("Redis cache unavailable, reading from store")
	}
	c.mu.Lock()
	c.lastCheck = time.Now()
	c.mu.Unlock()
}

func (c *CachedRepository) markUp() {
	if c.isDown.Swap(false) {
		c.logger.Info().Msg("Redis cache recovered")
	}
}
