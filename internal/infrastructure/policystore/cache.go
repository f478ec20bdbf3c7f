package policystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/infrastructure/config"
)

// PolicyCachePrefix prefixes the per-organization cache keys
const PolicyCachePrefix = "riskgate:policies:"

// Cache lookup outcomes reported to the CacheObserver
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// CacheObserver is told the outcome of every lookup
type CacheObserver interface {
	CacheLookup(result string)
}

// CachedProvider is a read-through Redis cache in front of another provider.
// Redis failures fall through to the wrapped provider.
type CachedProvider struct {
	next     Provider
	client   *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
	observer CacheObserver
}

// NewRedisClient connects to the configured Redis and pings it
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.URL,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis policy cache connected",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB))

	return client, nil
}

// NewCachedProvider wraps next with a cache of the given TTL. observer may be nil.
func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration, logger *zap.Logger, observer CacheObserver) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		next:     next,
		client:   client,
		ttl:      ttl,
		logger:   logger,
		observer: observer,
	}
}

// ListActivePolicies serves from Redis when possible and fills it on a miss
func (c *CachedProvider) ListActivePolicies(ctx context.Context, organizationID string) ([]*policy.Policy, error) {
	key := PolicyCachePrefix + organizationID

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []*policy.Policy
		decodeErr := json.Unmarshal(data, &cached)
		if decodeErr == nil {
			c.report(CacheHit)
			return cached, nil
		}
		c.logger.Warn("discarding undecodable cached policies",
			zap.String("key", key),
			zap.Error(decodeErr))
		c.report(CacheError)
	case err == redis.Nil:
		c.report(CacheMiss)
	default:
		c.logger.Warn("redis get failed, reading through",
			zap.String("key", key),
			zap.Error(err))
		c.report(CacheError)
	}

	policies, err := c.next.ListActivePolicies(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, policies)
	return policies, nil
}

// Invalidate drops the cached policies of an organization
func (c *CachedProvider) Invalidate(ctx context.Context, organizationID string) error {
	key := PolicyCachePrefix + organizationID
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("redis delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *CachedProvider) store(ctx context.Context, key string, policies []*policy.Policy) {
	if policies == nil {
		policies = []*policy.Policy{}
	}
	data, err := json.Marshal(policies)
	if err != nil {
		c.logger.Warn("json marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed",
			zap.String("key", key),
			zap.Duration("ttl", c.ttl),
			zap.Error(err))
	}
}

func (c *CachedProvider) report(result string) {
	if c.observer != nil {
		c.observer.CacheLookup(result)
	}
}
