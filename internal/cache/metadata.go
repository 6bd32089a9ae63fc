// Package cache provides a Redis read-through cache for article metadata.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/originesmedia/og-prerender/infrastructure/logger"
	"github.com/originesmedia/og-prerender/internal/domain"
	"github.com/originesmedia/og-prerender/internal/telemetry"
)

// Defaults for Config.
const (
	DefaultTTL         = 10 * time.Minute
	DefaultNotFoundTTL = time.Minute
	DefaultKeyPrefix   = "og-prerender:meta:"
	DefaultOpTimeout   = 200 * time.Millisecond
)

// notFound is the cached form of "no article has this slug".
const notFound = "null"

// Config configures a MetadataCache. Zero values take the defaults.
type Config struct {
	TTL         time.Duration
	NotFoundTTL time.Duration
	KeyPrefix   string
	OpTimeout   time.Duration
}

// MetadataCache decorates a domain.MetadataFetcher with Redis. Redis failures
// are logged and fall through to the wrapped fetcher. Fetch errors are not
// cached.
type MetadataCache struct {
	next      domain.MetadataFetcher
	client    redis.Cmdable
	ttl       time.Duration
	nfTTL     time.Duration
	prefix    string
	opTimeout time.Duration
	metrics   *telemetry.Metrics
}

// New wraps next. metrics may be nil.
func New(next domain.MetadataFetcher, client redis.Cmdable, cfg Config, metrics *telemetry.Metrics) *MetadataCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.NotFoundTTL <= 0 {
		cfg.NotFoundTTL = DefaultNotFoundTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}

	return &MetadataCache{
		next:      next,
		client:    client,
		ttl:       cfg.TTL,
		nfTTL:     cfg.NotFoundTTL,
		prefix:    cfg.KeyPrefix,
		opTimeout: cfg.OpTimeout,
		metrics:   metrics,
	}
}

// FetchMetadata implements domain.MetadataFetcher.
func (c *MetadataCache) FetchMetadata(ctx context.Context, slug string) (*domain.ContentMetadata, error) {
	key := c.prefix + slug

	if meta, ok := c.get(ctx, key); ok {
		return meta, nil
	}

	meta, err := c.next.FetchMetadata(ctx, slug)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, meta)
	return meta, nil
}

func (c *MetadataCache) get(ctx context.Context, key string) (*domain.ContentMetadata, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	val, err := c.client.Get(opCtx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		c.record(telemetry.CacheMiss)
		return nil, false
	case err != nil:
		c.record(telemetry.CacheError)
		logger.FromContext(ctx).Warn("Metadata cache read failed",
			logger.String("key", key),
			logger.Error(err),
		)
		return nil, false
	}

	if val == notFound {
		c.record(telemetry.CacheHit)
		return nil, true
	}

	var meta domain.ContentMetadata
	if unmarshalErr := json.Unmarshal([]byte(val), &meta); unmarshalErr != nil {
		c.record(telemetry.CacheError)
		logger.FromContext(ctx).Warn("Discarding corrupt metadata cache entry",
			logger.String("key", key),
			logger.Error(unmarshalErr),
		)
		return nil, false
	}

	c.record(telemetry.CacheHit)
	return &meta, true
}

func (c *MetadataCache) set(ctx context.Context, key string, meta *domain.ContentMetadata) {
	val := notFound
	ttl := c.nfTTL
	if meta != nil {
		data, err := json.Marshal(meta)
		if err != nil {
			return
		}
		val = string(data)
		ttl = c.ttl
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(opCtx, key, val, ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("Metadata cache write failed",
			logger.String("key", key),
			logger.Error(err),
		)
	}
}

func (c *MetadataCache) record(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
