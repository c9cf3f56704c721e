package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New(errors.ErrCodeCacheError, "cache miss")

// CanonicalCache maps (engine, notation) to the engine's canonical notation.
// Entries expire after the default TTL with a +/-10% jitter so that a burst
// of writes does not expire at once.
type CanonicalCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

type CacheOption func(*CanonicalCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *CanonicalCache) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CanonicalCache) { c.ttl = ttl }
}

func NewCanonicalCache(client *Client, log logging.Logger, opts ...CacheOption) *CanonicalCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &CanonicalCache{
		client: client,
		logger: log,
		prefix: "ctk:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key of a notation.  Notations are hashed because
// polymer strings easily exceed a sensible key length.
func (c *CanonicalCache) Key(engine, notation string) string {
	sum := sha256.Sum256([]byte(notation))
	return c.prefix + "canon:" + engine + ":" + hex.EncodeToString(sum[:])
}

func (c *CanonicalCache) jitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl + time.Duration(float64(ttl)*0.1*(rand.Float64()*2-1))
}

// Get returns the cached canonical notation or ErrCacheMiss.
func (c *CanonicalCache) Get(ctx context.Context, engine, notation string) (string, error) {
	val, err := c.client.Get(ctx, c.Key(engine, notation)).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeCacheError, "canonical cache get failed")
	}
	return val, nil
}

func (c *CanonicalCache) Set(ctx context.Context, engine, notation, canonical string) error {
	if err := c.client.Set(ctx, c.Key(engine, notation), canonical, c.jitter(c.ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "canonical cache set failed")
	}
	return nil
}

// GetOrLoad returns the cached value, or runs load once per key across
// concurrent callers and stores its result.  hit reports whether the value
// came from Redis.  A Redis failure degrades to calling load directly.
func (c *CanonicalCache) GetOrLoad(ctx context.Context, engine, notation string, load func(context.Context) (string, error)) (val string, hit bool, err error) {
	val, err = c.Get(ctx, engine, notation)
	if err == nil {
		return val, true, nil
	}
	if err != ErrCacheMiss {
		c.logger.Warn("canonical cache unavailable, loading directly", logging.Err(err))
		val, err = load(ctx)
		return val, false, err
	}

	v, err, _ := c.group.Do(c.Key(engine, notation), func() (interface{}, error) {
		s, loadErr := load(ctx)
		if loadErr != nil {
			return "", loadErr
		}
		if setErr := c.Set(ctx, engine, notation, s); setErr != nil {
			c.logger.Warn("failed to populate canonical cache", logging.Err(setErr))
		}
		return s, nil
	})
	if err != nil {
		return "", false, err
	}
	return v.(string), false, nil
}

// Invalidate drops every cached entry of engine.
func (c *CanonicalCache) Invalidate(ctx context.Context, engine string) (int64, error) {
	var (
		deleted int64
		cursor  uint64
	)
	match := c.prefix + "canon:" + engine + ":*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "canonical cache scan failed")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "canonical cache delete failed")
			}
			deleted += int64(len(keys))
		}
		if cursor = next; cursor == 0 {
			return deleted, nil
		}
	}
}

func (c *CanonicalCache) Ping(ctx context.Context) error { return c.client.Ping(ctx) }
