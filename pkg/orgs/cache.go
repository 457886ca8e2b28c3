package orgs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/ssogate/pkg/observability"
)

// CacheConfig configures CachedDirectory
type CacheConfig struct {
	// Size is the maximum number of domains held in process
	Size int
	// TTL applies to found organizations
	TTL time.Duration
	// NegativeTTL applies to not-found results; zero disables negative caching
	NegativeTTL time.Duration
	// KeyPrefix namespaces Redis keys
	KeyPrefix string
}

// DefaultCacheConfig returns the default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Size:        10000,
		TTL:         5 * time.Minute,
		NegativeTTL: 30 * time.Second,
		KeyPrefix:   "ssogate:org:",
	}
}

const (
	layerLRU   = "lru"
	layerRedis = "redis"
)

// redisEntry is the JSON value stored in Redis. Found=false records a
// not-found result.
type redisEntry struct {
	Found  bool                `json:"found"`
	Policy *OrganizationPolicy `json:"policy,omitempty"`
}

// CachedDirectory fronts a Directory with an in-process LRU and an optional
// Redis tier. Only definitive answers (a policy or ErrNotFound) are cached;
// lookup faults always reach the caller uncached. A failing Redis is treated
// as a miss so the backing directory still decides.
type CachedDirectory struct {
	next     Directory
	config   CacheConfig
	positive *lru.LRU[string, *OrganizationPolicy]
	negative *lru.LRU[string, struct{}]
	redis    *redis.Client
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewCachedDirectory wraps next. redisClient may be nil.
func NewCachedDirectory(next Directory, config CacheConfig, redisClient *redis.Client, logger *observability.Logger, metrics *observability.Metrics) *CachedDirectory {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if config.Size <= 0 {
		config.Size = DefaultCacheConfig().Size
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultCacheConfig().KeyPrefix
	}

	c := &CachedDirectory{
		next:     next,
		config:   config,
		positive: lru.NewLRU[string, *OrganizationPolicy](config.Size, nil, config.TTL),
		redis:    redisClient,
		logger:   logger,
		metrics:  metrics,
	}
	if config.NegativeTTL > 0 {
		c.negative = lru.NewLRU[string, struct{}](config.Size, nil, config.NegativeTTL)
	}
	return c
}

func (c *CachedDirectory) key(domain string) string {
	return c.config.KeyPrefix + domain
}

// Lookup checks the LRU, then Redis, then the backing directory
func (c *CachedDirectory) Lookup(ctx context.Context, domain string) (*OrganizationPolicy, error) {
	if policy, ok := c.positive.Get(domain); ok {
		c.metrics.RecordCacheHit(layerLRU)
		return policy.clone(), nil
	}
	if c.negative != nil {
		if _, ok := c.negative.Get(domain); ok {
			c.metrics.RecordCacheHit(layerLRU)
			return nil, ErrNotFound
		}
	}
	c.metrics.RecordCacheMiss(layerLRU)

	if c.redis != nil {
		if entry, ok := c.getRedis(ctx, domain); ok {
			c.metrics.RecordCacheHit(layerRedis)
			if !entry.Found {
				if c.negative != nil {
					c.negative.Add(domain, struct{}{})
				}
				return nil, ErrNotFound
			}
			c.positive.Add(domain, entry.Policy)
			return entry.Policy.clone(), nil
		}
		c.metrics.RecordCacheMiss(layerRedis)
	}

	policy, err := c.next.Lookup(ctx, domain)
	switch {
	case err == nil:
		c.positive.Add(domain, policy.clone())
		c.setRedis(ctx, domain, redisEntry{Found: true, Policy: policy}, c.config.TTL)
		return policy, nil

	case errors.Is(err, ErrNotFound) && !IsLookupError(err):
		if c.negative != nil {
			c.negative.Add(domain, struct{}{})
			c.setRedis(ctx, domain, redisEntry{Found: false}, c.config.NegativeTTL)
		}
		return nil, ErrNotFound

	default:
		return nil, err
	}
}

func (c *CachedDirectory) getRedis(ctx context.Context, domain string) (redisEntry, bool) {
	data, err := c.redis.Get(ctx, c.key(domain)).Bytes()
	if err == redis.Nil {
		return redisEntry{}, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("domain", domain).Warn("Redis directory cache read failed")
		return redisEntry{}, false
	}

	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil || (entry.Found && entry.Policy == nil) {
		c.logger.WithField("domain", domain).Warn("Dropping corrupt directory cache entry")
		c.redis.Del(ctx, c.key(domain))
		return redisEntry{}, false
	}
	return entry, true
}

func (c *CachedDirectory) setRedis(ctx context.Context, domain string, entry redisEntry, ttl time.Duration) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.key(domain), data, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("domain", domain).Warn("Redis directory cache write failed")
	}
}

// Invalidate drops domain from every cache tier
func (c *CachedDirectory) Invalidate(ctx context.Context, domain string) error {
	c.positive.Remove(domain)
	if c.negative != nil {
		c.negative.Remove(domain)
	}
	if c.redis != nil {
		return c.redis.Del(ctx, c.key(domain)).Err()
	}
	return nil
}

// Purge empties the in-process tiers
func (c *CachedDirectory) Purge() {
	c.positive.Purge()
	if c.negative != nil {
		c.negative.Purge()
	}
}
