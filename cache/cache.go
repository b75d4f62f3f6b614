package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/structresp/contract"
)

// Entry is one cached parse outcome, successful or failed. Entries are
// created once and replaced, never updated; TTL is fixed at insertion.
type Entry struct {
	RawText   string           `json:"raw_text"`
	Decoded   any              `json:"decoded,omitempty"`
	Outcome   contract.Outcome `json:"outcome"`
	CreatedAt time.Time        `json:"created_at"`
	TTL       time.Duration    `json:"ttl"`
}

// Expired reports whether the entry's age exceeds its TTL at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// ResultCache is what the engine consults before parsing. Implementations
// must never fail the overall flow: a broken backend degrades to misses.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry *Entry)
}

// Config sizes the result cache and its TTL profiles: a short TTL for live
// interactive traffic and a long one for repeatable batch runs.
type Config struct {
	Capacity int           `yaml:"capacity" env:"CAPACITY"`
	TTLLive  time.Duration `yaml:"ttl_live" env:"TTL_LIVE"`
	TTLBatch time.Duration `yaml:"ttl_batch" env:"TTL_BATCH"`
	Local    bool          `yaml:"local" env:"LOCAL"`
	Redis    bool          `yaml:"redis" env:"REDIS"`
}

// DefaultConfig returns the recommended sizing: local cache on, Redis off.
func DefaultConfig() Config {
	return Config{
		Capacity: 1024,
		TTLLive:  5 * time.Minute,
		TTLBatch: time.Hour,
		Local:    true,
		Redis:    false,
	}
}

const redisKeyPrefix = "structresp:result:"

// MultiLevel is a two-level result cache: a local LRU in front of an
// optional Redis client. Redis errors are logged and degrade to the local
// level only; no cache operation ever surfaces an error to the engine.
type MultiLevel struct {
	local  *LRU
	rdb    *redis.Client
	config Config
	logger *zap.Logger
}

// NewMultiLevel wires the cache per cfg. rdb may be nil, which disables
// the Redis level regardless of cfg.Redis.
func NewMultiLevel(cfg Config, rdb *redis.Client, logger *zap.Logger) *MultiLevel {
	if logger == nil {
		logger = zap.NewNop()
	}
	var local *LRU
	if cfg.Local {
		local = NewLRU(cfg.Capacity)
	}
	if !cfg.Redis {
		rdb = nil
	}
	return &MultiLevel{
		local:  local,
		rdb:    rdb,
		config: cfg,
		logger: logger.With(zap.String("component", "result_cache")),
	}
}

// TTLFor picks the TTL profile for a request.
func (c *MultiLevel) TTLFor(batch bool) time.Duration {
	if batch {
		return c.config.TTLBatch
	}
	return c.config.TTLLive
}

// Get consults the local level first, then Redis. A Redis hit is
// backfilled into the local level. Expired entries are misses.
func (c *MultiLevel) Get(ctx context.Context, key string) (*Entry, bool) {
	if c.local != nil {
		if entry, ok := c.local.Get(key); ok {
			return entry, true
		}
	}

	if c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
			c.logger.Warn("redis get failed", zap.Error(err))
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.Error(err))
		return nil, false
	}
	if entry.Expired(time.Now()) {
		return nil, false
	}
	if c.local != nil {
		c.local.Set(key, &entry)
	}
	return &entry, true
}

// Set stores the entry at both levels, stamping CreatedAt when unset.
// Failures are logged, never returned: the caller has already parsed and
// must not be failed by cache bookkeeping.
func (c *MultiLevel) Set(ctx context.Context, key string, entry *Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if c.local != nil {
		c.local.Set(key, entry)
	}

	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("cache entry not serializable", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, data, entry.TTL).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.Error(err))
	}
}
