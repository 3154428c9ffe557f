package postalcode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	keyPostalCode   = "postalcode:v1:"
	defaultCacheTTL = 24 * time.Hour
)

// Store is the key/value backend behind CachedLookup.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

const defaultMemoryEntries = 10000

// MemoryStore keeps entries in a bounded in-process LRU. Used when no Redis is
// configured. Every entry lives for the store's ttl; the per-call ttl passed to
// Set is ignored.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &MemoryStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := s.lru.Get(key)
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, append([]byte(nil), value...))
	return nil
}

// CachedLookup serves found addresses from store and falls back to next.
// Not-found and failed lookups are never cached.
type CachedLookup struct {
	next    Lookup
	store   Store
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewCachedLookup(next Lookup, store Store, ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *CachedLookup {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedLookup{next: next, store: store, ttl: ttl, log: log, metrics: m}
}

func (c *CachedLookup) Lookup(ctx context.Context, postalCode string) (Address, error) {
	code, err := normalize(postalCode)
	if err != nil {
		return Address{}, err
	}
	key := keyPostalCode + code

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.log.Warn("postal cache read failed", zap.String("postal_code", code), zap.Error(err))
	} else if ok {
		var addr Address
		if err := json.Unmarshal(raw, &addr); err == nil {
			c.metrics.IncPostalLookup(metrics.LookupResultHit)
			return addr, nil
		}
		c.log.Warn("postal cache entry corrupt", zap.String("postal_code", code))
	}

	addr, err := c.next.Lookup(ctx, code)
	switch {
	case errors.Is(err, ErrNotFound):
		c.metrics.IncPostalLookup(metrics.LookupResultNotFound)
		return Address{}, err
	case err != nil:
		c.metrics.IncPostalLookup(metrics.LookupResultError)
		return Address{}, err
	}
	c.metrics.IncPostalLookup(metrics.LookupResultMiss)

	if raw, err := json.Marshal(addr); err == nil {
		if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			c.log.Warn("postal cache write failed", zap.String("postal_code", code), zap.Error(err))
		}
	}
	return addr, nil
}
