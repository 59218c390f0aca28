package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricescout/pricescout/internal/models"
)

const redisKeyPrefix = "pricescout:search:"

// RedisStore is the persistent backend. Hard expiry rides on the redis
// TTL; staleness is judged from the stored timestamp on read.
type RedisStore struct {
	client *redis.Client
	opts   Options
	logger *slog.Logger
	hits   *hitWindow
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, opts Options, logger *slog.Logger) *RedisStore {
	if opts.ExpireAfter == 0 {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: client,
		opts:   opts,
		logger: logger.With("component", "cache", "backend", "redis"),
		hits:   newHitWindow(time.Hour),
		now:    time.Now,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]models.Product, bool, bool) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, false
	}
	if err != nil {
		s.logger.Warn("cache read failed", "error", err)
		return nil, false, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn("cache entry corrupt, dropping", "key", key, "error", err)
		s.client.Del(ctx, redisKeyPrefix+key)
		return nil, false, false
	}

	age := s.now().Sub(entry.StoredAt)
	if age >= s.opts.ExpireAfter {
		s.client.Del(ctx, redisKeyPrefix+key)
		return nil, false, false
	}

	s.hits.record(s.now())
	return entry.Products, age >= s.opts.FreshFor, true
}

func (s *RedisStore) Set(ctx context.Context, key string, products []models.Product) {
	entry := models.CacheEntry{Products: products, StoredAt: s.now()}
	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("cache entry marshal failed", "key", key, "error", err)
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, raw, s.opts.ExpireAfter).Err(); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (s *RedisStore) ClearAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *RedisStore) Stats(ctx context.Context) Stats {
	count := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return Stats{
		Entries:    count,
		RecentHits: s.hits.count(s.now()),
	}
}
