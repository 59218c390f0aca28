package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pricescout/pricescout/internal/models"
)

// MemoryStore keeps entries in a mutex-guarded map. The default
// backend for development and tests.
type MemoryStore struct {
	opts   Options
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]models.CacheEntry

	hits *hitWindow
	now  func() time.Time
}

func NewMemoryStore(opts Options, logger *slog.Logger) *MemoryStore {
	if opts.ExpireAfter == 0 {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		opts:    opts,
		logger:  logger.With("component", "cache"),
		entries: make(map[string]models.CacheEntry),
		hits:    newHitWindow(time.Hour),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]models.Product, bool, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, false
	}

	age := s.now().Sub(entry.StoredAt)
	if age >= s.opts.ExpireAfter {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, false
	}

	s.hits.record(s.now())
	return entry.Products, age >= s.opts.FreshFor, true
}

func (s *MemoryStore) Set(ctx context.Context, key string, products []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = models.CacheEntry{Products: products, StoredAt: s.now()}
}

func (s *MemoryStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]models.CacheEntry)
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Entries:    len(s.entries),
		RecentHits: s.hits.count(s.now()),
	}
}

// StartPurge runs a background sweep deleting entries past hard
// expiry, until ctx is cancelled.
func (s *MemoryStore) StartPurge(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.purge()
			}
		}
	}()
}

func (s *MemoryStore) purge() {
	cutoff := s.now().Add(-s.opts.ExpireAfter)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.StoredAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("purged expired cache entries", "removed", removed, "remaining", len(s.entries))
	}
}
