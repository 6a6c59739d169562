package serving

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MemoryCache is an in-process prediction cache used when Redis is disabled.
// Entries expire after their TTL; at capacity the oldest entry is evicted.
// ⭐ SSOT: Redis 미사용 시 예측 캐싱은 이 구조체에서만
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memEntry
	maxEntries int
	now        func() time.Time
	log        zerolog.Logger
}

type memEntry struct {
	payload  []byte
	storedAt time.Time
	expires  time.Time // zero never expires
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// NewMemoryCache creates a cache holding at most maxEntries responses (<= 0 means 10000)
func NewMemoryCache(maxEntries int, log zerolog.Logger) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryCache{
		entries:    make(map[string]memEntry),
		maxEntries: maxEntries,
		now:        time.Now,
		log:        log.With().Str("component", "serving.memcache").Logger(),
	}
}

// Get decodes a live entry into dest
func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return false, nil
	}
	if err := json.Unmarshal(e.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value for ttl (<= 0 means no expiry)
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	now := c.now()
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = memEntry{payload: payload, storedAt: now, expires: expires}
	return nil
}

// evictOldest drops the entry stored first. Callers hold mu.
func (c *MemoryCache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(c.entries, oldestKey)
}

// Len returns the number of entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CleanExpired removes expired entries and returns how many were removed
func (c *MemoryCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			count++
		}
	}

	if count > 0 {
		c.log.Debug().Int("count", count).Msg("Cleaned expired predictions from cache")
	}
	return count
}

// Sweep runs CleanExpired every interval until ctx is done
func (c *MemoryCache) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanExpired()
		}
	}
}
