package buywatch

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	transactionsMaxEntriesEnv = "BUYWATCH_CACHE_TRANSACTIONS_MAX_ENTRIES"
	transactionsTTLEnv        = "BUYWATCH_CACHE_TRANSACTIONS_TTL"

	defaultTransactionsMax = 3000
	defaultTransactionsTTL = 10 * time.Minute
)

type cacheConfig struct {
	maxEntries int
	ttl        time.Duration
}

func transactionCacheConfig() cacheConfig {
	return cacheConfig{
		maxEntries: loadIntEnv(transactionsMaxEntriesEnv, defaultTransactionsMax),
		ttl:        loadDurationEnv(transactionsTTLEnv, defaultTransactionsTTL),
	}
}

func loadIntEnv(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	num, err := strconv.Atoi(value)
	if err != nil || num < 0 {
		return fallback
	}
	return num
}

func loadDurationEnv(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	dur, err := time.ParseDuration(value)
	if err != nil || dur < 0 {
		return fallback
	}
	return dur
}

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// methodCache is a TTL'd LRU keyed by string. A nil cache is a valid no-op.
type methodCache[V any] struct {
	ttl   time.Duration
	mu    sync.RWMutex
	store *lru.Cache[string, cacheEntry[V]]
}

func newMethodCache[V any](cfg cacheConfig) *methodCache[V] {
	if cfg.maxEntries <= 0 {
		return nil
	}
	store, _ := lru.New[string, cacheEntry[V]](cfg.maxEntries)
	return &methodCache[V]{
		ttl:   cfg.ttl,
		store: store,
	}
}

func (c *methodCache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil || key == "" {
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.store.Get(key)
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		c.mu.Lock()
		c.store.Remove(key)
		c.mu.Unlock()
		return zero, false
	}
	return entry.value, true
}

func (c *methodCache[V]) Add(key string, value V) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	c.store.Add(key, cacheEntry[V]{value: value, storedAt: time.Now()})
	c.mu.Unlock()
}
