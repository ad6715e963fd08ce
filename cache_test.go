package buywatch

import (
	"testing"
	"time"
)

func TestMethodCacheStoresAndExpires(t *testing.T) {
	cache := newMethodCache[string](cacheConfig{maxEntries: 4, ttl: 20 * time.Millisecond})

	cache.Add("sig-1", "detail-1")
	if got, ok := cache.Get("sig-1"); !ok || got != "detail-1" {
		t.Fatalf("expected cached value, got %q ok=%v", got, ok)
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := cache.Get("sig-1"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestMethodCacheEvictsOldest(t *testing.T) {
	t.Parallel()

	cache := newMethodCache[int](cacheConfig{maxEntries: 2, ttl: time.Minute})

	cache.Add("a", 1)
	cache.Add("b", 2)
	cache.Add("c", 3)

	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected the oldest entry to be evicted")
	}
	if got, ok := cache.Get("c"); !ok || got != 3 {
		t.Fatalf("expected newest entry, got %d ok=%v", got, ok)
	}
}

func TestMethodCacheNilSafe(t *testing.T) {
	t.Parallel()

	var cache *methodCache[string]
	cache.Add("key", "value")
	if _, ok := cache.Get("key"); ok {
		t.Fatal("nil cache should never hit")
	}

	cache = newMethodCache[string](cacheConfig{maxEntries: 0})
	if cache != nil {
		t.Fatal("zero capacity should disable the cache")
	}
}

func TestMethodCacheIgnoresEmptyKey(t *testing.T) {
	t.Parallel()

	cache := newMethodCache[string](cacheConfig{maxEntries: 2, ttl: time.Minute})
	cache.Add("", "value")
	if _, ok := cache.Get(""); ok {
		t.Fatal("empty keys are not cached")
	}
}

func TestTransactionCacheConfigDefaults(t *testing.T) {
	cfg := transactionCacheConfig()
	if cfg.maxEntries != defaultTransactionsMax {
		t.Fatalf("unexpected max entries: %d", cfg.maxEntries)
	}
	if cfg.ttl != defaultTransactionsTTL {
		t.Fatalf("unexpected ttl: %s", cfg.ttl)
	}
}

func TestTransactionCacheConfigFromEnv(t *testing.T) {
	t.Setenv(transactionsMaxEntriesEnv, "50")
	t.Setenv(transactionsTTLEnv, "90s")

	cfg := transactionCacheConfig()
	if cfg.maxEntries != 50 {
		t.Fatalf("unexpected max entries: %d", cfg.maxEntries)
	}
	if cfg.ttl != 90*time.Second {
		t.Fatalf("unexpected ttl: %s", cfg.ttl)
	}
}

func TestLoadIntEnvRejectsGarbage(t *testing.T) {
	t.Setenv(transactionsMaxEntriesEnv, "not-a-number")
	if got := loadIntEnv(transactionsMaxEntriesEnv, 7); got != 7 {
		t.Fatalf("expected fallback, got %d", got)
	}

	t.Setenv(transactionsMaxEntriesEnv, "-5")
	if got := loadIntEnv(transactionsMaxEntriesEnv, 7); got != 7 {
		t.Fatalf("expected fallback for negatives, got %d", got)
	}
}
