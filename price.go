package buywatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultPriceAPIURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	priceAssetID       = "solana"
	priceHTTPTimeout   = 10 * time.Second
	priceCacheTTL      = time.Minute

	// fallbackSOLPriceUSD is the placeholder conversion rate used when the
	// oracle cannot be reached.
	fallbackSOLPriceUSD = 100.0
)

// PriceSource yields the current SOL/USD exchange rate.
type PriceSource interface {
	PriceUSD(ctx context.Context) (float64, error)
}

// CoinGeckoPriceSource fetches the SOL price from the CoinGecko simple-price
// API with a short-lived cache. A stale cached value is reused when a refresh
// fails.
type CoinGeckoPriceSource struct {
	URL        string
	HTTPClient *http.Client
	Logger     Logger
	TTL        time.Duration

	now func() time.Time

	mu    sync.Mutex
	cache priceCacheEntry
}

type priceCacheEntry struct {
	value    float64
	storedAt time.Time
	valid    bool
}

// NewCoinGeckoPriceSource constructs a price source against the public
// CoinGecko endpoint.
func NewCoinGeckoPriceSource(logger Logger) *CoinGeckoPriceSource {
	return &CoinGeckoPriceSource{
		URL: defaultPriceAPIURL,
		HTTPClient: &http.Client{
			Timeout: priceHTTPTimeout,
			Transport: &metricsTransport{
				Base:    http.DefaultTransport,
				Counter: externalResponseCounts,
			},
		},
		Logger: logger,
		TTL:    priceCacheTTL,
		now:    time.Now,
	}
}

// PriceUSD returns the cached price when fresh, otherwise refetches. When the
// fetch fails and a stale value exists, the stale value is returned instead of
// the error.
func (s *CoinGeckoPriceSource) PriceUSD(ctx context.Context) (float64, error) {
	if price, ok := s.cached(); ok {
		return price, nil
	}

	price, err := s.fetch(ctx)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cache.valid {
			return s.cache.value, nil
		}
		return 0, err
	}

	s.store(price)
	return price, nil
}

func (s *CoinGeckoPriceSource) cached() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cache.valid {
		return 0, false
	}
	if s.clock().Sub(s.cache.storedAt) > s.ttl() {
		return 0, false
	}
	return s.cache.value, true
}

func (s *CoinGeckoPriceSource) store(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = priceCacheEntry{
		value:    price,
		storedAt: s.clock(),
		valid:    true,
	}
}

func (s *CoinGeckoPriceSource) fetch(ctx context.Context) (float64, error) {
	endpoint := s.URL
	if endpoint == "" {
		endpoint = defaultPriceAPIURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return 0, fmt.Errorf("price status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	entry, ok := payload[priceAssetID]
	if !ok || entry.USD <= 0 {
		return 0, fmt.Errorf("price response missing %s quote", priceAssetID)
	}

	if s.Logger != nil {
		s.Logger.Printf("sol price fetched: $%.2f", entry.USD)
	}
	return entry.USD, nil
}

func (s *CoinGeckoPriceSource) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	s.HTTPClient = &http.Client{Timeout: priceHTTPTimeout}
	return s.HTTPClient
}

func (s *CoinGeckoPriceSource) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return priceCacheTTL
}

func (s *CoinGeckoPriceSource) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
