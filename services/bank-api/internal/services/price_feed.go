package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nimeshabuddhika/resilient-banking/pkg/cache"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const priceCacheKey = "prices:usd"

// PriceSource returns USD prices keyed by upper-case symbol.
type PriceSource interface {
	Prices(ctx context.Context) (map[string]decimal.Decimal, error)
}

// PriceFeed reads prices from an HTTP endpoint, caches them in Redis and falls
// back to a static table when the endpoint is unset or unreachable.
type PriceFeed struct {
	logger *zap.Logger
	client *http.Client
	url    string
	cache  redis.Cmdable
	ttl    time.Duration
	static map[string]decimal.Decimal
}

func NewPriceFeed(logger *zap.Logger, url string, cacheClient redis.Cmdable, ttl time.Duration, static map[string]decimal.Decimal) *PriceFeed {
	return &PriceFeed{
		logger: logger,
		client: utils.NewHTTPClient(utils.WithClientTimeout(3 * time.Second)),
		url:    url,
		cache:  cacheClient,
		ttl:    ttl,
		static: static,
	}
}

// ParseStaticPrices parses "BTC=65000,ETH=3200".
func ParseStaticPrices(raw string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		if utils.IsEmpty(pair) {
			continue
		}
		symbol, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed price %q", pair)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", symbol, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for %s must be positive", symbol)
		}
		prices[strings.ToUpper(strings.TrimSpace(symbol))] = price
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no prices configured")
	}
	return prices, nil
}

func (f *PriceFeed) Prices(ctx context.Context) (map[string]decimal.Decimal, error) {
	if f.cache != nil {
		var cached map[string]decimal.Decimal
		err := cache.GetJSON(ctx, f.cache, priceCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logger.Warn("price_cache_read_failed", zap.Error(err))
		}
	}
	if f.url == "" {
		return f.static, nil
	}

	prices, err := f.fetch(ctx)
	if err != nil {
		f.logger.Warn("price_feed_unavailable_using_static", zap.String("url", f.url), zap.Error(err))
		return f.static, nil
	}
	if f.cache != nil {
		if err := cache.SetJSON(ctx, f.cache, priceCacheKey, prices, f.ttl); err != nil {
			f.logger.Warn("price_cache_write_failed", zap.Error(err))
		}
	}
	return prices, nil
}

func (f *PriceFeed) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price feed returned %d", resp.StatusCode)
	}
	var raw map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(raw))
	for symbol, price := range raw {
		if price.IsPositive() {
			prices[strings.ToUpper(symbol)] = price
		}
	}
	// symbols the feed does not cover keep their static price
	for symbol, price := range f.static {
		if _, ok := prices[symbol]; !ok {
			prices[symbol] = price
		}
	}
	return prices, nil
}
