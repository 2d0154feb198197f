// Package application 行情数据应用服务：价格缓存与定时广播
package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/stocksimulator/internal/marketdata/domain"
	"github.com/wyfcoding/stocksimulator/pkg/logger"
	"github.com/wyfcoding/stocksimulator/pkg/metrics"
)

// DefaultPriceTTL 价格缓存默认有效期
const DefaultPriceTTL = 5 * time.Minute

// RemoteCache 可选的二级缓存（Redis）接口
type RemoteCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type cachedPrice struct {
	price     decimal.Decimal
	expiresAt time.Time
}

type remotePrice struct {
	Price decimal.Decimal `json:"price"`
}

// PriceCache 带 TTL 的价格缓存。
// 查询链：内存缓存 → Redis 二级缓存 → 行情数据源 → 静态参考价格表 → 兜底价格。
// GetPrice 永不失败，以精度换可用性。
// 并发未命中同一标的时允许重复刷新，后写覆盖先写，无需去重。
type PriceCache struct {
	source  domain.QuoteSource
	remote  RemoteCache
	ttl     time.Duration
	metrics *metrics.Metrics

	mu     sync.RWMutex
	prices map[string]cachedPrice

	// now 可注入以便测试 TTL 行为
	now func() time.Time
}

// NewPriceCache 构造价格缓存；remote 与 m 可为 nil，ttl 非正时取默认值
func NewPriceCache(source domain.QuoteSource, remote RemoteCache, ttl time.Duration, m *metrics.Metrics) *PriceCache {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	return &PriceCache{
		source:  source,
		remote:  remote,
		ttl:     ttl,
		metrics: m,
		prices:  make(map[string]cachedPrice),
		now:     time.Now,
	}
}

// GetPrice 返回标的当前价格，永不失败
func (pc *PriceCache) GetPrice(ctx context.Context, symbol string) decimal.Decimal {
	symbol = strings.ToUpper(symbol)

	pc.mu.RLock()
	entry, ok := pc.prices[symbol]
	pc.mu.RUnlock()
	if ok && pc.now().Before(entry.expiresAt) {
		if pc.metrics != nil {
			pc.metrics.PriceCacheHitsTotal.Inc()
		}
		return entry.price
	}

	if price, ok := pc.remoteLookup(ctx, symbol); ok {
		pc.store(symbol, price)
		return price
	}

	if pc.metrics != nil {
		pc.metrics.QuoteFetchTotal.Inc()
	}
	price, err := pc.source.FetchQuote(ctx, symbol)
	if err == nil {
		pc.store(symbol, price)
		pc.remoteStore(ctx, symbol, price)
		return price
	}

	if pc.metrics != nil {
		pc.metrics.QuoteFetchFailuresTotal.Inc()
	}
	logger.Warn(ctx, "live quote fetch failed, falling back to reference price",
		"symbol", symbol, "error", err)

	if price, ok := domain.ReferencePrice(symbol); ok {
		return price
	}
	return domain.DefaultPrice
}

func (pc *PriceCache) store(symbol string, price decimal.Decimal) {
	pc.mu.Lock()
	pc.prices[symbol] = cachedPrice{price: price, expiresAt: pc.now().Add(pc.ttl)}
	pc.mu.Unlock()
}

func (pc *PriceCache) remoteLookup(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	if pc.remote == nil {
		return decimal.Zero, false
	}
	var entry remotePrice
	found, err := pc.remote.GetJSON(ctx, remoteKey(symbol), &entry)
	if err != nil {
		logger.Warn(ctx, "remote price cache lookup failed", "symbol", symbol, "error", err)
		return decimal.Zero, false
	}
	if !found {
		return decimal.Zero, false
	}
	return entry.Price, true
}

func (pc *PriceCache) remoteStore(ctx context.Context, symbol string, price decimal.Decimal) {
	if pc.remote == nil {
		return
	}
	if err := pc.remote.SetJSON(ctx, remoteKey(symbol), remotePrice{Price: price}, pc.ttl); err != nil {
		logger.Warn(ctx, "remote price cache store failed", "symbol", symbol, "error", err)
	}
}

func remoteKey(symbol string) string {
	return "marketdata:price:" + symbol
}
