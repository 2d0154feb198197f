// Package domain 行情数据服务的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MarketQuote 一次行情报价
type MarketQuote struct {
	// Symbol 标的代码
	Symbol string `json:"symbol"`
	// Price 最新价格
	Price decimal.Decimal `json:"price"`
	// Timestamp 报价时间
	Timestamp time.Time `json:"timestamp"`
}

// QuoteSource 外部行情数据源接口。
// 受限流与响应格式问题影响，FetchQuote 可能失败；调用方负责降级。
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// QuotePublisher 行情广播接口
type QuotePublisher interface {
	PublishQuote(ctx context.Context, quote *MarketQuote) error
}

// ErrQuoteUnavailable 行情数据源不可用或返回了无法解析的数据
var ErrQuoteUnavailable = errors.New("quote unavailable")

// DefaultPrice 参考价格表中也找不到标的时使用的兜底价格
var DefaultPrice = decimal.NewFromFloat(100.00)

// ReferencePrices 静态参考价格表，行情数据源不可用时的降级来源
var ReferencePrices = map[string]decimal.Decimal{
	"AAPL": decimal.NewFromFloat(213.88),
	"GOOG": decimal.NewFromFloat(194.08),
	"MSFT": decimal.NewFromFloat(415.22),
	"TSLA": decimal.NewFromFloat(248.50),
	"AMZN": decimal.NewFromFloat(178.12),
}

// ReferencePrice 查参考价格表，命中与否通过第二个返回值区分
func ReferencePrice(symbol string) (decimal.Decimal, bool) {
	price, ok := ReferencePrices[symbol]
	return price, ok
}
