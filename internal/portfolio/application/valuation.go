// Package application 投资组合应用服务：估值计算与组合查询
package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
	"github.com/wyfcoding/stocksimulator/pkg/metrics"
)

// PriceProvider 价格查询接口。实现方保证永不失败，总是返回可用价格。
type PriceProvider interface {
	GetPrice(ctx context.Context, symbol string) decimal.Decimal
}

// ValuationEngine 按成交流水计算组合的盯市价值。
// 计算本身无副作用；快照持久化由调用方负责。
type ValuationEngine struct {
	transactions domain.TransactionRepository
	prices       PriceProvider
	metrics      *metrics.Metrics
}

// NewValuationEngine 构造估值引擎；metrics 可为 nil
func NewValuationEngine(transactions domain.TransactionRepository, prices PriceProvider, m *metrics.Metrics) *ValuationEngine {
	return &ValuationEngine{
		transactions: transactions,
		prices:       prices,
		metrics:      m,
	}
}

// ValuePortfolio 计算组合当前总市值。
// 将流水折算为各标的净持仓（买入为正、卖出为负），
// 仅对净持仓为正的标的按当前价格计值；空组合或已平仓组合返回零。
func (e *ValuationEngine) ValuePortfolio(ctx context.Context, portfolioID uint64) (decimal.Decimal, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ValuationDuration.Observe(time.Since(start).Seconds())
		}
	}()

	txns, err := e.transactions.FindByPortfolioID(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, err
	}

	// 累加顺序无关，无需按时间排序
	holdings := make(map[string]int64)
	for _, txn := range txns {
		if txn.Side == "BUY" {
			holdings[txn.Symbol] += txn.Quantity
		} else {
			holdings[txn.Symbol] -= txn.Quantity
		}
	}

	total := decimal.Zero
	for symbol, qty := range holdings {
		if qty <= 0 {
			continue
		}
		price := e.prices.GetPrice(ctx, symbol)
		total = total.Add(price.Mul(decimal.NewFromInt(qty)))
	}
	return total, nil
}
