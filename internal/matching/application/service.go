// Package application 撮合服务应用层：订单提交门面与成交落地
package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/stocksimulator/internal/matching/domain"
	portfolioapp "github.com/wyfcoding/stocksimulator/internal/portfolio/application"
	portfoliodomain "github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
	"github.com/wyfcoding/stocksimulator/pkg/logger"
	"github.com/wyfcoding/stocksimulator/pkg/metrics"
)

// MatchingService 撮合引擎操作门面
type MatchingService struct {
	engine *domain.Engine
}

// NewMatchingService 构造函数，内部组装引擎与成交落地链路
func NewMatchingService(recorder *TradeRecorder, m *metrics.Metrics) *MatchingService {
	var orderMetrics domain.OrderMetrics
	if m != nil {
		orderMetrics = m
	}
	return &MatchingService{
		engine: domain.NewEngine(recorder, orderMetrics),
	}
}

// SubmitOrderCommand 提交订单命令 DTO
type SubmitOrderCommand struct {
	PortfolioID uint64 `json:"portfolio_id" binding:"required"`
	Symbol      string `json:"symbol" binding:"required"`
	Side        string `json:"side" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required"`
	Price       string `json:"price" binding:"required"`
}

// SubmitOrder 解析命令并提交撮合。
// 返回的 Result 反映订单簿真实变更；err 可能同时携带落地失败信息。
func (s *MatchingService) SubmitOrder(ctx context.Context, cmd *SubmitOrderCommand) (*domain.Result, error) {
	side, err := domain.ParseSide(cmd.Side)
	if err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(cmd.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q", domain.ErrInvalidOrder, cmd.Price)
	}

	order := &domain.Order{
		PortfolioID: cmd.PortfolioID,
		Symbol:      cmd.Symbol,
		Side:        side,
		Quantity:    cmd.Quantity,
		LimitPrice:  price,
	}
	return s.engine.Submit(ctx, order)
}

// OrderBook 获取订单簿快照
func (s *MatchingService) OrderBook(symbol string, depth int) *domain.BookSnapshot {
	return s.engine.Snapshot(symbol, depth)
}

// Close 停止撮合引擎
func (s *MatchingService) Close() {
	s.engine.Close()
}

// 以下为成交落地链路

// TradeEventPublisher 成交事件对外发布接口
type TradeEventPublisher interface {
	PublishTrade(ctx context.Context, trade *domain.Trade) error
}

// TradeRecorder 实现 domain.TradeSink。
// 落地顺序：归属组合校验 → 股票记录补齐 → 成交流水持久化 → 事件发布 → 估值快照。
// 成交流水写入失败必须上报；快照写入失败只记日志，不回滚已落地的成交。
type TradeRecorder struct {
	portfolios   portfoliodomain.PortfolioRepository
	stocks       portfoliodomain.StockRepository
	transactions portfoliodomain.TransactionRepository
	snapshots    portfoliodomain.SnapshotRepository
	valuation    *portfolioapp.ValuationEngine
	publisher    TradeEventPublisher
	metrics      *metrics.Metrics
	logger       TradeLogger
}

// TradeLogger 落地过程中的日志接口（可注入以便测试）
type TradeLogger interface {
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

// NewTradeRecorder 构造函数；publisher、metrics、log 可为 nil
func NewTradeRecorder(
	portfolios portfoliodomain.PortfolioRepository,
	stocks portfoliodomain.StockRepository,
	transactions portfoliodomain.TransactionRepository,
	snapshots portfoliodomain.SnapshotRepository,
	valuation *portfolioapp.ValuationEngine,
	publisher TradeEventPublisher,
	m *metrics.Metrics,
	log TradeLogger,
) *TradeRecorder {
	if log == nil {
		log = defaultTradeLogger{}
	}
	return &TradeRecorder{
		portfolios:   portfolios,
		stocks:       stocks,
		transactions: transactions,
		snapshots:    snapshots,
		valuation:    valuation,
		publisher:    publisher,
		metrics:      m,
		logger:       log,
	}
}

// Record 落地一笔成交
func (r *TradeRecorder) Record(ctx context.Context, trade *domain.Trade) error {
	portfolio, err := r.portfolios.FindByID(ctx, trade.PortfolioID)
	if err != nil {
		return fmt.Errorf("record trade %s: %w", trade.TradeID, err)
	}

	if _, err := r.stocks.FindOrCreate(ctx, trade.Symbol); err != nil {
		return fmt.Errorf("record trade %s: %w", trade.TradeID, err)
	}

	txn := &portfoliodomain.Transaction{
		PortfolioID: uint64(portfolio.ID),
		Symbol:      trade.Symbol,
		Side:        trade.Side.String(),
		Quantity:    trade.Quantity,
		Price:       trade.Price,
	}
	if err := r.transactions.Save(ctx, txn); err != nil {
		return fmt.Errorf("record trade %s: %w", trade.TradeID, err)
	}

	// 事件发布失败不影响撮合结果
	if r.publisher != nil {
		if err := r.publisher.PublishTrade(ctx, trade); err != nil {
			r.logger.Warn(ctx, "failed to publish trade event",
				"trade_id", trade.TradeID, "error", err)
		}
	}

	r.appendSnapshot(ctx, trade)
	return nil
}

type defaultTradeLogger struct{}

func (defaultTradeLogger) Warn(ctx context.Context, msg string, args ...any) {
	logger.Warn(ctx, msg, args...)
}

func (defaultTradeLogger) Error(ctx context.Context, msg string, args ...any) {
	logger.Error(ctx, msg, args...)
}

// appendSnapshot 计算并追加估值快照；失败只记日志
func (r *TradeRecorder) appendSnapshot(ctx context.Context, trade *domain.Trade) {
	value, err := r.valuation.ValuePortfolio(ctx, trade.PortfolioID)
	if err != nil {
		r.logger.Error(ctx, "portfolio valuation failed after trade",
			"trade_id", trade.TradeID, "portfolio_id", trade.PortfolioID, "error", err)
		return
	}

	snapshot := &portfoliodomain.ValuationSnapshot{
		PortfolioID: trade.PortfolioID,
		Timestamp:   trade.Timestamp,
		TotalValue:  value,
	}
	if err := r.snapshots.Save(ctx, snapshot); err != nil {
		if r.metrics != nil {
			r.metrics.SnapshotFailuresTotal.Inc()
		}
		r.logger.Error(ctx, "valuation snapshot persistence failed",
			"trade_id", trade.TradeID, "portfolio_id", trade.PortfolioID, "error", err)
	}
}
