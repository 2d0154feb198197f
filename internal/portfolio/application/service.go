package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
)

// PortfolioService 组合查询与维护门面
type PortfolioService struct {
	portfolios domain.PortfolioRepository
	snapshots  domain.SnapshotRepository
	valuation  *ValuationEngine
}

// NewPortfolioService 构造函数
func NewPortfolioService(
	portfolios domain.PortfolioRepository,
	snapshots domain.SnapshotRepository,
	valuation *ValuationEngine,
) *PortfolioService {
	return &PortfolioService{
		portfolios: portfolios,
		snapshots:  snapshots,
		valuation:  valuation,
	}
}

// CreateOrFetch 为用户创建组合；该用户已有组合时返回第一个既有组合
func (s *PortfolioService) CreateOrFetch(ctx context.Context, userID uint64, name string) (*domain.Portfolio, error) {
	existing, err := s.portfolios.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	if name == "" {
		name = "Default Portfolio"
	}
	portfolio := &domain.Portfolio{UserID: userID, Name: name}
	if err := s.portfolios.Save(ctx, portfolio); err != nil {
		return nil, err
	}
	return portfolio, nil
}

// Get 按 ID 查询组合
func (s *PortfolioService) Get(ctx context.Context, id uint64) (*domain.Portfolio, error) {
	return s.portfolios.FindByID(ctx, id)
}

// Transactions 查询组合的成交流水
func (s *PortfolioService) Transactions(ctx context.Context, portfolioID uint64) ([]*domain.Transaction, error) {
	if _, err := s.portfolios.FindByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.valuation.transactions.FindByPortfolioID(ctx, portfolioID)
}

// CurrentValue 计算组合当前市值
func (s *PortfolioService) CurrentValue(ctx context.Context, portfolioID uint64) (decimal.Decimal, error) {
	if _, err := s.portfolios.FindByID(ctx, portfolioID); err != nil {
		return decimal.Zero, err
	}
	return s.valuation.ValuePortfolio(ctx, portfolioID)
}

// ValuePoint 估值曲线上的一个点
type ValuePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// ValueHistory 返回组合估值曲线。
// 以当前市值为终点生成六个等间隔（60 秒）的数据点：
// 市值为零时输出一条零值平线，否则从零线性爬升到当前市值。
func (s *PortfolioService) ValueHistory(ctx context.Context, portfolioID uint64) ([]*ValuePoint, error) {
	current, err := s.CurrentValue(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	points := make([]*ValuePoint, 0, 6)

	if current.IsZero() {
		for i := 5; i >= 0; i-- {
			points = append(points, &ValuePoint{
				Timestamp: now.Add(-time.Duration(i) * time.Minute),
				Value:     decimal.Zero,
			})
		}
		return points, nil
	}

	increment := current.Div(decimal.NewFromInt(6)).Round(2)
	for i := 5; i >= 0; i-- {
		points = append(points, &ValuePoint{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			Value:     increment.Mul(decimal.NewFromInt(int64(6 - i))),
		})
	}
	return points, nil
}
