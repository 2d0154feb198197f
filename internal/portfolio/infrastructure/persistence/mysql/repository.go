// Package mysql 投资组合服务的 GORM 仓储实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
)

type portfolioRepository struct {
	db *gorm.DB
}

// NewPortfolioRepository 创建组合仓储
func NewPortfolioRepository(db *gorm.DB) domain.PortfolioRepository {
	return &portfolioRepository{db: db}
}

func (r *portfolioRepository) Save(ctx context.Context, portfolio *domain.Portfolio) error {
	return r.db.WithContext(ctx).Save(portfolio).Error
}

func (r *portfolioRepository) FindByID(ctx context.Context, id uint64) (*domain.Portfolio, error) {
	var portfolio domain.Portfolio
	err := r.db.WithContext(ctx).First(&portfolio, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, err
	}
	return &portfolio, nil
}

func (r *portfolioRepository) FindByUserID(ctx context.Context, userID uint64) ([]*domain.Portfolio, error) {
	var portfolios []*domain.Portfolio
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&portfolios).Error
	return portfolios, err
}

type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建股票仓储
func NewStockRepository(db *gorm.DB) domain.StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) FindOrCreate(ctx context.Context, symbol string) (*domain.Stock, error) {
	var stock domain.Stock
	err := r.db.WithContext(ctx).
		Where(domain.Stock{Symbol: symbol}).
		Attrs(domain.Stock{Name: symbol}).
		FirstOrCreate(&stock).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建成交流水仓储
func NewTransactionRepository(db *gorm.DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Save(ctx context.Context, txn *domain.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) FindByPortfolioID(ctx context.Context, portfolioID uint64) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	err := r.db.WithContext(ctx).Where("portfolio_id = ?", portfolioID).Find(&txns).Error
	return txns, err
}

type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository 创建估值快照仓储
func NewSnapshotRepository(db *gorm.DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Save(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *snapshotRepository) FindByPortfolioID(ctx context.Context, portfolioID uint64) ([]*domain.ValuationSnapshot, error) {
	var snapshots []*domain.ValuationSnapshot
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("timestamp asc").
		Find(&snapshots).Error
	return snapshots, err
}
