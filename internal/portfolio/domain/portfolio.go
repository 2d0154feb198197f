// Package domain 投资组合领域模型：组合、成交流水、估值快照与仓储接口
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Portfolio 投资组合聚合根
type Portfolio struct {
	gorm.Model
	// UserID 所属用户
	UserID uint64 `gorm:"column:user_id;index;not null" json:"user_id"`
	// Name 组合名称
	Name string `gorm:"column:name;type:varchar(128);not null" json:"name"`
}

// Stock 股票基础信息
type Stock struct {
	// Symbol 标的代码，主键
	Symbol string `gorm:"column:symbol;type:varchar(20);primaryKey" json:"symbol"`
	// Name 标的名称
	Name string `gorm:"column:name;type:varchar(128);not null" json:"name"`
}

// Transaction 成交流水，写入后不可变
type Transaction struct {
	gorm.Model
	// PortfolioID 所属组合
	PortfolioID uint64 `gorm:"column:portfolio_id;index;not null" json:"portfolio_id"`
	// Symbol 标的代码
	Symbol string `gorm:"column:symbol;type:varchar(20);index;not null" json:"symbol"`
	// Side BUY 或 SELL
	Side string `gorm:"column:side;type:varchar(4);not null" json:"side"`
	// Quantity 成交数量
	Quantity int64 `gorm:"column:quantity;not null" json:"quantity"`
	// Price 成交价格
	Price decimal.Decimal `gorm:"column:price;type:decimal(20,4);not null" json:"price"`
}

// ValuationSnapshot 组合估值快照，追加写入，创建后不再变更
type ValuationSnapshot struct {
	gorm.Model
	// PortfolioID 所属组合
	PortfolioID uint64 `gorm:"column:portfolio_id;index;not null" json:"portfolio_id"`
	// Timestamp 估值时间
	Timestamp time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
	// TotalValue 组合总市值
	TotalValue decimal.Decimal `gorm:"column:total_value;type:decimal(20,4);not null" json:"total_value"`
}

func (Portfolio) TableName() string         { return "portfolios" }
func (Stock) TableName() string             { return "stocks" }
func (Transaction) TableName() string       { return "transactions" }
func (ValuationSnapshot) TableName() string { return "valuation_snapshots" }

// PortfolioRepository 组合仓储接口
type PortfolioRepository interface {
	Save(ctx context.Context, portfolio *Portfolio) error
	// FindByID 未找到时返回 ErrPortfolioNotFound
	FindByID(ctx context.Context, id uint64) (*Portfolio, error)
	FindByUserID(ctx context.Context, userID uint64) ([]*Portfolio, error)
}

// StockRepository 股票仓储接口
type StockRepository interface {
	// FindOrCreate 查找股票记录，不存在时以代码为名称创建
	FindOrCreate(ctx context.Context, symbol string) (*Stock, error)
}

// TransactionRepository 成交流水仓储接口
type TransactionRepository interface {
	Save(ctx context.Context, txn *Transaction) error
	FindByPortfolioID(ctx context.Context, portfolioID uint64) ([]*Transaction, error)
}

// SnapshotRepository 估值快照仓储接口
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *ValuationSnapshot) error
	FindByPortfolioID(ctx context.Context, portfolioID uint64) ([]*ValuationSnapshot, error)
}

// 错误定义
var (
	ErrPortfolioNotFound = errors.New("portfolio not found")
)
