// Package domain 撮合引擎的领域模型
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side 买卖方向
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

// String returns the wire representation of the side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite 返回对手方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// MarshalJSON 序列化为 "BUY" / "SELL"
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON 从 "BUY" / "SELL" 反序列化
func (s *Side) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSide(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSide 解析买卖方向字符串
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(s) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, s)
	}
}

// Order 表示一笔进入撮合引擎的限价订单。
// LimitPrice 不可变；Quantity 为剩余数量，仅由撮合步骤递减。
type Order struct {
	PortfolioID uint64
	Symbol      string
	Side        Side
	Quantity    int64
	LimitPrice  decimal.Decimal
	// Sequence 进场序号，由引擎在准入时分配，价格相同时按序号先后成交
	Sequence uint64
}

// Validate 准入校验：数量与价格必须为正
func (o *Order) Validate() error {
	if o == nil {
		return ErrInvalidOrder
	}
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return fmt.Errorf("%w: side must be BUY or SELL", ErrInvalidOrder)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if !o.LimitPrice.IsPositive() {
		return fmt.Errorf("%w: limit price must be positive", ErrInvalidOrder)
	}
	return nil
}

// Trade 一次成交事件，撮合产生后不可变
type Trade struct {
	TradeID     string `json:"trade_id"`
	PortfolioID uint64 `json:"portfolio_id"`
	Symbol      string `json:"symbol"`
	// Side 进攻方（incoming order）的方向
	Side Side `json:"side"`
	// Quantity 成交数量
	Quantity int64 `json:"quantity"`
	// Price 成交价格，始终为被动方（resting order）的限价
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// TradeSink 消费成交事件的协作方接口。
// Record 失败不回滚撮合结果：订单簿状态以引擎为准。
type TradeSink interface {
	Record(ctx context.Context, trade *Trade) error
}

// 错误定义
var (
	ErrInvalidOrder  = errors.New("invalid order")
	ErrEngineStopped = errors.New("matching engine stopped")
)
