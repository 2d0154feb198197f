package domain

import (
	"container/heap"
	"sort"

	"github.com/shopspring/decimal"
)

// BookSide 单侧订单簿：按 (价格, 进场序号) 的全序维护订单。
// 买盘价格降序、卖盘价格升序，同价按序号升序（时间优先）。
// 堆中持有 *Order，成交递减数量时订单位置不变，保证同价位严格 FIFO。
type BookSide struct {
	h *sideHeap
}

// NewBookSide 创建指定方向的订单簿单侧
func NewBookSide(side Side) *BookSide {
	return &BookSide{h: &sideHeap{side: side}}
}

// Insert 插入订单，O(log n)
func (b *BookSide) Insert(order *Order) {
	heap.Push(b.h, order)
}

// PeekBest 返回优先级最高的订单（不移除）
func (b *BookSide) PeekBest() (*Order, bool) {
	if b.h.Len() == 0 {
		return nil, false
	}
	return b.h.orders[0], true
}

// PopBest 移除并返回优先级最高的订单
func (b *BookSide) PopBest() (*Order, bool) {
	if b.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(b.h).(*Order), true
}

// Len 返回该侧订单数
func (b *BookSide) Len() int {
	return b.h.Len()
}

// Levels 按优先级聚合前 depth 个价格档位（用于快照）
func (b *BookSide) Levels(depth int) []*BookLevel {
	orders := make([]*Order, len(b.h.orders))
	copy(orders, b.h.orders)
	sort.Slice(orders, func(i, j int) bool {
		return b.h.less(orders[i], orders[j])
	})

	levels := make([]*BookLevel, 0, depth)
	for _, o := range orders {
		n := len(levels)
		if n > 0 && levels[n-1].Price.Equal(o.LimitPrice) {
			levels[n-1].Quantity += o.Quantity
			continue
		}
		if n == depth {
			break
		}
		levels = append(levels, &BookLevel{Price: o.LimitPrice, Quantity: o.Quantity})
	}
	return levels
}

// BookLevel 订单簿价格档位
type BookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// sideHeap 实现 container/heap，全序由方向决定
type sideHeap struct {
	side   Side
	orders []*Order
}

func (h *sideHeap) Len() int { return len(h.orders) }

func (h *sideHeap) Less(i, j int) bool {
	return h.less(h.orders[i], h.orders[j])
}

func (h *sideHeap) less(a, b *Order) bool {
	cmp := a.LimitPrice.Cmp(b.LimitPrice)
	if cmp != 0 {
		if h.side == SideBuy {
			return cmp > 0
		}
		return cmp < 0
	}
	return a.Sequence < b.Sequence
}

func (h *sideHeap) Swap(i, j int) {
	h.orders[i], h.orders[j] = h.orders[j], h.orders[i]
}

func (h *sideHeap) Push(x any) {
	h.orders = append(h.orders, x.(*Order))
}

func (h *sideHeap) Pop() any {
	old := h.orders
	n := len(old)
	o := old[n-1]
	old[n-1] = nil
	h.orders = old[:n-1]
	return o
}
