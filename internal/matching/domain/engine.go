package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 订单终态
const (
	StatusFilled  = "FILLED"
	StatusResting = "RESTING"
)

// Result 撮合结果
type Result struct {
	// Trades 本次提交产生的成交列表（按成交先后排列）
	Trades []*Trade `json:"trades"`
	// RemainingQuantity 未成交的剩余数量；大于零时订单已挂入本方订单簿
	RemainingQuantity int64 `json:"remaining_quantity"`
	// Status FILLED 或 RESTING
	Status string `json:"status"`
}

// BookSnapshot 订单簿快照
type BookSnapshot struct {
	Symbol    string       `json:"symbol"`
	Bids      []*BookLevel `json:"bids"`
	Asks      []*BookLevel `json:"asks"`
	Timestamp int64        `json:"timestamp"`
}

// OrderMetrics 撮合指标上报接口，实现方不得阻塞
type OrderMetrics interface {
	RecordOrderProcessed()
	RecordTrade()
}

// Engine 多标的撮合引擎。
// 每个标的由独立的单写 Worker 串行处理（订单簿无锁独占访问），
// 跨标的订单完全并行。成交事件在撮合临界区之外交给 TradeSink，
// 因此下游 I/O（持久化、估值、行情拉取）不会阻塞同标的的后续撮合。
type Engine struct {
	sink    TradeSink
	metrics OrderMetrics

	mu    sync.Mutex
	books map[string]*instrumentBook

	stop     chan struct{}
	stopOnce sync.Once
}

// NewEngine 创建撮合引擎；sink 与 metrics 可为 nil
func NewEngine(sink TradeSink, metrics OrderMetrics) *Engine {
	return &Engine{
		sink:    sink,
		metrics: metrics,
		books:   make(map[string]*instrumentBook),
		stop:    make(chan struct{}),
	}
}

// Submit 提交订单进行撮合。
// 校验失败返回 ErrInvalidOrder 且不触碰订单簿。
// 撮合完成后同步将每笔成交交给 TradeSink；sink 错误合并返回，
// 但不回滚撮合结果（返回的 Result 始终反映订单簿的真实变更）。
func (e *Engine) Submit(ctx context.Context, order *Order) (*Result, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	inst, err := e.instrument(order.Symbol)
	if err != nil {
		return nil, err
	}

	task := &matchTask{order: order, result: make(chan *Result, 1)}
	select {
	case inst.tasks <- task:
	case <-e.stop:
		return nil, ErrEngineStopped
	}
	result := <-task.result

	var sinkErr error
	if e.sink != nil {
		for _, trade := range result.Trades {
			if err := e.sink.Record(ctx, trade); err != nil {
				sinkErr = errors.Join(sinkErr, err)
			}
			if e.metrics != nil {
				e.metrics.RecordTrade()
			}
		}
	}

	if e.metrics != nil {
		e.metrics.RecordOrderProcessed()
	}
	return result, sinkErr
}

// Snapshot 获取订单簿快照；从未有过订单的标的返回空快照
func (e *Engine) Snapshot(symbol string, depth int) *BookSnapshot {
	e.mu.Lock()
	inst := e.books[symbol]
	e.mu.Unlock()

	if inst == nil {
		return &BookSnapshot{Symbol: symbol, Timestamp: time.Now().Unix()}
	}

	req := &snapshotTask{depth: depth, result: make(chan *BookSnapshot, 1)}
	select {
	case inst.snapshots <- req:
	case <-e.stop:
		return &BookSnapshot{Symbol: symbol, Timestamp: time.Now().Unix()}
	}
	return <-req.result
}

// Close 停止所有标的 Worker
func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// instrument 获取或创建标的订单簿及其 Worker
func (e *Engine) instrument(symbol string) (*instrumentBook, error) {
	select {
	case <-e.stop:
		return nil, ErrEngineStopped
	default:
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.books[symbol]
	if !ok {
		inst = newInstrumentBook(symbol)
		e.books[symbol] = inst
		go inst.run(e.stop)
	}
	return inst, nil
}

type matchTask struct {
	order  *Order
	result chan *Result
}

type snapshotTask struct {
	depth  int
	result chan *BookSnapshot
}

// instrumentBook 单个标的的买卖盘，仅由其 Worker 访问
type instrumentBook struct {
	symbol    string
	bids      *BookSide
	asks      *BookSide
	seq       uint64
	tasks     chan *matchTask
	snapshots chan *snapshotTask
}

func newInstrumentBook(symbol string) *instrumentBook {
	return &instrumentBook{
		symbol:    symbol,
		bids:      NewBookSide(SideBuy),
		asks:      NewBookSide(SideSell),
		tasks:     make(chan *matchTask, 1024),
		snapshots: make(chan *snapshotTask, 16),
	}
}

func (ib *instrumentBook) run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case task := <-ib.tasks:
			task.result <- ib.apply(task.order)
		case req := <-ib.snapshots:
			req.result <- ib.snapshot(req.depth)
		}
	}
}

// apply 核心撮合步骤：对手盘价格有序，首个不满足价格条件的订单即终止循环。
// 成交价始终取被动方限价（maker price）。
func (ib *instrumentBook) apply(order *Order) *Result {
	ib.seq++
	order.Sequence = ib.seq

	own, opposite := ib.bids, ib.asks
	if order.Side == SideSell {
		own, opposite = ib.asks, ib.bids
	}

	result := &Result{}
	for order.Quantity > 0 {
		best, ok := opposite.PeekBest()
		if !ok {
			break
		}
		if !crosses(order, best) {
			break
		}

		qty := min(order.Quantity, best.Quantity)
		result.Trades = append(result.Trades, &Trade{
			TradeID:     newTradeID(),
			PortfolioID: order.PortfolioID,
			Symbol:      ib.symbol,
			Side:        order.Side,
			Quantity:    qty,
			Price:       best.LimitPrice,
			Timestamp:   time.Now(),
		})

		order.Quantity -= qty
		best.Quantity -= qty
		if best.Quantity == 0 {
			opposite.PopBest()
		}
	}

	result.RemainingQuantity = order.Quantity
	if order.Quantity > 0 {
		own.Insert(order)
		result.Status = StatusResting
	} else {
		result.Status = StatusFilled
	}
	return result
}

func (ib *instrumentBook) snapshot(depth int) *BookSnapshot {
	if depth <= 0 {
		depth = 20
	}
	return &BookSnapshot{
		Symbol:    ib.symbol,
		Bids:      ib.bids.Levels(depth),
		Asks:      ib.asks.Levels(depth),
		Timestamp: time.Now().Unix(),
	}
}

// crosses 价格条件：买单要求对手价不高于限价，卖单要求对手价不低于限价
func crosses(incoming, resting *Order) bool {
	if incoming.Side == SideBuy {
		return resting.LimitPrice.LessThanOrEqual(incoming.LimitPrice)
	}
	return resting.LimitPrice.GreaterThanOrEqual(incoming.LimitPrice)
}

func newTradeID() string {
	return "T-" + uuid.New().String()
}
