package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/stocksimulator/internal/matching/domain"
	portfolioapp "github.com/wyfcoding/stocksimulator/internal/portfolio/application"
	portfoliodomain "github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
)

type fakePortfolioRepo struct {
	portfolios map[uint64]*portfoliodomain.Portfolio
}

func (r *fakePortfolioRepo) Save(_ context.Context, p *portfoliodomain.Portfolio) error {
	r.portfolios[uint64(p.ID)] = p
	return nil
}

func (r *fakePortfolioRepo) FindByID(_ context.Context, id uint64) (*portfoliodomain.Portfolio, error) {
	p, ok := r.portfolios[id]
	if !ok {
		return nil, portfoliodomain.ErrPortfolioNotFound
	}
	return p, nil
}

func (r *fakePortfolioRepo) FindByUserID(_ context.Context, userID uint64) ([]*portfoliodomain.Portfolio, error) {
	var out []*portfoliodomain.Portfolio
	for _, p := range r.portfolios {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeStockRepo struct{}

func (r *fakeStockRepo) FindOrCreate(_ context.Context, symbol string) (*portfoliodomain.Stock, error) {
	return &portfoliodomain.Stock{Symbol: symbol, Name: symbol}, nil
}

type fakeTransactionRepo struct {
	txns    []*portfoliodomain.Transaction
	saveErr error
}

func (r *fakeTransactionRepo) Save(_ context.Context, txn *portfoliodomain.Transaction) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.txns = append(r.txns, txn)
	return nil
}

func (r *fakeTransactionRepo) FindByPortfolioID(_ context.Context, portfolioID uint64) ([]*portfoliodomain.Transaction, error) {
	var out []*portfoliodomain.Transaction
	for _, txn := range r.txns {
		if txn.PortfolioID == portfolioID {
			out = append(out, txn)
		}
	}
	return out, nil
}

type fakeSnapshotRepo struct {
	snapshots []*portfoliodomain.ValuationSnapshot
	saveErr   error
}

func (r *fakeSnapshotRepo) Save(_ context.Context, s *portfoliodomain.ValuationSnapshot) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *fakeSnapshotRepo) FindByPortfolioID(_ context.Context, portfolioID uint64) ([]*portfoliodomain.ValuationSnapshot, error) {
	return r.snapshots, nil
}

type fixedPriceProvider struct{}

func (fixedPriceProvider) GetPrice(_ context.Context, _ string) decimal.Decimal {
	return decimal.NewFromInt(100)
}

type nopLogger struct{}

func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}

type fixture struct {
	portfolios *fakePortfolioRepo
	txns       *fakeTransactionRepo
	snapshots  *fakeSnapshotRepo
	recorder   *TradeRecorder
}

func newFixture() *fixture {
	portfolios := &fakePortfolioRepo{portfolios: map[uint64]*portfoliodomain.Portfolio{
		1: {Model: gorm.Model{ID: 1}, UserID: 1, Name: "Default Portfolio"},
	}}
	txns := &fakeTransactionRepo{}
	snapshots := &fakeSnapshotRepo{}
	valuation := portfolioapp.NewValuationEngine(txns, fixedPriceProvider{}, nil)
	recorder := NewTradeRecorder(
		portfolios, &fakeStockRepo{}, txns, snapshots,
		valuation, nil, nil, nopLogger{})
	return &fixture{portfolios: portfolios, txns: txns, snapshots: snapshots, recorder: recorder}
}

func trade(portfolioID uint64) *domain.Trade {
	return &domain.Trade{
		TradeID:     "T-test",
		PortfolioID: portfolioID,
		Symbol:      "AAPL",
		Side:        domain.SideBuy,
		Quantity:    10,
		Price:       decimal.NewFromInt(150),
	}
}

func TestTradeRecorderPersistsTransactionAndSnapshot(t *testing.T) {
	f := newFixture()

	if err := f.recorder.Record(context.Background(), trade(1)); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if len(f.txns.txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(f.txns.txns))
	}
	txn := f.txns.txns[0]
	if txn.Side != "BUY" || txn.Quantity != 10 || txn.Price.String() != "150" {
		t.Fatalf("unexpected transaction: %+v", txn)
	}

	if len(f.snapshots.snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(f.snapshots.snapshots))
	}
	// 10 股，单价 100
	if f.snapshots.snapshots[0].TotalValue.String() != "1000" {
		t.Fatalf("expected snapshot value 1000, got %s", f.snapshots.snapshots[0].TotalValue)
	}
}

func TestTradeRecorderUnknownPortfolio(t *testing.T) {
	f := newFixture()

	err := f.recorder.Record(context.Background(), trade(99))
	if !errors.Is(err, portfoliodomain.ErrPortfolioNotFound) {
		t.Fatalf("expected ErrPortfolioNotFound, got %v", err)
	}
	if len(f.txns.txns) != 0 {
		t.Fatal("no transaction should be written for an unknown portfolio")
	}
}

func TestTradeRecorderTransactionFailureReported(t *testing.T) {
	f := newFixture()
	dbErr := errors.New("insert failed")
	f.txns.saveErr = dbErr

	err := f.recorder.Record(context.Background(), trade(1))
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected persistence error surfaced, got %v", err)
	}
	if len(f.snapshots.snapshots) != 0 {
		t.Fatal("snapshot must not be taken when the transaction write fails")
	}
}

func TestTradeRecorderSnapshotFailureSwallowed(t *testing.T) {
	f := newFixture()
	f.snapshots.saveErr = errors.New("snapshot table locked")

	if err := f.recorder.Record(context.Background(), trade(1)); err != nil {
		t.Fatalf("snapshot failure must not fail the record: %v", err)
	}
	if len(f.txns.txns) != 1 {
		t.Fatal("transaction should still be persisted")
	}
}

func TestMatchingServiceSubmitAndBook(t *testing.T) {
	f := newFixture()
	svc := NewMatchingService(f.recorder, nil)
	defer svc.Close()

	rest, err := svc.SubmitOrder(context.Background(), &SubmitOrderCommand{
		PortfolioID: 1, Symbol: "AAPL", Side: "SELL", Quantity: 150, Price: "150",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if rest.Status != domain.StatusResting {
		t.Fatalf("expected resting sell, got %s", rest.Status)
	}

	result, err := svc.SubmitOrder(context.Background(), &SubmitOrderCommand{
		PortfolioID: 1, Symbol: "AAPL", Side: "buy", Quantity: 100, Price: "150",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Status != domain.StatusFilled || len(result.Trades) != 1 {
		t.Fatalf("expected one full fill, got %+v", result)
	}
	if len(f.txns.txns) != 1 {
		t.Fatalf("trade should be persisted, got %d transactions", len(f.txns.txns))
	}

	book := svc.OrderBook("AAPL", 10)
	if len(book.Asks) != 1 || book.Asks[0].Quantity != 50 {
		t.Fatalf("expected 50 resting on the ask side, got %+v", book.Asks)
	}
}

func TestMatchingServiceInvalidInput(t *testing.T) {
	f := newFixture()
	svc := NewMatchingService(f.recorder, nil)
	defer svc.Close()

	tests := []struct {
		name string
		cmd  *SubmitOrderCommand
	}{
		{"bad side", &SubmitOrderCommand{PortfolioID: 1, Symbol: "AAPL", Side: "HOLD", Quantity: 10, Price: "150"}},
		{"bad price", &SubmitOrderCommand{PortfolioID: 1, Symbol: "AAPL", Side: "BUY", Quantity: 10, Price: "abc"}},
		{"zero quantity", &SubmitOrderCommand{PortfolioID: 1, Symbol: "AAPL", Side: "BUY", Quantity: 0, Price: "150"}},
		{"negative price", &SubmitOrderCommand{PortfolioID: 1, Symbol: "AAPL", Side: "BUY", Quantity: 10, Price: "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitOrder(context.Background(), tt.cmd)
			if !errors.Is(err, domain.ErrInvalidOrder) {
				t.Fatalf("expected ErrInvalidOrder, got %v", err)
			}
		})
	}
}

func TestMatchingServiceUnknownPortfolioStillMatches(t *testing.T) {
	f := newFixture()
	svc := NewMatchingService(f.recorder, nil)
	defer svc.Close()

	if _, err := svc.SubmitOrder(context.Background(), &SubmitOrderCommand{
		PortfolioID: 1, Symbol: "AAPL", Side: "SELL", Quantity: 100, Price: "150",
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	result, err := svc.SubmitOrder(context.Background(), &SubmitOrderCommand{
		PortfolioID: 99, Symbol: "AAPL", Side: "BUY", Quantity: 100, Price: "150",
	})
	if !errors.Is(err, portfoliodomain.ErrPortfolioNotFound) {
		t.Fatalf("expected ErrPortfolioNotFound surfaced, got %v", err)
	}
	if result == nil || len(result.Trades) != 1 {
		t.Fatalf("match must complete despite the sink failure: %+v", result)
	}

	book := svc.OrderBook("AAPL", 10)
	if len(book.Asks) != 0 {
		t.Fatalf("book must reflect the executed trade, asks: %+v", book.Asks)
	}
}
