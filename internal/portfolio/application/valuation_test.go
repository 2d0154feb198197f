package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
)

type stubTransactionRepo struct {
	txns []*domain.Transaction
	err  error
}

func (r *stubTransactionRepo) Save(_ context.Context, txn *domain.Transaction) error {
	r.txns = append(r.txns, txn)
	return nil
}

func (r *stubTransactionRepo) FindByPortfolioID(_ context.Context, _ uint64) ([]*domain.Transaction, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.txns, nil
}

type tablePriceProvider map[string]string

func (p tablePriceProvider) GetPrice(_ context.Context, symbol string) decimal.Decimal {
	if v, ok := p[symbol]; ok {
		return decimal.RequireFromString(v)
	}
	return decimal.NewFromInt(100)
}

func txn(symbol, side string, qty int64, price string) *domain.Transaction {
	return &domain.Transaction{
		PortfolioID: 1,
		Symbol:      symbol,
		Side:        side,
		Quantity:    qty,
		Price:       decimal.RequireFromString(price),
	}
}

func TestValuePortfolio(t *testing.T) {
	prices := tablePriceProvider{"AAPL": "213.88", "GOOG": "194.08"}

	tests := []struct {
		name string
		txns []*domain.Transaction
		want string
	}{
		{
			name: "empty portfolio",
			txns: nil,
			want: "0",
		},
		{
			name: "single position",
			txns: []*domain.Transaction{txn("AAPL", "BUY", 10, "200")},
			want: "2138.8", // 10 * 213.88
		},
		{
			name: "nets buys and sells",
			txns: []*domain.Transaction{
				txn("AAPL", "BUY", 10, "200"),
				txn("AAPL", "SELL", 4, "210"),
			},
			want: "1283.28", // 6 * 213.88
		},
		{
			name: "closed position worth nothing",
			txns: []*domain.Transaction{
				txn("AAPL", "BUY", 10, "200"),
				txn("AAPL", "SELL", 10, "210"),
			},
			want: "0",
		},
		{
			name: "oversold position ignored",
			txns: []*domain.Transaction{
				txn("AAPL", "BUY", 5, "200"),
				txn("AAPL", "SELL", 8, "210"),
				txn("GOOG", "BUY", 2, "190"),
			},
			want: "388.16", // 2 * 194.08
		},
		{
			name: "multiple symbols",
			txns: []*domain.Transaction{
				txn("AAPL", "BUY", 1, "200"),
				txn("GOOG", "BUY", 1, "190"),
			},
			want: "407.96", // 213.88 + 194.08
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewValuationEngine(&stubTransactionRepo{txns: tt.txns}, prices, nil)
			got, err := engine.ValuePortfolio(context.Background(), 1)
			if err != nil {
				t.Fatalf("valuation failed: %v", err)
			}
			if got.String() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestValuePortfolioRepositoryError(t *testing.T) {
	repoErr := errors.New("connection refused")
	engine := NewValuationEngine(&stubTransactionRepo{err: repoErr}, tablePriceProvider{}, nil)

	_, err := engine.ValuePortfolio(context.Background(), 1)
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected repository error, got %v", err)
	}
}

func TestValuePortfolioIdempotent(t *testing.T) {
	repo := &stubTransactionRepo{txns: []*domain.Transaction{
		txn("AAPL", "BUY", 3, "200"),
		txn("GOOG", "BUY", 2, "190"),
	}}
	engine := NewValuationEngine(repo, tablePriceProvider{"AAPL": "213.88", "GOOG": "194.08"}, nil)

	first, err := engine.ValuePortfolio(context.Background(), 1)
	if err != nil {
		t.Fatalf("valuation failed: %v", err)
	}
	second, err := engine.ValuePortfolio(context.Background(), 1)
	if err != nil {
		t.Fatalf("valuation failed: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("valuation must be repeatable: %s != %s", first, second)
	}
}

func TestValueHistory(t *testing.T) {
	repo := &stubTransactionRepo{txns: []*domain.Transaction{
		txn("AAPL", "BUY", 6, "100"),
	}}
	prices := tablePriceProvider{"AAPL": "100"}
	valuation := NewValuationEngine(repo, prices, nil)
	portfolios := &stubPortfolioRepo{portfolio: &domain.Portfolio{}}
	svc := NewPortfolioService(portfolios, nil, valuation)

	points, err := svc.ValueHistory(context.Background(), 1)
	if err != nil {
		t.Fatalf("value history failed: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	// 当前市值 600，线性爬升：100, 200, ..., 600
	for i, p := range points {
		want := decimal.NewFromInt(int64((i + 1) * 100))
		if !p.Value.Equal(want) {
			t.Fatalf("point %d: expected %s, got %s", i, want, p.Value)
		}
	}
	if !points[5].Timestamp.After(points[0].Timestamp) {
		t.Fatal("points must be in chronological order")
	}
}

func TestValueHistoryEmptyPortfolio(t *testing.T) {
	valuation := NewValuationEngine(&stubTransactionRepo{}, tablePriceProvider{}, nil)
	svc := NewPortfolioService(&stubPortfolioRepo{portfolio: &domain.Portfolio{}}, nil, valuation)

	points, err := svc.ValueHistory(context.Background(), 1)
	if err != nil {
		t.Fatalf("value history failed: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	for i, p := range points {
		if !p.Value.IsZero() {
			t.Fatalf("point %d: expected zero value, got %s", i, p.Value)
		}
	}
}

type stubPortfolioRepo struct {
	portfolio *domain.Portfolio
}

func (r *stubPortfolioRepo) Save(_ context.Context, _ *domain.Portfolio) error { return nil }

func (r *stubPortfolioRepo) FindByID(_ context.Context, _ uint64) (*domain.Portfolio, error) {
	if r.portfolio == nil {
		return nil, domain.ErrPortfolioNotFound
	}
	return r.portfolio, nil
}

func (r *stubPortfolioRepo) FindByUserID(_ context.Context, _ uint64) ([]*domain.Portfolio, error) {
	if r.portfolio == nil {
		return nil, nil
	}
	return []*domain.Portfolio{r.portfolio}, nil
}
