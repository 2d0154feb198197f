package application

import (
	"context"
	"time"

	"github.com/wyfcoding/stocksimulator/internal/marketdata/domain"
	"github.com/wyfcoding/stocksimulator/pkg/logger"
)

// Broadcaster 定时拉取配置标的的行情并对外广播。
// 单个标的失败只记日志，不影响其余标的与后续轮次。
type Broadcaster struct {
	source    domain.QuoteSource
	publisher domain.QuotePublisher
	symbols   []string
	interval  time.Duration
}

// NewBroadcaster 构造行情广播器；interval 非正时取 60 秒
func NewBroadcaster(source domain.QuoteSource, publisher domain.QuotePublisher, symbols []string, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Broadcaster{
		source:    source,
		publisher: publisher,
		symbols:   symbols,
		interval:  interval,
	}
}

// Start 启动广播循环，ctx 取消后退出
func (b *Broadcaster) Start(ctx context.Context) {
	if b.publisher == nil || len(b.symbols) == 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.broadcastOnce(ctx)
			}
		}
	}()
}

func (b *Broadcaster) broadcastOnce(ctx context.Context) {
	for _, symbol := range b.symbols {
		price, err := b.source.FetchQuote(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "quote broadcast fetch failed", "symbol", symbol, "error", err)
			continue
		}

		quote := &domain.MarketQuote{
			Symbol:    symbol,
			Price:     price,
			Timestamp: time.Now(),
		}
		if err := b.publisher.PublishQuote(ctx, quote); err != nil {
			logger.Warn(ctx, "quote broadcast publish failed", "symbol", symbol, "error", err)
		}
	}
}
