// Package metrics 提供 Prometheus helper，包含订单/成交/行情等业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/stocksimulator/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// 已处理订单总数（每次撮合提交计一次）
	OrdersProcessedTotal prometheus.Counter
	// 被拒绝订单总数
	OrdersRejectedTotal prometheus.Counter
	// 成交总数
	TradesExecutedTotal prometheus.Counter
	// 行情拉取总数
	QuoteFetchTotal prometheus.Counter
	// 行情拉取失败总数
	QuoteFetchFailuresTotal prometheus.Counter
	// 价格缓存命中总数
	PriceCacheHitsTotal prometheus.Counter
	// 估值计算耗时
	ValuationDuration prometheus.Histogram
	// 估值快照写入失败总数
	SnapshotFailuresTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		OrdersProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stocksim",
			Subsystem: serviceName,
			Name:      "orders_processed_total",
			Help:      "Total orders accepted by the matching engine",
		}),
		OrdersRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stocksim",
			Subsystem: serviceName,
			Name:      "orders_rejected_total",
			Help:      "Total orders rejected before matching",
		}),
		TradesExecutedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stocksim",
			Subsystem: serviceName,
			Name:      "trades_executed_total",
			Help:      "Total trades produced by the matching engine",
		}),
		QuoteFetchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stocksim",
			Subsystem: serviceName,
			Name:      "quote_fetch_total",
			Help:      "Total live quote fetch attempts",
		}),
		QuoteFetchFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stocksim",
			Subsystem: serviceName,
			Name:      "quote_fetch_failures_total",
			Help:      "Total live quote fetch failures",
		}),
		PriceCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stocksim",
			Subsystem: serviceName,
			Name:      "price_cache_hits_total",
			Help:      "Total price cache hits",
		}),
		ValuationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stocksim",
			Subsystem: serviceName,
			Name:      "valuation_duration_seconds",
			Help:      "Portfolio valuation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stocksim",
			Subsystem: serviceName,
			Name:      "snapshot_failures_total",
			Help:      "Total valuation snapshot persistence failures",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.OrdersProcessedTotal,
		m.OrdersRejectedTotal,
		m.TradesExecutedTotal,
		m.QuoteFetchTotal,
		m.QuoteFetchFailuresTotal,
		m.PriceCacheHitsTotal,
		m.ValuationDuration,
		m.SnapshotFailuresTotal,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()
}

// RecordOrderProcessed 记录一次订单处理（fire-and-forget）
func (m *Metrics) RecordOrderProcessed() {
	m.OrdersProcessedTotal.Inc()
}

// RecordTrade 记录一次成交
func (m *Metrics) RecordTrade() {
	m.TradesExecutedTotal.Inc()
}
