package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	marketdataapp "github.com/wyfcoding/stocksimulator/internal/marketdata/application"
	"github.com/wyfcoding/stocksimulator/internal/marketdata/infrastructure/alphavantage"
	marketdatamsg "github.com/wyfcoding/stocksimulator/internal/marketdata/infrastructure/messaging"
	marketdatahttp "github.com/wyfcoding/stocksimulator/internal/marketdata/interfaces/http"
	matchingapp "github.com/wyfcoding/stocksimulator/internal/matching/application"
	matchingmsg "github.com/wyfcoding/stocksimulator/internal/matching/infrastructure/messaging"
	matchinghttp "github.com/wyfcoding/stocksimulator/internal/matching/interfaces/http"
	portfolioapp "github.com/wyfcoding/stocksimulator/internal/portfolio/application"
	portfoliodomain "github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
	portfoliomysql "github.com/wyfcoding/stocksimulator/internal/portfolio/infrastructure/persistence/mysql"
	portfoliohttp "github.com/wyfcoding/stocksimulator/internal/portfolio/interfaces/http"
	userapp "github.com/wyfcoding/stocksimulator/internal/user/application"
	userdomain "github.com/wyfcoding/stocksimulator/internal/user/domain"
	usermysql "github.com/wyfcoding/stocksimulator/internal/user/infrastructure/persistence/mysql"
	userhttp "github.com/wyfcoding/stocksimulator/internal/user/interfaces/http"
	"github.com/wyfcoding/stocksimulator/pkg/cache"
	"github.com/wyfcoding/stocksimulator/pkg/config"
	"github.com/wyfcoding/stocksimulator/pkg/db"
	"github.com/wyfcoding/stocksimulator/pkg/logger"
	"github.com/wyfcoding/stocksimulator/pkg/metrics"
	"github.com/wyfcoding/stocksimulator/pkg/middleware"
	"github.com/wyfcoding/stocksimulator/pkg/mq"
)

var configPath = flag.String("config", "configs/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	ctx := context.Background()

	// 3. 初始化指标
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "failed to register metrics", "error", err)
		}
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 4. 初始化基础设施
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	// Auto Migrate (仅用于开发方便)
	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&userdomain.User{},
			&portfoliodomain.Portfolio{},
			&portfoliodomain.Stock{},
			&portfoliodomain.Transaction{},
			&portfoliodomain.ValuationSnapshot{},
		); err != nil {
			logger.Error(ctx, "failed to migrate database", "error", err)
		}
	}

	// Redis（可选，价格二级缓存）
	var remoteCache marketdataapp.RemoteCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.New(cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			logger.Error(ctx, "failed to init redis, price cache runs in-memory only", "error", err)
		} else {
			remoteCache = redisCache
			defer redisCache.Close()
		}
	}

	// Kafka（可选，成交与行情事件发布）
	var producer *mq.KafkaProducer
	if cfg.Kafka.Enabled {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Error(ctx, "failed to init kafka producer, events disabled", "error", err)
			producer = nil
		} else {
			defer producer.Close()
		}
	}

	// 5. 初始化仓储
	userRepo := usermysql.NewUserRepository(database.DB)
	portfolioRepo := portfoliomysql.NewPortfolioRepository(database.DB)
	stockRepo := portfoliomysql.NewStockRepository(database.DB)
	transactionRepo := portfoliomysql.NewTransactionRepository(database.DB)
	snapshotRepo := portfoliomysql.NewSnapshotRepository(database.DB)

	// 6. 初始化应用服务
	quoteSource := alphavantage.NewClient(alphavantage.Config{
		APIURL:  cfg.MarketData.APIURL,
		APIKey:  cfg.MarketData.APIKey,
		Timeout: time.Duration(cfg.MarketData.FetchTimeout) * time.Second,
		Delay:   time.Duration(cfg.MarketData.FetchDelay) * time.Millisecond,
	})
	priceCache := marketdataapp.NewPriceCache(
		quoteSource, remoteCache,
		time.Duration(cfg.MarketData.CacheTTL)*time.Second, m)

	valuation := portfolioapp.NewValuationEngine(transactionRepo, priceCache, m)
	portfolioSvc := portfolioapp.NewPortfolioService(portfolioRepo, snapshotRepo, valuation)
	userSvc := userapp.NewUserService(userRepo)

	var tradePublisher matchingapp.TradeEventPublisher
	if producer != nil {
		tradePublisher = matchingmsg.NewKafkaTradePublisher(producer, cfg.Kafka.TradeTopic)
	}
	recorder := matchingapp.NewTradeRecorder(
		portfolioRepo, stockRepo, transactionRepo, snapshotRepo,
		valuation, tradePublisher, m, nil)
	matchingSvc := matchingapp.NewMatchingService(recorder, m)
	defer matchingSvc.Close()

	// 行情定时广播
	broadcastCtx, cancelBroadcast := context.WithCancel(ctx)
	defer cancelBroadcast()
	if producer != nil {
		broadcaster := marketdataapp.NewBroadcaster(
			quoteSource,
			marketdatamsg.NewKafkaQuotePublisher(producer, cfg.Kafka.QuoteTopic),
			cfg.MarketData.Symbols,
			time.Duration(cfg.MarketData.BroadcastInterval)*time.Second)
		broadcaster.Start(broadcastCtx)
	}

	// 7. 初始化接口层
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.GinRecoveryMiddleware())
	r.Use(middleware.GinLoggingMiddleware())
	r.Use(middleware.GinCORSMiddleware())

	api := r.Group("/api/v1")
	userhttp.NewUserHandler(userSvc).RegisterRoutes(api)
	portfoliohttp.NewPortfolioHandler(portfolioSvc).RegisterRoutes(api)
	matchinghttp.NewOrderHandler(matchingSvc).RegisterRoutes(api)
	marketdatahttp.NewMarketDataHandler(priceCache).RegisterRoutes(api)

	// 8. 启动服务
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 9. 优雅关闭
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(ctx, "shutting down server...")
		case <-gctx.Done():
			logger.Info(ctx, "context cancelled, shutting down...")
		}

		cancelBroadcast()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
	}
}
