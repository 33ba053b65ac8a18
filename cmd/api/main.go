package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/app"
	"github.com/MohamedH1000/GetPayIn/internal/cache"
	"github.com/MohamedH1000/GetPayIn/internal/clock"
	"github.com/MohamedH1000/GetPayIn/internal/config"
	"github.com/MohamedH1000/GetPayIn/internal/logging"
	"github.com/MohamedH1000/GetPayIn/internal/storage/postgres"
	transporthttp "github.com/MohamedH1000/GetPayIn/internal/transport/http"
	"github.com/MohamedH1000/GetPayIn/migrations"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}
	if cfg.SeedProducts {
		if err := migrations.Seed(startupCtx, pool); err != nil {
			logger.Fatal("seed products", zap.Error(err))
		}
		logger.Info("seeded demo products")
	}

	var availability app.AvailabilityCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		availability = cache.NewAvailability(rdb, cfg.CacheTTL, logger)
		logger.Info("availability cache enabled", zap.String("redis_addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	clk := clock.NewSystem()
	productRepo := postgres.NewProductRepository(pool)
	holdRepo := postgres.NewHoldRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	webhookRepo := postgres.NewWebhookRepository(pool)

	ledgerOpts := []app.StockLedgerOption{}
	holdOpts := []app.HoldServiceOption{app.WithHoldTTL(cfg.HoldTTL), app.WithHoldLogger(logger)}
	orderOpts := []app.OrderServiceOption{app.WithOrderLogger(logger)}
	sweepOpts := []app.SweeperOption{app.WithSweeperLogger(logger)}
	if availability != nil {
		ledgerOpts = append(ledgerOpts, app.WithLedgerCache(availability))
		holdOpts = append(holdOpts, app.WithHoldCache(availability))
		orderOpts = append(orderOpts, app.WithOrderCache(availability))
		sweepOpts = append(sweepOpts, app.WithSweeperCache(availability))
	}

	ledger := app.NewStockLedger(productRepo, clk, ledgerOpts...)
	holdSvc := app.NewHoldService(holdRepo, productRepo, clk, holdOpts...)
	orderSvc := app.NewOrderService(orderRepo, holdRepo, productRepo, clk, orderOpts...)
	webhookSvc := app.NewWebhookService(webhookRepo, orderRepo, orderSvc, clk, logger)
	sweeper := app.NewSweeper(holdRepo, holdSvc, orderSvc, clk, sweepOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/products/", transporthttp.HandleGetProduct(ledger))
	mux.Handle("/holds", transporthttp.HandleCreateHold(holdSvc))
	mux.Handle("/orders", transporthttp.HandleCreateOrder(orderSvc))
	mux.Handle("/payments/webhook", transporthttp.HandlePaymentWebhook(webhookSvc))
	mux.Handle("/admin/expire-holds", transporthttp.HandleExpireHolds(sweeper, logger))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.Origins(), mux), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SweepInterval > 0 {
		go func() {
			if err := sweeper.Run(stopCtx, cfg.SweepInterval); err != nil {
				logger.Error("sweeper stopped", zap.Error(err))
			}
		}()
		logger.Info("expiry sweeper started", zap.Duration("interval", cfg.SweepInterval))
	}

	logger.Info("api listening", zap.String("port", cfg.Port), zap.String("app", cfg.AppName))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
