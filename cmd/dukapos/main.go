package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dukapos/dukapos/internal/app"
	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/intake"
	"github.com/dukapos/dukapos/internal/observability"
	"github.com/dukapos/dukapos/internal/orders"
	"github.com/dukapos/dukapos/internal/platform/cache"
	"github.com/dukapos/dukapos/internal/platform/db"
	"github.com/dukapos/dukapos/internal/sales"
	"github.com/dukapos/dukapos/internal/shared"
	"github.com/dukapos/dukapos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	notifyClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := notifyClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, auditLogger, metrics, cfg.TaxRate)
	salesHandler := sales.NewHandler(logger, salesService)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, notifyClient, logger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	responder := intake.NewResponder(catalogService, ordersService, cfg.CurrencyProfile(), cfg.BusinessName, metrics, logger)
	deduper := intake.NewDeduper(redisClient, time.Hour)
	intakeHandler := intake.NewHandler(responder, deduper, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: catalogHandler,
		SalesHandler:   salesHandler,
		OrdersHandler:  ordersHandler,
		IntakeHandler:  intakeHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
