package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/ledger"
	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/submission"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	engine, err := pricing.NewEngine(pricing.RatesFromConfig(cfg.Pricing))
	if err != nil {
		return err
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Ledger:  ledgerService,
		Engine:  engine,
		Outbox:  outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	cartCache, err := cart.NewRedisCache(redisClient, cfg.Cart.TTL)
	if err != nil {
		return err
	}
	acks := cart.NewLogAcknowledger(logg, 64)
	defer acks.Close()
	cartService, err := cart.NewService(cart.ServiceParams{Cache: cartCache, Acknowledger: acks, Logger: logg})
	if err != nil {
		return err
	}

	loyaltyCache, err := loyalty.NewRedisCache(redisClient, cfg.Loyalty.CacheTTL)
	if err != nil {
		return err
	}
	loyaltyService, err := loyalty.NewService(loyalty.ServiceParams{
		Cache:  loyaltyCache,
		Source: loyalty.BalanceSourceFunc(ordersService.LoyaltyPoints),
		Logger: logg,
	})
	if err != nil {
		return err
	}

	submitter, err := submission.New(submission.Params{
		Orders:  ordersService,
		Cart:    cartService,
		Loyalty: loyaltyService,
		Timeout: cfg.Checkout.SubmitTimeout,
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	sessions, err := checkout.NewRedisSessionStore(redisClient, cfg.Checkout.SessionTTL)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Store:     sessions,
		Cart:      cartService,
		Loyalty:   loyaltyService,
		Engine:    engine,
		Submitter: submitter,
		Metrics:   checkoutMetrics,
		Logger:    logg,

		SubmitTimeout: cfg.Checkout.SubmitTimeout,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(logCtx, "starting api server")

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		cartService,
		loyaltyService,
		engine,
		checkoutService,
		ordersService,
		ledgerService,
		outbox.NewDLQRepository(dbClient.DB()),
	)
	server := api.NewServer(cfg, addr, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Checkout.SubmitTimeout+5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
