// Package main запускает HTTP-сервер витрины цветочного магазина.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/florist-storefront/internal/cache"
	"github.com/mmeshcher/florist-storefront/internal/cart"
	"github.com/mmeshcher/florist-storefront/internal/catalog"
	"github.com/mmeshcher/florist-storefront/internal/checkout"
	"github.com/mmeshcher/florist-storefront/internal/config"
	"github.com/mmeshcher/florist-storefront/internal/handler"
	"github.com/mmeshcher/florist-storefront/internal/ratelimit"
	"github.com/mmeshcher/florist-storefront/internal/repository"
	"github.com/mmeshcher/florist-storefront/internal/service"
	"github.com/mmeshcher/florist-storefront/internal/telemetry"
	"github.com/mmeshcher/florist-storefront/internal/vendor"
)

const (
	serviceName = "florist-storefront"
	cachePrefix = "florist:"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sugar.Warnw("failed to load .env file", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		sugar.Fatalw("tracing initialization error", "error", err.Error())
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			sugar.Warnw("tracing shutdown error", "error", err.Error())
		}
	}()

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisAddress != "" {
		redisStore := cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddress}), cachePrefix)
		defer redisStore.Close()
		store = redisStore
		sugar.Infow("using redis cache", "addr", cfg.RedisAddress)
	}
	responseCache := cache.NewJSON(store, logger)

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	}

	// Интерфейсы получают клиента только в боевом режиме, иначе nil внутри интерфейса
	// сделал бы корзину поставщика «настроенной».
	var (
		cartVendor     cart.Vendor
		checkoutVendor checkout.Vendor
	)
	if cfg.MockMode() {
		sugar.Warn("vendor credentials are not set, running with mock carts only")
	} else {
		client := vendor.NewClient(cfg.VendorAPIURL, cfg.VendorAffiliateID, cfg.VendorAPIToken,
			vendor.WithLogger(logger))
		cartVendor = client
		checkoutVendor = client
	}

	engine := cart.NewEngine(cartVendor, catalog.Default(), logger)
	pipeline := checkout.NewPipeline(checkoutVendor, engine, responseCache, logger)

	svc := service.NewService(engine, pipeline, repo, logger)
	defer func() {
		if err := svc.Close(); err != nil {
			sugar.Warnw("service close error", "error", err.Error())
		}
	}()

	h := handler.NewHandler(svc, logger, ratelimit.New(), ratelimit.Options{
		MaxRequests: cfg.TotalRateLimit,
		Window:      cfg.TotalRateWindow,
	})

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress, "mock", cfg.MockMode())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}
