package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/analytics"
	"github.com/patrickwarner/promoserve/internal/api"
	"github.com/patrickwarner/promoserve/internal/config"
	"github.com/patrickwarner/promoserve/internal/db"
	"github.com/patrickwarner/promoserve/internal/geoip"
	"github.com/patrickwarner/promoserve/internal/logic/selectors"
	"github.com/patrickwarner/promoserve/internal/observability"
	"github.com/patrickwarner/promoserve/internal/reporting"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.OTLPEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	// Postgres is the system of record; nothing works without it.
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	// Redis only backs the stats cache and the update channel; without
	// it every stats read recomputes from Postgres.
	var store *db.RedisStore
	if s, err := db.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		logger.Warn("redis unavailable, stats caching disabled", zap.Error(err))
	} else {
		store = s
		defer store.Close()
	}

	// ClickHouse mirrors events for analytics; the Postgres log stays
	// authoritative when the mirror is down.
	var analyticsSvc analytics.AnalyticsService
	if a, err := analytics.InitClickHouse(cfg.ClickHouseDSN, cfg.CHMaxOpenConns, cfg.CHMaxIdleConns, cfg.CHConnMaxLifetime, cfg.CHConnMaxIdleTime, metricsRegistry); err != nil {
		logger.Warn("clickhouse unavailable, analytics mirroring disabled", zap.Error(err))
	} else {
		analyticsSvc = a
		defer a.Close()
	}

	var geoSvc *geoip.GeoIP
	if g, err := geoip.Init(cfg.GeoIPDB); err != nil {
		logger.Warn("geoip unavailable, country enrichment disabled", zap.Error(err))
	} else {
		geoSvc = g
		defer func() { _ = geoSvc.Close() }()
	}

	recorder := db.NewRecorder(pg, metricsRegistry, logger)
	selector := selectors.NewExpectedProfitSelector(pg, recorder, logger)

	statsCache := store
	if !cfg.StatsCacheEnabled {
		statsCache = nil
	}
	reporter := reporting.NewReporter(pg, statsCache, cfg.StatsCacheTTL, metricsRegistry, logger)

	srvDeps := api.NewServer(logger, pg, store, recorder, selector, reporter, analyticsSvc, geoSvc, metricsRegistry, cfg)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(srvDeps.Routes(), "promoserve"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("ad platform running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
