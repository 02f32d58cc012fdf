package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"prediction-history/internal/api"
	"prediction-history/internal/config"
	"prediction-history/internal/events"
	"prediction-history/internal/health"
	"prediction-history/internal/metrics"
	"prediction-history/internal/predict"
	"prediction-history/internal/server"
	"prediction-history/internal/storage"
	"prediction-history/internal/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logConfig(logger, cfg)

	client, err := predict.NewClient(cfg.APIURL, cfg.RequestTimeout)
	if err != nil {
		logger.Error("failed to create prediction API client", "err", err)
		os.Exit(2)
	}
	if cfg.APIRateLimit > 0 {
		client.Limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst)
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open telemetry storage", "err", err, "path", cfg.StoragePath)
		os.Exit(2)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	healthChecker := health.NewChecker(cfg.APIURL, cfg.HealthCheckInterval, cfg.HealthCheckTimeout, m, logger)

	registry := views.NewRegistry(client, cfg.ViewTTL, logger)
	registry.MaxPerOwner = cfg.ViewsPerSession
	registry.OnChange = m.SetViewsActive

	apiServer := api.NewServer(store, cfg, logger)
	eventBus := events.NewBus(256)

	h, err := server.NewHandler(cfg, registry, store, apiServer, eventBus, m, healthChecker, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(2)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.LogRequests(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Live SSE streams would otherwise hold Shutdown until its deadline.
	srv.RegisterOnShutdown(eventBus.Shutdown)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting prediction-history", "listen", cfg.ListenAddr, "api_url", cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sweepViews(gctx, registry, cfg.ViewTTL)
		return nil
	})

	g.Go(func() error {
		healthChecker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	if store != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("failed to close telemetry storage", "err", cerr)
		}
	}
	if err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

// openStore returns nil when telemetry storage is off.
func openStore(cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		s, err := storage.NewSQLiteStore(cfg.StoragePath, cfg.StorageMaxRows, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageMemory:
		return storage.NewMemoryStore(cfg.StorageMaxRows), nil
	default:
		return nil, nil
	}
}

// sweepViews unmounts idle views until ctx is done.
func sweepViews(ctx context.Context, registry *views.Registry, ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			registry.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func newLogger(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	switch level {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "info":
		lvl.Set(slog.LevelInfo)
	case "warn", "warning":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

func logConfig(logger *slog.Logger, cfg config.Config) {
	logger.Info("configuration",
		"listen_addr", cfg.ListenAddr,
		"api_url", cfg.APIURL,
		"token_cookie", cfg.TokenCookie,
		"login_url", cfg.LoginURL,
		"request_timeout", cfg.RequestTimeout,
		"api_rate_limit", cfg.APIRateLimit,
		"api_rate_burst", cfg.APIRateBurst,
		"view_ttl", cfg.ViewTTL,
		"views_per_session", cfg.ViewsPerSession,
		"storage", string(cfg.Storage),
		"storage_path", cfg.StoragePath,
		"storage_max_rows", cfg.StorageMaxRows,
		"metrics_enabled", cfg.MetricsEnabled,
		"health_check_interval", cfg.HealthCheckInterval,
		"health_check_timeout", cfg.HealthCheckTimeout,
		"log_level", cfg.LogLevel,
	)
}
