package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/credential"
	"github.com/af-corp/aireader-gateway/internal/gateway"
	"github.com/af-corp/aireader-gateway/internal/ratelimit"
	"github.com/af-corp/aireader-gateway/internal/router"
	"github.com/af-corp/aireader-gateway/internal/router/adapters"
	"github.com/af-corp/aireader-gateway/internal/state"
	"github.com/af-corp/aireader-gateway/internal/telemetry"
	"github.com/af-corp/aireader-gateway/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	// Bootstrap logger until the configured one is available.
	logger := telemetry.NewLogger(os.Stdout, config.DefaultConfig().Telemetry)

	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfg := loader.Config()
	logger = telemetry.NewLogger(os.Stdout, cfg.Telemetry)

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	ctx := context.Background()
	var backends state.Backends

	rdb, err := state.ConnectRedis(ctx, cfg.Redis)
	switch {
	case err != nil:
		logger.Warn("redis not reachable (rate limits fall back to in-process)", "error", err)
	case rdb != nil:
		logger.Info("redis connected")
		backends.Redis = rdb
		defer rdb.Close()
	}

	if cfg.State.Backend == config.StateBackendPostgres {
		pool, err := state.ConnectPostgres(ctx, cfg.Database)
		if err != nil {
			logger.Warn("database not reachable", "error", err)
		} else {
			logger.Info("database connected")
			backends.Postgres = pool
			defer pool.Close()
		}
	}

	store, err := state.Open(cfg.State, backends, logger)
	if err != nil {
		logger.Error("failed to open routing state", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	doer := newReloadingDoer(loader.Credentials().Provider)
	loader.OnReload(func() {
		doer.Reset(loader.Credentials().Provider)
		logger.Info("provider transport reloaded")
	})

	credentials := credential.NewStore(func() config.CredentialList {
		return loader.Credentials().Credentials
	}, store, logger)

	rt := router.New(router.Options{
		Credentials: credentials,
		Routes:      state.NewRouteState(store, logger),
		Adapter: func() adapters.ProviderAdapter {
			return adapters.New(loader.Credentials().Provider)
		},
		Models:   loader.Models,
		Settings: func() config.RoutingConfig { return loader.Config().Routing },
		Doer:     doer,
		Metrics:  metrics,
		Logger:   logger,
	})

	handler := gateway.NewHandler(rt, credentials, store, loader.Models,
		func() config.RoutingConfig { return loader.Config().Routing }, logger)

	limiter := ratelimit.NewLimiter(backends.Redis, cfg.RateLimit.Burst)
	rateLimit := ratelimit.Middleware(limiter,
		func() config.RateLimitConfig { return loader.Config().RateLimit }, metrics, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(handler, rateLimit),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsSrv *http.Server
	if cfg.Telemetry.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Telemetry.MetricsPort),
			Handler: mux,
		}
		go func() {
			logger.Info("metrics server starting", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("aireader starting",
			"addr", addr,
			"version", version,
			"state_backend", cfg.State.Backend,
			"fallback_enabled", cfg.Routing.FallbackEnabled,
			"credentials", len(credentials.List()),
		)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if metricsSrv != nil {
		metricsSrv.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	doer.Close()
	logger.Info("aireader stopped")
}

// reloadingDoer swaps the provider transport when provider settings change.
// In-flight attempts finish on the client they started with.
type reloadingDoer struct {
	current atomic.Pointer[transport.Client]
}

func newReloadingDoer(cfg config.ProviderConfig) *reloadingDoer {
	d := &reloadingDoer{}
	d.current.Store(transport.NewClient(cfg))
	return d
}

func (d *reloadingDoer) Do(ctx context.Context, req *http.Request, timeout time.Duration) (*transport.Response, error) {
	return d.current.Load().Do(ctx, req, timeout)
}

func (d *reloadingDoer) Reset(cfg config.ProviderConfig) {
	if old := d.current.Swap(transport.NewClient(cfg)); old != nil {
		old.CloseIdleConnections()
	}
}

func (d *reloadingDoer) Close() {
	d.current.Load().CloseIdleConnections()
}
