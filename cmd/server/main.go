// Command server runs the cart sync HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartsync"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/cache"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/config"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/logger"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/persistence"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/telemetry"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/middleware"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logCfg := &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		return err
	}
	log, err := logger.New(logCfg, logProvider.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info("Starting cart sync server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Cart.Backend),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	metrics, err := telemetry.NewCartMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		return err
	}

	store, err := cache.NewCartStoreFactory(cfg,
		cache.WithLogger(log),
		cache.WithDBTracing(cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled),
	).CreateStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing cart store", zap.Error(err))
		}
	}()

	var janitor *persistence.Janitor
	if purger, ok := store.(persistence.ExpiredPurger); ok {
		janitor = persistence.NewJanitor(purger, cfg.Cart.PurgeInterval, log)
		janitor.Start(ctx)
	}

	service := cartsync.NewService(store, cfg.Cart.TTL,
		cartsync.WithMetrics(metrics),
		cartsync.WithLogger(log),
	)

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		defer limiter.Stop()
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:  log,
		Service: service,
		Health:  service,
		Backend: backendName(store),
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        middleware.DefaultCORSConfig().MaxAge,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RateLimiter:    limiter,
		Tracing:        middleware.TracingConfig{ServiceName: cfg.Telemetry.ServiceName, Enabled: tracerProvider.IsEnabled()},
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if janitor != nil {
		if err := janitor.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, shutdown := range []func(context.Context) error{
		meterProvider.Shutdown,
		tracerProvider.Shutdown,
		logProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.Error("Shutdown incomplete", zap.Error(err))
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

func backendName(store cart.RecordStore) string {
	switch store.(type) {
	case *cache.RedisCartStore:
		return config.BackendRedis
	case *persistence.GormCartStore:
		return config.BackendPostgres
	default:
		return config.BackendMemory
	}
}
