package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/zone-forecast-service/internal/cache"
	"github.com/kjstillabower/zone-forecast-service/internal/client"
	"github.com/kjstillabower/zone-forecast-service/internal/config"
	"github.com/kjstillabower/zone-forecast-service/internal/forecast"
	httphandler "github.com/kjstillabower/zone-forecast-service/internal/http"
	"github.com/kjstillabower/zone-forecast-service/internal/observability"
	"github.com/kjstillabower/zone-forecast-service/internal/zones"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	telemetry, err := observability.NewTelemetry(context.Background(), observability.Config{
		ServiceVersion:  "1.0.0",
		TraceExporter:   cfg.TraceExporter,
		MetricsExporter: cfg.MetricsExporter,
	})
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}

	var zoneCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		zoneCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		zoneCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	forecastClient, err := client.NewHTTPForecastClient(cfg.ForecastAPIURL, cfg.ForecastAPITimeout)
	if err != nil {
		logger.Fatal("forecast client", zap.Error(err))
	}

	catalog := zones.NewCatalog(zoneCache, cfg.ZonesPath, cfg.ZonesTTL, logger)
	fetcher := forecast.NewFetcher(forecastClient, logger)

	zoneSource := observability.NewInstrumentedCatalog(catalog, telemetry, logger)
	forecastSource := observability.NewInstrumentedForecaster(fetcher, telemetry, logger)
	handler := httphandler.NewHandler(zoneSource, forecastSource, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	outputCache := httphandler.NewOutputCache(cfg.ResponseCacheTTL)

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.RequestLogMiddleware(logger))
	router.HandleFunc("/healthz", handler.GetHealth).Methods("GET")
	if mh := telemetry.MetricsHandler(); mh != nil {
		router.Handle("/metrics", mh)
	}
	apiRouter := router.NewRoute().Subrouter()
	apiRouter.Use(httphandler.RateLimitMiddleware(limiter))
	apiRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	apiRouter.Use(outputCache.Middleware)
	apiRouter.HandleFunc("/zones", handler.GetZones).Methods("GET")
	apiRouter.HandleFunc("/forecast/{zoneId}", handler.GetForecast).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := observability.FlushTelemetry(shutdownCtx, telemetry, logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
