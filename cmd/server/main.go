package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/currency-converter/internal/application/service"
	"github.com/damon-houk/currency-converter/internal/config"
	"github.com/damon-houk/currency-converter/internal/infrastructure/api"
	"github.com/damon-houk/currency-converter/internal/infrastructure/cache"
	"github.com/damon-houk/currency-converter/internal/infrastructure/handler"
	"github.com/damon-houk/currency-converter/internal/infrastructure/logger"
	"github.com/damon-houk/currency-converter/internal/infrastructure/metrics"
	"github.com/damon-houk/currency-converter/internal/infrastructure/middleware"
	"github.com/damon-houk/currency-converter/internal/infrastructure/provider"
	"github.com/damon-houk/currency-converter/internal/infrastructure/resilience"
	"github.com/gorilla/mux"
)

func main() {
	bootLog := logger.GetDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		bootLog.Warn("Falling back to INFO log level", map[string]interface{}{"error": err.Error()})
	}
	log := logger.NewJSONLogger(os.Stdout, level).WithField("service", "currency-converter")
	logger.SetDefaultLogger(log)

	log.Info("Starting currency converter", map[string]interface{}{
		"addr":          cfg.HTTPServer.Addr(),
		"frankfurter":   cfg.Frankfurter.URL,
		"cache_backend": cfg.Cache.Backend,
		"single_flight": cfg.Provider.SingleFlight,
	})

	appMetrics := metrics.NewMetrics()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, closeStore := buildStore(ctx, cfg.Cache, log)
	defer closeStore()

	// Remote rate source
	client := api.NewFrankfurterClient(cfg.Frankfurter.URL, &http.Client{Timeout: cfg.Frankfurter.Timeout},
		log.WithField("component", "frankfurter"))

	// Resilience pipeline shared by every provider operation
	retryLog := log.WithField("component", "retry")
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries: cfg.Resilience.MaxRetries,
		BaseDelay:  cfg.Resilience.RetryBaseDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			retryLog.Warn("Retrying upstream call", map[string]interface{}{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    err.Error(),
			})
		},
	})

	breakerLog := log.WithField("component", "circuit_breaker")
	breaker := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		BreakDuration:    cfg.Resilience.BreakDuration,
		OnStateChange: func(from, to resilience.State) {
			appMetrics.SetCircuitState(int(to))
			fields := map[string]interface{}{"from": from.String(), "to": to.String()}
			if to == resilience.StateOpen {
				breakerLog.Error("Circuit opened", fields)
				return
			}
			breakerLog.Info("Circuit state changed", fields)
		},
	})

	rateProvider := provider.NewCachedProvider(client, store, resilience.NewPipeline(breaker, retry), provider.Options{
		SingleFlight: cfg.Provider.SingleFlight,
		Metrics:      appMetrics,
		Logger:       log.WithField("component", "provider"),
	})

	// Services and handlers
	conversionService := service.NewConversionService(rateProvider, log)
	currencyHandler := handler.NewCurrencyHandler(conversionService, cfg.Conversion.Blocked(), appMetrics, log)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.MetricsMiddleware(appMetrics))

	router.HandleFunc("/health", handler.Health).Methods("GET")
	router.Handle("/metrics", appMetrics.Handler()).Methods("GET")
	currencyHandler.RegisterRoutes(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down server", map[string]interface{}{"signal": sig.String()})

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
		return
	}

	log.Info("Server exited", nil)
}

// buildStore opens the configured cache backend and returns its close function
func buildStore(ctx context.Context, cfg config.Cache, log logger.Logger) (cache.Store, func()) {
	if cfg.Backend == config.CacheBackendBadger {
		store, err := cache.NewBadgerCache()
		if err != nil {
			log.Fatal("Failed to open badger cache", map[string]interface{}{"error": err.Error()})
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error("Failed to close badger cache", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	store := cache.NewMemoryCache()
	go cleanExpired(ctx, store, cfg.CleanupInterval, log)
	return store, func() {}
}

// cleanExpired periodically drops expired memory cache entries
func cleanExpired(ctx context.Context, store *cache.MemoryCache, interval time.Duration, log logger.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := store.CleanExpired(); removed > 0 {
				log.Debug("Expired cache entries removed", map[string]interface{}{"removed": removed})
			}
		case <-ctx.Done():
			log.Debug("Stopping cache janitor", nil)
			return
		}
	}
}
