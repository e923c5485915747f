// Package main запускает сервис оценки очередей на паромной переправе.
// Сервис реализует:
// - HTTP API оценки ожидания с бронью и без (M/M/c, пакетная симуляция, расписание)
// - Мониторинг трендов прогнозов (окно 50 сравнений, z-score > 2σ)
// - Кэширование сравнений в Redis
// - Экспорт метрик в Prometheus
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ferry-service/internal/analytics"
	"ferry-service/internal/cache"
	"ferry-service/internal/config"
	"ferry-service/internal/handlers"
	"ferry-service/internal/metrics"
	"ferry-service/internal/queueing"
)

const redisAttempts = 5

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ferry service",
		"go_version", runtime.Version(),
		"num_cpu", runtime.NumCPU())

	cal, err := config.LoadCalibration(cfg.CalibrationFile)
	if err != nil {
		logger.Error("failed to load calibration", "file", cfg.CalibrationFile, "error", err)
		os.Exit(1)
	}
	engine := queueing.NewEngine(cal)

	monitor := analytics.NewMonitor(cfg.BufferSize)
	monitor.Start(cfg.WorkerCount)
	logger.Info("trend monitor started", "workers", cfg.WorkerCount)

	redisCache := connectRedis(logger, cfg)

	// nil *RedisCache в интерфейсе не равен nil
	var comparisonCache handlers.ComparisonCache
	if redisCache != nil {
		comparisonCache = redisCache
	}

	handler := handlers.NewHandler(engine, monitor, comparisonCache, logger)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	// Prometheus метрики
	router.Handle("/prometheus", promhttp.Handler())

	// pprof для профилирования
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go updateMetricsLoop(monitor)
	go processTrendResults(logger, monitor, redisCache)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "addr", cfg.ServerAddr)
		logger.Info("endpoints",
			"compare", "POST /v1/queue/compare",
			"batch", "POST /v1/queue/compare/batch",
			"metrics", "POST /v1/queue/metrics",
			"scheduled", "POST /v1/queue/scheduled",
			"profile", "GET /v1/queue/profile",
			"demand", "GET /v1/demand",
			"maintenance", "POST /v1/maintenance",
			"failure_impact", "POST /v1/failure-impact",
			"trends", "GET /v1/trends",
			"prometheus", "GET /prometheus")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	monitor.Stop()

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			logger.Warn("failed to close Redis", "error", err)
		}
	}

	logger.Info("server stopped")
}

// connectRedis подключается к Redis с повторами; nil, если Redis недоступен
func connectRedis(logger *slog.Logger, cfg *config.Config) *cache.RedisCache {
	opts := cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	}

	var err error
	for i := 0; i < redisAttempts; i++ {
		var redisCache *cache.RedisCache
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err = cache.NewRedisCache(ctx, opts)
		cancel()
		if err == nil {
			logger.Info("connected to Redis", "addr", cfg.RedisAddr)
			return redisCache
		}
		logger.Warn("Redis connection attempt failed", "attempt", i+1, "error", err)
		if i < redisAttempts-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}

	logger.Warn("running without cache", "error", err)
	return nil
}

// statusRecorder запоминает код ответа для логирования
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware логирует HTTP запросы
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		})
	}
}

// metricsMiddleware учитывает запросы в обработке
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.InFlightRequests.Inc()
		defer metrics.InFlightRequests.Dec()
		next.ServeHTTP(w, r)
	})
}

// updateMetricsLoop периодически обновляет метрики Prometheus
func updateMetricsLoop(monitor *analytics.Monitor) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		avgWait, avgUtil, _, _ := monitor.Stats()
		metrics.RollingAvgWait.Set(avgWait)
		metrics.RollingAvgUtilization.Set(avgUtil)
		metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))
	}
}

// processTrendResults обрабатывает результаты монитора трендов
func processTrendResults(logger *slog.Logger, monitor *analytics.Monitor, redisCache *cache.RedisCache) {
	for result := range monitor.Results() {
		metrics.UpdateTrendMetrics(result)
		if !result.CongestionDetected {
			continue
		}
		if redisCache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if _, err := redisCache.IncrementCounter(ctx, cache.CongestionCounter); err != nil {
				logger.Warn("failed to increment congestion counter", "error", err)
			}
			cancel()
		}
		logger.Warn("congestion spike detected",
			"wait_zscore", result.ZScoreWait,
			"util_zscore", result.ZScoreUtil,
			"rolling_avg_wait", result.RollingAvgWait)
	}
}
