// Package handlers содержит HTTP обработчики API оценки очередей
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"ferry-service/internal/analytics"
	"ferry-service/internal/cache"
	"ferry-service/internal/metrics"
	"ferry-service/internal/models"
	"ferry-service/internal/queueing"
)

const (
	// MaxBatchSize максимальное число сценариев в одном пакете
	MaxBatchSize = 1000
	// DefaultRecentCount сколько последних сравнений отдавать по умолчанию
	DefaultRecentCount = 20

	apiPrefix = "/v1"
)

// ComparisonCache кэш результатов сравнения; реализуется cache.RedisCache
type ComparisonCache interface {
	GetComparison(ctx context.Context, p models.QueueingParameters) (models.ComparisonResult, error)
	CacheComparison(ctx context.Context, p models.QueueingParameters, res models.ComparisonResult) error
	IncrementCounter(ctx context.Context, key string) (int64, error)
	GetCounter(ctx context.Context, key string) (int64, error)
	RecentComparisons(ctx context.Context, count int64) ([]models.ComparisonResult, error)
	Ping(ctx context.Context) error
}

// Handler содержит зависимости для HTTP обработчиков
type Handler struct {
	engine    *queueing.Engine
	monitor   *analytics.Monitor
	cache     ComparisonCache
	logger    *slog.Logger
	startTime time.Time
}

// NewHandler создает обработчик; cache может быть nil
func NewHandler(engine *queueing.Engine, monitor *analytics.Monitor, cache ComparisonCache, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:    engine,
		monitor:   monitor,
		cache:     cache,
		logger:    logger,
		startTime: time.Now(),
	}
}

// RegisterRoutes регистрирует маршруты API.
// Маршруты плоские, чтобы запрос с неверным методом получал 405.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(apiPrefix+"/queue/metrics", h.QueueMetricsHandler).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/queue/scheduled", h.ScheduledHandler).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/queue/compare", h.CompareHandler).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/queue/compare/batch", h.BatchCompareHandler).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/queue/recent", h.RecentComparisonsHandler).Methods(http.MethodGet)
	router.HandleFunc(apiPrefix+"/queue/profile", h.ProfileHandler).Methods(http.MethodGet)
	router.HandleFunc(apiPrefix+"/demand", h.DemandHandler).Methods(http.MethodGet)
	router.HandleFunc(apiPrefix+"/maintenance", h.MaintenanceHandler).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/failure-impact", h.FailureImpactHandler).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/trends", h.TrendsHandler).Methods(http.MethodGet)

	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/stats", h.StatsHandler).Methods(http.MethodGet)
}

// QueueMetricsHandler обрабатывает POST /v1/queue/metrics - метрики одного режима
func (h *Handler) QueueMetricsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/queue/metrics"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	var req models.MetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, endpoint, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	result := h.engine.Metrics(req.Lambda, req.Mu, req.Servers, queueing.CapacityOptions{
		CapacityPerFerry: req.CapacityPerFerry,
		CycleMinutes:     req.CycleMinutes,
		Simulate:         req.Simulate,
	})
	metrics.EstimationLatency.Observe(time.Since(start).Seconds())
	metrics.ObserveMetrics(result)

	h.logger.Debug("queue estimate",
		"model", result.Model,
		"utilization", result.Utilization,
		"wait_minutes", result.WaitTime)

	h.ok(w, r, endpoint, result)
}

// ScheduledHandler обрабатывает POST /v1/queue/scheduled - ожидание по расписанию
func (h *Handler) ScheduledHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/queue/scheduled"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	var req models.ScheduledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, endpoint, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	result := h.engine.ScheduledWait(req.Lambda, queueing.ScheduleOptions{
		PeakHours:            req.PeakHours,
		CapacityPerDeparture: req.CapacityPerDeparture,
		ScheduleGapMinutes:   req.ScheduleGapMinutes,
		Reserved:             req.Reserved,
	})
	metrics.EstimationLatency.Observe(time.Since(start).Seconds())
	metrics.ObserveMetrics(result)

	h.ok(w, r, endpoint, result)
}

// CompareHandler обрабатывает POST /v1/queue/compare - сравнение с бронью и без
func (h *Handler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/queue/compare"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	params := h.engine.DefaultParameters()
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.fail(w, r, endpoint, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.ok(w, r, endpoint, h.compare(r.Context(), params))
}

// BatchCompareHandler обрабатывает POST /v1/queue/compare/batch - параллельное сравнение сценариев
func (h *Handler) BatchCompareHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/queue/compare/batch"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	var batch models.ComparisonBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.fail(w, r, endpoint, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(batch.Scenarios) > MaxBatchSize {
		h.fail(w, r, endpoint, fmt.Sprintf("Too many scenarios: %d > %d", len(batch.Scenarios), MaxBatchSize),
			http.StatusBadRequest)
		return
	}

	results := make([]models.ComparisonResult, len(batch.Scenarios))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(runtime.NumCPU())
	for i, raw := range batch.Scenarios {
		g.Go(func() error {
			params := h.engine.DefaultParameters()
			if err := json.Unmarshal(raw, &params); err != nil {
				return fmt.Errorf("scenario %d: %w", i, err)
			}
			results[i] = h.compare(ctx, params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.fail(w, r, endpoint, "Invalid scenario: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.ok(w, r, endpoint, models.ComparisonBatchResponse{
		Processed: len(results),
		Results:   results,
	})
}

// compare выполняет сравнение с кэшированием и передает прогноз монитору
func (h *Handler) compare(ctx context.Context, params models.QueueingParameters) models.ComparisonResult {
	if h.cache != nil {
		res, err := h.cache.GetComparison(ctx, params)
		if err == nil {
			metrics.CacheHits.Inc()
			return res
		}
		if !errors.Is(err, cache.ErrMiss) {
			h.logger.Warn("comparison cache lookup failed", "error", err)
		}
		metrics.CacheMisses.Inc()
	}

	start := time.Now()
	res := h.engine.Compare(params)
	metrics.EstimationLatency.Observe(time.Since(start).Seconds())
	metrics.ObserveComparison(res)

	if h.cache != nil {
		if err := h.cache.CacheComparison(ctx, params, res); err != nil {
			h.logger.Warn("failed to cache comparison", "error", err)
		}
		if _, err := h.cache.IncrementCounter(ctx, cache.ComparisonsCounter); err != nil {
			h.logger.Warn("failed to increment comparisons counter", "error", err)
		}
	}

	if h.monitor != nil && !h.monitor.Submit(analytics.ObservationFrom(res, time.Now())) {
		h.logger.Debug("trend monitor buffer full, observation dropped")
	}

	return res
}

// RecentComparisonsHandler обрабатывает GET /v1/queue/recent - последние сравнения из кэша
func (h *Handler) RecentComparisonsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/queue/recent"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	if h.cache == nil {
		h.fail(w, r, endpoint, "Cache not available", http.StatusServiceUnavailable)
		return
	}

	count, err := intParam(r.URL.Query().Get("count"), DefaultRecentCount)
	if err != nil || count <= 0 || count > cache.RecentLimit {
		h.fail(w, r, endpoint, fmt.Sprintf("count must be within [1, %d]", cache.RecentLimit), http.StatusBadRequest)
		return
	}

	results, err := h.cache.RecentComparisons(r.Context(), int64(count))
	if err != nil {
		h.logger.Error("failed to read recent comparisons", "error", err)
		h.fail(w, r, endpoint, "Failed to read recent comparisons", http.StatusInternalServerError)
		return
	}

	h.ok(w, r, endpoint, models.RecentComparisonsResponse{
		Count:   len(results),
		Results: results,
	})
}

// ProfileHandler обрабатывает GET /v1/queue/profile - профиль ожидания по часам
func (h *Handler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/queue/profile"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	q := r.URL.Query()

	capacity, err := intParam(q.Get("capacity"), 0)
	if err != nil {
		h.fail(w, r, endpoint, "Invalid capacity: "+err.Error(), http.StatusBadRequest)
		return
	}
	gap, err := floatParam(q.Get("gap"), 0)
	if err != nil {
		h.fail(w, r, endpoint, "Invalid gap: "+err.Error(), http.StatusBadRequest)
		return
	}

	hours := queueing.DefaultProfileHours()
	if raw := q.Get("hours"); raw != "" {
		hours = nil
		for _, part := range strings.Split(raw, ",") {
			hour, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || hour < 0 || hour > 23 {
				h.fail(w, r, endpoint, fmt.Sprintf("Invalid hour %q", part), http.StatusBadRequest)
				return
			}
			hours = append(hours, hour)
		}
	}

	h.ok(w, r, endpoint, h.engine.HourlyWaitProfile(hours, capacity, gap))
}

// DemandHandler обрабатывает GET /v1/demand - оценка потока и интервала для отправления
func (h *Handler) DemandHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/demand"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	q := r.URL.Query()
	departure := q.Get("departure")

	hour := -1
	if raw := q.Get("hour"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, endpoint, "Invalid hour: "+err.Error(), http.StatusBadRequest)
			return
		}
		hour = v
	} else if t, err := time.Parse("15:04", departure); err == nil {
		hour = t.Hour()
	}
	if hour < 0 || hour > 23 {
		h.fail(w, r, endpoint, "hour (0-23) or departure (HH:MM) is required", http.StatusBadRequest)
		return
	}

	var timetable []string
	if raw := q.Get("timetable"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			timetable = append(timetable, strings.TrimSpace(t))
		}
	}

	h.ok(w, r, endpoint, models.DemandResponse{
		Hour:               hour,
		Lambda:             h.engine.EstimateLambdaByHour(hour),
		PeakHours:          queueing.IsPeakHour(hour),
		ScheduleGapMinutes: h.engine.ScheduleGapMinutes(timetable, departure),
	})
}

// MaintenanceHandler обрабатывает POST /v1/maintenance - риск отказа по MTBF
func (h *Handler) MaintenanceHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/maintenance"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	var req models.MaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, endpoint, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.ok(w, r, endpoint, h.engine.MaintenanceStatus(req.Trips, req.BaseMTBF))
}

// FailureImpactHandler обрабатывает POST /v1/failure-impact - влияние выхода паромов из строя
func (h *Handler) FailureImpactHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/failure-impact"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	var req models.FailureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, endpoint, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	impact := h.engine.FailureImpact(req.Lambda, req.Mu, req.AvailableServers, req.TotalServers)
	metrics.EstimationLatency.Observe(time.Since(start).Seconds())
	metrics.ObserveMetrics(impact.Normal)
	metrics.ObserveMetrics(impact.WithFailure)

	h.ok(w, r, endpoint, impact)
}

// TrendsHandler обрабатывает GET /v1/trends - статистика монитора трендов
func (h *Handler) TrendsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/v1/trends"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	if h.monitor == nil {
		h.fail(w, r, endpoint, "Trend monitor not available", http.StatusServiceUnavailable)
		return
	}

	avgWait, avgUtil, stdDevWait, stdDevUtil := h.monitor.Stats()

	response := map[string]interface{}{
		"timestamp":    time.Now(),
		"observations": h.monitor.Observed(),
		"rolling_avg": map[string]float64{
			"wait_minutes": avgWait,
			"utilization":  avgUtil,
		},
		"std_dev": map[string]float64{
			"wait_minutes": stdDevWait,
			"utilization":  stdDevUtil,
		},
		"thresholds": map[string]float64{
			"congestion_z_score": analytics.ZScoreThreshold,
			"window_size":        float64(analytics.WindowSize),
		},
	}

	h.ok(w, r, endpoint, response)
}

// HealthHandler обрабатывает GET /health - проверка здоровья
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disconnected"
	if h.cache != nil && h.cache.Ping(r.Context()) == nil {
		redisStatus = "connected"
	}

	h.respondJSON(w, models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Redis:     redisStatus,
		Uptime:    time.Since(h.startTime).String(),
	}, http.StatusOK)
}

// StatsHandler обрабатывает GET /stats - статистика сервиса
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/stats"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))

	var response models.StatsResponse
	if h.cache != nil {
		response.TotalComparisons, _ = h.cache.GetCounter(r.Context(), cache.ComparisonsCounter)
		response.CongestionAlerts, _ = h.cache.GetCounter(r.Context(), cache.CongestionCounter)
	}
	if h.monitor != nil {
		response.RollingAvgWait, response.RollingAvgUtil, _, _ = h.monitor.Stats()
	}

	h.ok(w, r, endpoint, response)
}

func (h *Handler) ok(w http.ResponseWriter, r *http.Request, endpoint string, data interface{}) {
	metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, "200").Inc()
	h.respondJSON(w, data, http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, endpoint, message string, status int) {
	metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(status)).Inc()
	h.respondError(w, message, status)
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	h.respondJSON(w, map[string]string{"error": message}, status)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// floatParam разбирает число; NaN и ±Inf не принимаются
func floatParam(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return v, nil
}
