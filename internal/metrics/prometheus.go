// Package metrics реализует экспорт метрик в Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ferry-service/internal/models"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ferry_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// EstimatesTotal количество оценок по модели
	EstimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_estimates_total",
			Help: "Total number of queue estimates by model",
		},
		[]string{"model"},
	)

	// InvalidEstimates оценки с маркером некорректных параметров
	InvalidEstimates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ferry_invalid_estimates_total",
			Help: "Total number of estimates rejected for invalid parameters",
		},
	)

	// RecommendationsTotal рекомендации по уровню
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_recommendations_total",
			Help: "Total number of reservation recommendations by priority",
		},
		[]string{"priority"},
	)

	// PredictedWait последний прогноз ожидания по сценарию
	PredictedWait = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ferry_predicted_wait_minutes",
			Help: "Last predicted wait time in minutes by scenario",
		},
		[]string{"scenario"},
	)

	// CongestionAlerts количество всплесков загруженности
	CongestionAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ferry_congestion_alerts_total",
			Help: "Total number of congestion spikes detected",
		},
	)

	// RollingAvgWait скользящее среднее ожидания без брони
	RollingAvgWait = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferry_rolling_avg_wait_minutes",
			Help: "Rolling average of predicted walk-up wait",
		},
	)

	// RollingAvgUtilization скользящее среднее загрузки
	RollingAvgUtilization = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferry_rolling_avg_utilization",
			Help: "Rolling average of predicted utilization",
		},
	)

	// ZScoreWait z-score ожидания
	ZScoreWait = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferry_zscore_wait",
			Help: "Z-score of the last predicted walk-up wait",
		},
	)

	// CacheHits попадания в кэш
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ferry_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses промахи кэша
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ferry_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// InFlightRequests запросы в обработке
	InFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferry_in_flight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// ActiveGoroutines количество активных горутин
	ActiveGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferry_active_goroutines",
			Help: "Number of active goroutines",
		},
	)

	// EstimationLatency время расчета движком
	EstimationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ferry_estimation_latency_seconds",
			Help:    "Estimation engine latency in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)
)

// ObserveMetrics учитывает одну оценку движка
func ObserveMetrics(m models.QueueMetrics) {
	if !m.Valid() {
		InvalidEstimates.Inc()
		return
	}
	EstimatesTotal.WithLabelValues(string(m.Model)).Inc()
}

// ObserveComparison учитывает результат сравнения сценариев
func ObserveComparison(res models.ComparisonResult) {
	ObserveMetrics(res.WithoutReservation)
	ObserveMetrics(res.WithReservation)
	PredictedWait.WithLabelValues("walk_up").Set(res.WithoutReservation.WaitTime)
	PredictedWait.WithLabelValues("reserved").Set(res.WithReservation.WaitTime)
	RecommendationsTotal.WithLabelValues(string(res.Recommendation.Priority)).Inc()
}

// UpdateTrendMetrics обновляет метрики монитора трендов
func UpdateTrendMetrics(r models.TrendResult) {
	RollingAvgWait.Set(r.RollingAvgWait)
	RollingAvgUtilization.Set(r.RollingAvgUtil)
	ZScoreWait.Set(r.ZScoreWait)
	if r.CongestionDetected {
		CongestionAlerts.Inc()
	}
}
