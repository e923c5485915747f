package models

import (
	"encoding/json"
	"time"
)

// MetricsRequest тело POST /v1/queue/metrics
type MetricsRequest struct {
	Lambda           float64 `json:"lambda"`
	Mu               float64 `json:"mu"`
	Servers          int     `json:"servers"`
	CapacityPerFerry int     `json:"capacityPerFerry,omitempty"`
	CycleMinutes     float64 `json:"cycleMinutes,omitempty"`
	Simulate         bool    `json:"simulate,omitempty"`
}

// ScheduledRequest тело POST /v1/queue/scheduled
type ScheduledRequest struct {
	Lambda               float64 `json:"lambda"`
	PeakHours            bool    `json:"peakHours"`
	CapacityPerDeparture int     `json:"capacityPerDeparture,omitempty"`
	ScheduleGapMinutes   float64 `json:"scheduleGapMinutes,omitempty"`
	Reserved             bool    `json:"reserved"`
}

// ComparisonBatch пакет сценариев для массового сравнения.
// Сценарии разбираются по одному поверх параметров по умолчанию.
type ComparisonBatch struct {
	Scenarios []json.RawMessage `json:"scenarios"`
}

// ComparisonBatchResponse результаты в порядке сценариев
type ComparisonBatchResponse struct {
	Processed int                `json:"processed"`
	Results   []ComparisonResult `json:"results"`
}

// RecentComparisonsResponse ответ GET /v1/queue/recent
type RecentComparisonsResponse struct {
	Count   int                `json:"count"`
	Results []ComparisonResult `json:"results"`
}

// MaintenanceRequest тело POST /v1/maintenance
type MaintenanceRequest struct {
	Trips    int `json:"trips"`
	BaseMTBF int `json:"baseMTBF,omitempty"`
}

// FailureRequest тело POST /v1/failure-impact
type FailureRequest struct {
	Lambda           float64 `json:"lambda"`
	Mu               float64 `json:"mu"`
	AvailableServers int     `json:"availableServers"`
	TotalServers     int     `json:"totalServers"`
}

// DemandResponse оценка спроса для часа отправления
type DemandResponse struct {
	Hour               int     `json:"hour"`
	Lambda             float64 `json:"lambda"`
	PeakHours          bool    `json:"peakHours"`
	ScheduleGapMinutes float64 `json:"scheduleGapMinutes"`
}

// Observation прогноз одного сравнения, передаваемый монитору трендов
type Observation struct {
	Timestamp    time.Time `json:"timestamp"`
	WalkUpWait   float64   `json:"walk_up_wait"`
	ReservedWait float64   `json:"reserved_wait"`
	Utilization  float64   `json:"utilization"`
	Regime       Regime    `json:"regime"`
}

// TrendResult результат анализа наблюдения
type TrendResult struct {
	Timestamp          time.Time `json:"timestamp"`
	RollingAvgWait     float64   `json:"rolling_avg_wait"`
	RollingAvgUtil     float64   `json:"rolling_avg_utilization"`
	ZScoreWait         float64   `json:"z_score_wait"`
	ZScoreUtil         float64   `json:"z_score_utilization"`
	IsWaitSpike        bool      `json:"is_wait_spike"`
	IsUtilSpike        bool      `json:"is_utilization_spike"`
	CongestionDetected bool      `json:"congestion_detected"`
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Redis     string    `json:"redis"`
	Uptime    string    `json:"uptime"`
}

// StatsResponse содержит статистику сервиса
type StatsResponse struct {
	TotalComparisons int64   `json:"total_comparisons"`
	CongestionAlerts int64   `json:"congestion_alerts"`
	RollingAvgWait   float64 `json:"rolling_avg_wait"`
	RollingAvgUtil   float64 `json:"rolling_avg_utilization"`
}
