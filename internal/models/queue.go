// Package models содержит структуры данных для оценки очередей на переправе
package models

// Regime указывает, какой моделью получены метрики
type Regime string

const (
	// RegimeAnalytic аналитическая модель M/M/c (0 < ρ < 1)
	RegimeAnalytic Regime = "analytic"
	// RegimeSimulated дискретная симуляция партий (ρ >= 1 или явный запрос)
	RegimeSimulated Regime = "simulated"
	// RegimeScheduled эвристика отправлений по расписанию
	RegimeScheduled Regime = "scheduled"
)

// ErrInvalidParameters маркер некорректных входных параметров
const ErrInvalidParameters = "invalid parameters"

// QueueingParameters набор входных параметров для сравнения сценариев
type QueueingParameters struct {
	Lambda             float64 `json:"lambda"`
	Mu                 float64 `json:"mu"`
	Servers            int     `json:"servers"`
	CapacityPerFerry   int     `json:"capacityPerFerry"`
	CycleMinutes       float64 `json:"cycleMinutes"`
	PeakHours          bool    `json:"peakHours"`
	ReservationRate    float64 `json:"reservationRate"`
	ScheduledMode      bool    `json:"scheduledMode"`
	ScheduleGapMinutes float64 `json:"scheduleGapMinutes"`
}

// QueueMetrics метрики очереди; создаются заново при каждом вызове модели
type QueueMetrics struct {
	Model           Regime  `json:"model,omitempty"`
	Utilization     float64 `json:"utilization"`
	WaitTime        float64 `json:"waitTime"`
	SystemWaitTime  float64 `json:"systemWaitTime"`
	QueueLength     float64 `json:"queueLength"`
	SystemLength    float64 `json:"systemLength"`
	WaitProbability float64 `json:"waitProbability"`
	P0              float64 `json:"p0"`
	Error           string  `json:"error,omitempty"`
}

// Valid сообщает, что метрики получены без маркера ошибки
func (m QueueMetrics) Valid() bool {
	return m.Error == ""
}

// Differences разница между сценариями без и с бронированием
type Differences struct {
	WaitTimeMinutes    float64 `json:"waitTimeMinutes"`
	WaitTimePercent    float64 `json:"waitTimePercent"`
	QueueLength        float64 `json:"queueLength"`
	QueueLengthPercent float64 `json:"queueLengthPercent"`
}

// Priority уровень рекомендации
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation рекомендация пассажиру
type Recommendation struct {
	ShouldReserve bool     `json:"shouldReserve"`
	Message       string   `json:"message"`
	Reason        string   `json:"reason"`
	Priority      Priority `json:"priority"`
}

// ComparisonResult результат сравнения сценариев
type ComparisonResult struct {
	WithoutReservation QueueMetrics   `json:"withoutReservation"`
	WithReservation    QueueMetrics   `json:"withReservation"`
	Differences        Differences    `json:"differences"`
	Recommendation     Recommendation `json:"recommendation"`
}

// MaintenanceLevel статус технического состояния судна
type MaintenanceLevel string

const (
	MaintenanceOK        MaintenanceLevel = "OK"
	MaintenanceAttention MaintenanceLevel = "Attention"
	MaintenanceRisk      MaintenanceLevel = "Risk"
)

// MaintenanceStatus результат классификации риска по MTBF
type MaintenanceStatus struct {
	Status               MaintenanceLevel `json:"status"`
	Message              string           `json:"message"`
	NextMaintenanceTrips int              `json:"nextMaintenanceTrips"`
	Error                string           `json:"error,omitempty"`
}

// Impact прирост ожидания при выходе судов из строя
type Impact struct {
	WaitTimeIncrease        float64 `json:"waitTimeIncrease"`
	WaitTimeIncreasePercent float64 `json:"waitTimeIncreasePercent"`
	QueueIncrease           float64 `json:"queueIncrease"`
}

// FailureImpact сравнение штатной работы и работы с отказами
type FailureImpact struct {
	Normal      QueueMetrics `json:"normal"`
	WithFailure QueueMetrics `json:"withFailure"`
	Impact      Impact       `json:"impact"`
}

// HourlyWait точка профиля ожидания по часам
type HourlyWait struct {
	Hour      int     `json:"hour"`
	Lambda    float64 `json:"lambda"`
	PeakHours bool    `json:"peakHours"`
	WaitTime  float64 `json:"waitTime"`
}
