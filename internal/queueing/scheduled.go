package queueing

import (
	"math"

	"ferry-service/internal/models"
)

// ScheduleOptions параметры режима отправлений по расписанию
type ScheduleOptions struct {
	PeakHours            bool
	CapacityPerDeparture int     // 0 -> калибровка
	ScheduleGapMinutes   float64 // 0 -> калибровка
	Reserved             bool
}

// ScheduledWait оценивает ожидание относительно ближайшего отправления.
//
// Без брони пассажиры подъезжают в течение окна перед отправлением, среднее
// ожидание равно половине окна. Если ожидаемое число машин в окне превышает
// вместимость, излишек в долях отправления умножается на интервал между
// отправлениями. Результат ограничивается снизу базовым ожиданием и сверху
// откалиброванным средним (TargetAverageWait). Это подогнанное ограничение,
// а не следствие модели. С бронью ожидание фиксировано и не зависит от λ.
func (e *Engine) ScheduledWait(lambda float64, opts ScheduleOptions) models.QueueMetrics {
	capacity := opts.CapacityPerDeparture
	if capacity == 0 {
		capacity = e.cal.DefaultCapacityPerFerry
	}
	gap := opts.ScheduleGapMinutes
	if gap == 0 {
		gap = e.cal.DefaultScheduleGapMinutes
	}
	if !(lambda >= 0) || math.IsInf(lambda, 0) || capacity <= 0 || !positiveFinite(gap) {
		return invalidMetrics(models.RegimeScheduled)
	}

	window := e.cal.arrivalWindow(opts.PeakHours)
	expectedArrivals := lambda / 60 * window
	overflow := math.Max(0, expectedArrivals-float64(capacity))
	baseWait := window / 2

	var wait float64
	if opts.Reserved {
		wait = e.cal.reservedWait(opts.PeakHours)
	} else {
		overflowWait := overflow / float64(capacity) * gap
		wait = math.Max(baseWait, math.Min(baseWait+overflowWait, e.cal.targetAverageWait(opts.PeakHours)))
	}

	waitProbability := 0.0
	if expectedArrivals > 0 {
		waitProbability = 1
	}

	return checkFinite(models.QueueMetrics{
		Model:           models.RegimeScheduled,
		Utilization:     clamp01(expectedArrivals / float64(capacity)),
		WaitTime:        nonNegative(wait),
		SystemWaitTime:  nonNegative(wait),
		QueueLength:     overflow,
		SystemLength:    overflow,
		WaitProbability: waitProbability,
	})
}
