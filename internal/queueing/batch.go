package queueing

import (
	"math"

	"ferry-service/internal/models"
)

// DefaultHorizonMinutes горизонт симуляции по умолчанию
const DefaultHorizonMinutes = 240

// BatchParams параметры симуляции партий
type BatchParams struct {
	Lambda           float64 // машин/час
	Servers          int     // паромов в работе
	CapacityPerFerry int     // машин за одно отправление
	CycleMinutes     float64 // полный цикл одного парома
	HorizonMinutes   int     // 0 -> DefaultHorizonMinutes
}

// SimulateBatch выполняет детерминированную симуляцию с шагом в минуту.
//
// Каждую минуту в очередь поступает λ/60 машин (непрерывный поток).
// Система делает departuresPerHour = servers*60/cycle отправлений в час;
// раз в departureInterval минут одно отправление забирает до
// CapacityPerFerry машин. Среднее время ожидания получается из средней
// длины очереди по закону Литтла.
func SimulateBatch(p BatchParams) models.QueueMetrics {
	if !positiveFinite(p.Lambda) || p.Servers <= 0 || p.CapacityPerFerry <= 0 || !positiveFinite(p.CycleMinutes) {
		return invalidMetrics(models.RegimeSimulated)
	}

	horizon := p.HorizonMinutes
	if horizon <= 0 {
		horizon = DefaultHorizonMinutes
	}

	departuresPerHour := float64(p.Servers) * 60 / p.CycleMinutes
	capacity := float64(p.CapacityPerFerry)
	capacityPerHour := departuresPerHour * capacity

	// интервал округляется до целых минут; не меньше одного шага
	interval := int(math.Round(60 / departuresPerHour))
	if interval < 1 {
		interval = 1
	}

	inflow := p.Lambda / 60
	queue := 0.0
	sumQueue := 0.0
	ticksWithQueue := 0

	for t := 0; t < horizon; t++ {
		queue += inflow

		if t > 0 && t%interval == 0 {
			queue -= math.Min(queue, capacity)
		}

		if queue > 0 {
			ticksWithQueue++
		}
		sumQueue += queue
	}

	avgQueue := sumQueue / float64(horizon)
	waitMinutes := avgQueue / p.Lambda * 60

	return checkFinite(models.QueueMetrics{
		Model:           models.RegimeSimulated,
		Utilization:     clamp01(p.Lambda / capacityPerHour),
		WaitTime:        nonNegative(waitMinutes),
		SystemWaitTime:  nonNegative(waitMinutes),
		QueueLength:     nonNegative(avgQueue),
		SystemLength:    nonNegative(avgQueue),
		WaitProbability: clamp01(float64(ticksWithQueue) / float64(horizon)),
	})
}
