package queueing

import "ferry-service/internal/models"

// DefaultParameters возвращает параметры сравнения со значениями калибровки.
// Удобно как основа для декодирования запросов с необязательными полями.
func (e *Engine) DefaultParameters() models.QueueingParameters {
	return models.QueueingParameters{
		Servers:            e.cal.DefaultServers,
		CapacityPerFerry:   e.cal.DefaultCapacityPerFerry,
		CycleMinutes:       e.cal.DefaultCycleMinutes,
		ReservationRate:    e.cal.DefaultReservationRate,
		ScheduleGapMinutes: e.cal.DefaultScheduleGapMinutes,
	}
}

// EffectiveLambda поток с учетом брони: часть спроса уходит в неконкурирующие
// слоты, в пик сильнее.
func (e *Engine) EffectiveLambda(lambda, reservationRate float64, peak bool) float64 {
	return lambda * (1 - clamp01(reservationRate)*e.cal.demandDiversion(peak))
}

// Compare сравнивает сценарии без брони и с бронью.
func (e *Engine) Compare(p models.QueueingParameters) models.ComparisonResult {
	var without, with models.QueueMetrics

	if p.ScheduledMode {
		opts := ScheduleOptions{
			PeakHours:            p.PeakHours,
			CapacityPerDeparture: p.CapacityPerFerry,
			ScheduleGapMinutes:   p.ScheduleGapMinutes,
		}
		without = e.ScheduledWait(p.Lambda, opts)
		opts.Reserved = true
		with = e.ScheduledWait(p.Lambda, opts)
	} else {
		servers := p.Servers
		if servers == 0 {
			servers = e.cal.DefaultServers
		}
		capOpts := CapacityOptions{CapacityPerFerry: p.CapacityPerFerry, CycleMinutes: p.CycleMinutes}
		without = e.Metrics(p.Lambda, p.Mu, servers, capOpts)
		with = e.Metrics(e.EffectiveLambda(p.Lambda, p.ReservationRate, p.PeakHours), p.Mu, servers, capOpts)
	}

	diff := Diff(without, with)

	return models.ComparisonResult{
		WithoutReservation: without,
		WithReservation:    with,
		Differences:        diff,
		Recommendation:     Recommend(diff.WaitTimeMinutes, diff.WaitTimePercent),
	}
}

// Diff разница baseline - reserved; проценты равны 0 при нулевой базе
func Diff(baseline, reserved models.QueueMetrics) models.Differences {
	waitDiff := baseline.WaitTime - reserved.WaitTime
	queueDiff := baseline.QueueLength - reserved.QueueLength
	return models.Differences{
		WaitTimeMinutes:    waitDiff,
		WaitTimePercent:    percentOf(waitDiff, baseline.WaitTime),
		QueueLength:        queueDiff,
		QueueLengthPercent: percentOf(queueDiff, baseline.QueueLength),
	}
}
