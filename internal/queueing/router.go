package queueing

import "ferry-service/internal/models"

// CapacityOptions необязательные параметры пропускной способности для симуляции
type CapacityOptions struct {
	CapacityPerFerry int
	CycleMinutes     float64
	// Simulate требует симуляцию партий даже при 0 < ρ < 1
	Simulate bool
}

// Utilization возвращает ρ = λ/(c·μ); 0 при некорректных параметрах
func Utilization(lambda, mu float64, servers int) float64 {
	if lambda <= 0 || mu <= 0 || servers <= 0 {
		return 0
	}
	return lambda / (float64(servers) * mu)
}

// Route выбирает модель по ρ: аналитическую при 0 < ρ < 1,
// иначе симуляцию партий. Граница устойчивости не является ошибкой.
func Route(lambda, mu float64, servers int) models.Regime {
	rho := Utilization(lambda, mu, servers)
	if rho > 0 && rho < 1 {
		return models.RegimeAnalytic
	}
	return models.RegimeSimulated
}

// Metrics считает метрики одного режима, выбирая модель через Route,
// если opts.Simulate не задан. Нулевые поля opts заменяются значениями калибровки.
func (e *Engine) Metrics(lambda, mu float64, servers int, opts CapacityOptions) models.QueueMetrics {
	if !opts.Simulate && Route(lambda, mu, servers) == models.RegimeAnalytic {
		return AnalyticMMC(lambda, mu, servers)
	}
	return SimulateBatch(e.batchParams(lambda, servers, opts))
}

func (e *Engine) batchParams(lambda float64, servers int, opts CapacityOptions) BatchParams {
	p := BatchParams{
		Lambda:           lambda,
		Servers:          servers,
		CapacityPerFerry: opts.CapacityPerFerry,
		CycleMinutes:     opts.CycleMinutes,
		HorizonMinutes:   e.cal.HorizonMinutes,
	}
	if p.CapacityPerFerry == 0 {
		p.CapacityPerFerry = e.cal.DefaultCapacityPerFerry
	}
	if p.CycleMinutes == 0 {
		p.CycleMinutes = e.cal.DefaultCycleMinutes
	}
	return p
}
