package queueing

import (
	"math"

	"ferry-service/internal/models"
)

// AnalyticMMC решает модель M/M/c в замкнутой форме.
//
// Модель определена только при 0 < ρ < 1; вызывающий код (Engine.Metrics)
// выбирает симуляцию в остальных случаях. Здесь ρ >= 1 считается
// некорректным входом и дает нулевые метрики с маркером ошибки.
//
// Вероятность ожидания считается через рекурсию Эрланга B, P0 через
// логарифмы слагаемых a^n/n!, поэтому большие a и c не переполняются.
func AnalyticMMC(lambda, mu float64, servers int) models.QueueMetrics {
	if !positiveFinite(lambda) || !positiveFinite(mu) || servers <= 0 {
		return invalidMetrics(models.RegimeAnalytic)
	}

	c := float64(servers)
	rho := lambda / (c * mu)
	if rho >= 1 {
		return invalidMetrics(models.RegimeAnalytic)
	}

	// a = λ/μ, нагрузка в эрлангах
	a := lambda / mu

	// Erlang B: B0 = 1, Bn = a·B(n-1) / (n + a·B(n-1))
	erlangB := 1.0
	for n := 1; n <= servers; n++ {
		erlangB = a * erlangB / (float64(n) + a*erlangB)
	}
	// Erlang C: вероятность ожидания
	waitProbability := erlangB / (1 - rho*(1-erlangB))

	p0 := idleProbability(a, rho, servers)

	lq := waitProbability * rho / (1 - rho)
	ls := lq + a

	// Little: Wq = Lq/λ, Ws = Ls/λ (часы -> минуты)
	wq := lq / lambda * 60
	ws := ls / lambda * 60

	return checkFinite(models.QueueMetrics{
		Model:           models.RegimeAnalytic,
		Utilization:     clamp01(rho),
		WaitTime:        nonNegative(wq),
		SystemWaitTime:  nonNegative(ws),
		QueueLength:     nonNegative(lq),
		SystemLength:    nonNegative(ls),
		WaitProbability: clamp01(waitProbability),
		P0:              clamp01(p0),
	})
}

// idleProbability P0 = 1 / (Σ_{n<c} a^n/n! + a^c/(c!(1-ρ))), log-sum-exp
func idleProbability(a, rho float64, servers int) float64 {
	logA := math.Log(a)

	// ln(a^n/n!) растет до n≈a и затем убывает; ищем максимум
	maxLog := 0.0
	logTerm := 0.0
	for n := 1; n <= servers; n++ {
		logTerm += logA - math.Log(float64(n))
		if n < servers && logTerm > maxLog {
			maxLog = logTerm
		}
	}
	// после цикла logTerm = ln(a^c/c!)
	logTail := logTerm - math.Log(1-rho)
	if logTail > maxLog {
		maxLog = logTail
	}

	sum := math.Exp(logTail - maxLog)
	logTerm = 0
	for n := 0; n < servers; n++ {
		if n > 0 {
			logTerm += logA - math.Log(float64(n))
		}
		sum += math.Exp(logTerm - maxLog)
	}

	return math.Exp(-maxLog - math.Log(sum))
}
