// Package queueing реализует движок оценки очередей на переправе:
// аналитическую модель M/M/c, дискретную симуляцию партий для ρ >= 1,
// эвристику отправлений по расписанию и сравнение сценариев с бронированием.
//
// Все функции пакета чистые и детерминированные: нет общего состояния,
// ввода-вывода и случайности, поэтому их можно вызывать параллельно без
// синхронизации. Некорректные параметры не приводят к панике или ошибке,
// а возвращают нулевые метрики с маркером models.ErrInvalidParameters.
package queueing

import (
	"math"

	"ferry-service/internal/models"
)

// Engine применяет калибровку к моделям. Неизменяем после создания.
type Engine struct {
	cal Calibration
}

// NewEngine создает движок с заданной калибровкой
func NewEngine(cal Calibration) *Engine {
	return &Engine{cal: cal}
}

// Default создает движок с калибровкой по умолчанию
func Default() *Engine {
	return NewEngine(DefaultCalibration())
}

// Calibration возвращает копию калибровки движка
func (e *Engine) Calibration() Calibration {
	return e.cal
}

// invalidMetrics нулевые метрики с маркером ошибки
func invalidMetrics(regime models.Regime) models.QueueMetrics {
	return models.QueueMetrics{Model: regime, Error: models.ErrInvalidParameters}
}

// percentOf возвращает delta в процентах от base; 0 при нулевой базе
func percentOf(delta, base float64) float64 {
	if base > 0 {
		return delta / base * 100
	}
	return 0
}

// positiveFinite отсекает ноль, отрицательные значения, NaN и ±Inf
func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// checkFinite заменяет метрики с NaN или ±Inf маркером ошибки
func checkFinite(m models.QueueMetrics) models.QueueMetrics {
	for _, v := range []float64{
		m.Utilization, m.WaitTime, m.SystemWaitTime,
		m.QueueLength, m.SystemLength, m.WaitProbability, m.P0,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidMetrics(m.Model)
		}
	}
	return m
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
