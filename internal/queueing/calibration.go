package queueing

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Calibration содержит настраиваемые константы эвристик.
//
// Окна прибытия, потолки среднего ожидания и ожидание с бронью подобраны под
// наблюдаемые на переправе средние (~20 мин вне пика, ~90 мин в пик). Это
// подогнанная эвристика, а не результат аналитической модели: ограничение
// TargetAverageWait в ScheduledWait задаёт результат напрямую.
type Calibration struct {
	// Окно, в течение которого пассажиры без брони подъезжают к отправлению;
	// среднее ожидание равно половине окна.
	PeakArrivalWindowMinutes    float64 `yaml:"peakArrivalWindowMinutes"`
	OffPeakArrivalWindowMinutes float64 `yaml:"offPeakArrivalWindowMinutes"`

	// Потолок ожидания без брони в режиме расписания (подогнан под наблюдения).
	PeakTargetAverageWait    float64 `yaml:"peakTargetAverageWait"`
	OffPeakTargetAverageWait float64 `yaml:"offPeakTargetAverageWait"`

	// Ожидание с бронью: приоритетная посадка, только регистрация.
	PeakReservedWait    float64 `yaml:"peakReservedWait"`
	OffPeakReservedWait float64 `yaml:"offPeakReservedWait"`

	// Доля спроса, переносимая бронированием в неконкурирующие слоты,
	// умножается на долю бронирований.
	PeakDemandDiversion    float64 `yaml:"peakDemandDiversion"`
	OffPeakDemandDiversion float64 `yaml:"offPeakDemandDiversion"`

	// Оценка потока по часу суток (машин/час).
	PeakArrivalRate    float64 `yaml:"peakArrivalRate"`
	OffPeakArrivalRate float64 `yaml:"offPeakArrivalRate"`

	// Значения по умолчанию для необязательных параметров.
	DefaultServers            int     `yaml:"defaultServers"`
	DefaultCapacityPerFerry   int     `yaml:"defaultCapacityPerFerry"`
	DefaultCycleMinutes       float64 `yaml:"defaultCycleMinutes"`
	DefaultScheduleGapMinutes float64 `yaml:"defaultScheduleGapMinutes"`
	DefaultReservationRate    float64 `yaml:"defaultReservationRate"`
	HorizonMinutes            int     `yaml:"horizonMinutes"`

	// MTBF в рейсах и пороги отношения trips/MTBF.
	BaseMTBF           int     `yaml:"baseMTBF"`
	AttentionThreshold float64 `yaml:"attentionThreshold"`
	RiskThreshold      float64 `yaml:"riskThreshold"`
}

// DefaultCalibration возвращает откалиброванные значения по умолчанию
func DefaultCalibration() Calibration {
	return Calibration{
		PeakArrivalWindowMinutes:    60,
		OffPeakArrivalWindowMinutes: 40,
		PeakTargetAverageWait:       90,
		OffPeakTargetAverageWait:    20,
		PeakReservedWait:            10,
		OffPeakReservedWait:         5,
		PeakDemandDiversion:         0.4,
		OffPeakDemandDiversion:      0.2,
		PeakArrivalRate:             120,
		OffPeakArrivalRate:          60,
		DefaultServers:              4,
		DefaultCapacityPerFerry:     50,
		DefaultCycleMinutes:         120,
		DefaultScheduleGapMinutes:   120,
		DefaultReservationRate:      0.3,
		HorizonMinutes:              240,
		BaseMTBF:                    1000,
		AttentionThreshold:          0.7,
		RiskThreshold:               0.9,
	}
}

// Validate проверяет корректность калибровки
func (c Calibration) Validate() error {
	var errs []error

	positive := map[string]float64{
		"peakArrivalWindowMinutes":    c.PeakArrivalWindowMinutes,
		"offPeakArrivalWindowMinutes": c.OffPeakArrivalWindowMinutes,
		"peakTargetAverageWait":       c.PeakTargetAverageWait,
		"offPeakTargetAverageWait":    c.OffPeakTargetAverageWait,
		"peakArrivalRate":             c.PeakArrivalRate,
		"offPeakArrivalRate":          c.OffPeakArrivalRate,
		"defaultCycleMinutes":         c.DefaultCycleMinutes,
		"defaultScheduleGapMinutes":   c.DefaultScheduleGapMinutes,
		"defaultServers":              float64(c.DefaultServers),
		"defaultCapacityPerFerry":     float64(c.DefaultCapacityPerFerry),
		"horizonMinutes":              float64(c.HorizonMinutes),
		"baseMTBF":                    float64(c.BaseMTBF),
	}
	for _, name := range slices.Sorted(maps.Keys(positive)) {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, positive[name]))
		}
	}

	if c.PeakReservedWait < 0 || c.OffPeakReservedWait < 0 {
		errs = append(errs, errors.New("reserved wait must be non-negative"))
	}

	fractions := map[string]float64{
		"peakDemandDiversion":    c.PeakDemandDiversion,
		"offPeakDemandDiversion": c.OffPeakDemandDiversion,
		"defaultReservationRate": c.DefaultReservationRate,
	}
	for _, name := range slices.Sorted(maps.Keys(fractions)) {
		if fractions[name] < 0 || fractions[name] > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", name, fractions[name]))
		}
	}

	if c.AttentionThreshold <= 0 || c.AttentionThreshold >= c.RiskThreshold {
		errs = append(errs, fmt.Errorf("attentionThreshold (%v) must be positive and below riskThreshold (%v)",
			c.AttentionThreshold, c.RiskThreshold))
	}

	if c.RiskThreshold > 1 {
		errs = append(errs, fmt.Errorf("riskThreshold must not exceed 1, got %v", c.RiskThreshold))
	}

	return errors.Join(errs...)
}

func (c Calibration) arrivalWindow(peak bool) float64 {
	if peak {
		return c.PeakArrivalWindowMinutes
	}
	return c.OffPeakArrivalWindowMinutes
}

func (c Calibration) targetAverageWait(peak bool) float64 {
	if peak {
		return c.PeakTargetAverageWait
	}
	return c.OffPeakTargetAverageWait
}

func (c Calibration) reservedWait(peak bool) float64 {
	if peak {
		return c.PeakReservedWait
	}
	return c.OffPeakReservedWait
}

func (c Calibration) demandDiversion(peak bool) float64 {
	if peak {
		return c.PeakDemandDiversion
	}
	return c.OffPeakDemandDiversion
}
