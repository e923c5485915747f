package queueing

import (
	"time"

	"ferry-service/internal/models"
)

const minutesPerDay = 24 * 60

// IsPeakHour сообщает, попадает ли час в пик: [7, 9) и [17, 19)
func IsPeakHour(hour int) bool {
	return (hour >= 7 && hour < 9) || (hour >= 17 && hour < 19)
}

// EstimateLambdaByHour оценивает поток машин/час для часа отправления
func (e *Engine) EstimateLambdaByHour(hour int) float64 {
	if IsPeakHour(hour) {
		return e.cal.PeakArrivalRate
	}
	return e.cal.OffPeakArrivalRate
}

// ScheduleGapMinutes возвращает минуты от departure до следующего
// отправления в timetable (формат "15:04"), с переходом через полночь.
// Если departure нет в расписании, возвращается интервал по умолчанию.
func (e *Engine) ScheduleGapMinutes(timetable []string, departure string) float64 {
	idx := -1
	for i, t := range timetable {
		if t == departure {
			idx = i
			break
		}
	}
	if idx < 0 {
		return e.cal.DefaultScheduleGapMinutes
	}

	current, err := minuteOfDay(departure)
	if err != nil {
		return e.cal.DefaultScheduleGapMinutes
	}
	next, err := minuteOfDay(timetable[(idx+1)%len(timetable)])
	if err != nil {
		return e.cal.DefaultScheduleGapMinutes
	}

	diff := next - current
	if diff <= 0 {
		diff += minutesPerDay
	}
	return float64(diff)
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DefaultProfileHours часы работы переправы для профиля ожидания
func DefaultProfileHours() []int {
	return []int{6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
}

// HourlyWaitProfile строит профиль ожидания без брони по часам в режиме расписания
func (e *Engine) HourlyWaitProfile(hours []int, capacityPerDeparture int, gapMinutes float64) []models.HourlyWait {
	profile := make([]models.HourlyWait, 0, len(hours))
	for _, h := range hours {
		lambda := e.EstimateLambdaByHour(h)
		peak := IsPeakHour(h)
		m := e.ScheduledWait(lambda, ScheduleOptions{
			PeakHours:            peak,
			CapacityPerDeparture: capacityPerDeparture,
			ScheduleGapMinutes:   gapMinutes,
		})
		profile = append(profile, models.HourlyWait{
			Hour:      h,
			Lambda:    lambda,
			PeakHours: peak,
			WaitTime:  m.WaitTime,
		})
	}
	return profile
}
