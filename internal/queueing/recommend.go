package queueing

import (
	"fmt"

	"ferry-service/internal/models"
)

// Пороги рекомендации; сравнение строгое
const (
	HighSavingMinutes   = 30.0
	HighSavingPercent   = 25.0
	MediumSavingMinutes = 15.0
	MediumSavingPercent = 15.0
)

// Recommend переводит экономию ожидания в рекомендацию из трех уровней
func Recommend(deltaMinutes, deltaPercent float64) models.Recommendation {
	switch {
	case deltaMinutes > HighSavingMinutes || deltaPercent > HighSavingPercent:
		return models.Recommendation{
			ShouldReserve: true,
			Message:       "Reservation is well worth it",
			Reason:        fmt.Sprintf("Saves %.1f minutes (%.1f%%)", deltaMinutes, deltaPercent),
			Priority:      models.PriorityHigh,
		}
	case deltaMinutes > MediumSavingMinutes || deltaPercent > MediumSavingPercent:
		return models.Recommendation{
			ShouldReserve: true,
			Message:       "Reservation recommended",
			Reason:        fmt.Sprintf("Saves %.1f minutes (%.1f%%)", deltaMinutes, deltaPercent),
			Priority:      models.PriorityMedium,
		}
	default:
		return models.Recommendation{
			ShouldReserve: false,
			Message:       "Reservation is not worth it",
			Reason:        fmt.Sprintf("Saves only %.1f minutes (%.1f%%)", deltaMinutes, deltaPercent),
			Priority:      models.PriorityLow,
		}
	}
}
