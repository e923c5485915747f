package queueing

import "ferry-service/internal/models"

// MaintenanceStatus классифицирует риск отказа по отношению trips/MTBF.
// baseMTBF <= 0 заменяется значением калибровки.
func (e *Engine) MaintenanceStatus(trips, baseMTBF int) models.MaintenanceStatus {
	if baseMTBF <= 0 {
		baseMTBF = e.cal.BaseMTBF
	}
	if trips < 0 || baseMTBF <= 0 {
		return models.MaintenanceStatus{Error: models.ErrInvalidParameters}
	}

	ratio := float64(trips) / float64(baseMTBF)

	switch {
	case ratio < e.cal.AttentionThreshold:
		return models.MaintenanceStatus{
			Status:               models.MaintenanceOK,
			Message:              "Vessel in good condition",
			NextMaintenanceTrips: max(0, baseMTBF-trips),
		}
	case ratio < e.cal.RiskThreshold:
		return models.MaintenanceStatus{
			Status:               models.MaintenanceAttention,
			Message:              "Preventive maintenance recommended",
			NextMaintenanceTrips: max(0, baseMTBF-trips),
		}
	default:
		// порог безопасности уже пройден
		return models.MaintenanceStatus{
			Status:               models.MaintenanceRisk,
			Message:              "Urgent maintenance required",
			NextMaintenanceTrips: 0,
		}
	}
}
