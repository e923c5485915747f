package queueing

import "ferry-service/internal/models"

// FailureImpact сравнивает работу полным составом и с availableServers паромами
func (e *Engine) FailureImpact(lambda, mu float64, availableServers, totalServers int) models.FailureImpact {
	normal := e.Metrics(lambda, mu, totalServers, CapacityOptions{})
	withFailure := e.Metrics(lambda, mu, availableServers, CapacityOptions{})

	waitIncrease := withFailure.WaitTime - normal.WaitTime

	return models.FailureImpact{
		Normal:      normal,
		WithFailure: withFailure,
		Impact: models.Impact{
			WaitTimeIncrease:        waitIncrease,
			WaitTimeIncreasePercent: percentOf(waitIncrease, normal.WaitTime),
			QueueIncrease:           withFailure.QueueLength - normal.QueueLength,
		},
	}
}
