package queueing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ferry-service/internal/models"
)

func TestRecommend(t *testing.T) {
	tests := []struct {
		name    string
		minutes float64
		percent float64
		want    models.Priority
		reserve bool
	}{
		{"large absolute saving", 31, 10, models.PriorityHigh, true},
		{"large relative saving", 5, 26, models.PriorityHigh, true},
		{"moderate absolute saving", 16, 5, models.PriorityMedium, true},
		{"moderate relative saving", 2, 16, models.PriorityMedium, true},
		{"small saving", 5, 5, models.PriorityLow, false},
		{"high thresholds are strict", 30, 25, models.PriorityMedium, true},
		{"medium thresholds are strict", 15, 15, models.PriorityLow, false},
		{"negative saving", -10, -20, models.PriorityLow, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recommend(tt.minutes, tt.percent)
			assert.Equal(t, tt.want, rec.Priority)
			assert.Equal(t, tt.reserve, rec.ShouldReserve)
			assert.NotEmpty(t, rec.Message)
		})
	}
}

func TestRecommend_ReasonReportsExactSaving(t *testing.T) {
	assert.Equal(t, "Saves 31.0 minutes (10.0%)", Recommend(31, 10).Reason)
	assert.Equal(t, "Saves 16.4 minutes (5.2%)", Recommend(16.43, 5.21).Reason)
	assert.Equal(t, "Saves only 5.0 minutes (4.5%)", Recommend(5, 4.5).Reason)
}
