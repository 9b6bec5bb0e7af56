package analytics

import (
	"testing"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/stretchr/testify/assert"
)

func TestForecastBlendsComponents(t *testing.T) {
	target := time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC) // Monday
	history := []DailyTotal{
		{Date: target.AddDate(0, 0, -7), Value: 100},
		{Date: target.AddDate(0, 0, -14), Value: 200},
		{Date: target.AddDate(0, 0, -21), Value: 300},
		{Date: target.AddDate(0, 0, -28), Value: 400},
		{Date: target.AddDate(0, 0, -1), Value: 50},
	}

	res := Forecast(history, target)
	assert.Equal(t, 100.0, *res.LastWeek)
	assert.Equal(t, 250.0, *res.WeekdayAverage)
	assert.Equal(t, 75.0, *res.RecentMean, "mean of the -1 and -7 days")
	// 0.4*100 + 0.4*250 + 0.2*75 = 155
	assert.Equal(t, 155.0, res.Value)
}

func TestForecastRenormalisesMissingComponents(t *testing.T) {
	target := time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC)
	history := []DailyTotal{{Date: target.AddDate(0, 0, -2), Value: 80}}

	res := Forecast(history, target)
	assert.Nil(t, res.LastWeek)
	assert.Nil(t, res.WeekdayAverage)
	assert.Equal(t, 80.0, res.Value)
}

func TestForecastNoHistory(t *testing.T) {
	res := Forecast(nil, time.Now())
	assert.Equal(t, 0.0, res.Value)
}

func TestDailyWeights(t *testing.T) {
	day := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	entries := []models.PickupEntry{
		{Timestamp: day.AddDate(0, 0, 1), Weight: 5},
		{Timestamp: day, Weight: 10},
		{Timestamp: day.Add(time.Hour), Weight: 15},
	}
	totals := DailyWeights(entries, time.UTC)
	assert.Len(t, totals, 2)
	assert.Equal(t, 25.0, totals[0].Value)
	assert.Equal(t, 5.0, totals[1].Value)
}
