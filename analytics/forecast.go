package analytics

import (
	"sort"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// DailyTotal is the weight (or quantity) handled on one calendar day
type DailyTotal struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Blend weights for Forecast
const (
	WeightLastWeek       = 0.4
	WeightWeekdayAverage = 0.4
	WeightRecentMean     = 0.2
)

// ForecastResult carries the blended estimate and the inputs it came from
type ForecastResult struct {
	Date           time.Time `json:"date"`
	Value          float64   `json:"value"`
	LastWeek       *float64  `json:"last_week"`
	WeekdayAverage *float64  `json:"weekday_average"`
	RecentMean     *float64  `json:"recent_mean"`
}

// Forecast estimates the value for target as a weighted average of the same
// weekday last week, the mean of the same weekday over the previous four
// weeks, and the mean of the seven days before target. Components with no
// data are dropped and the remaining weights renormalised.
func Forecast(history []DailyTotal, target time.Time) ForecastResult {
	loc := target.Location()
	day := startOfDay(target, loc)
	byDate := make(map[string]float64, len(history))
	for _, h := range history {
		byDate[dateKey(h.Date.In(loc))] += h.Value
	}

	res := ForecastResult{Date: day}

	if v, ok := byDate[dateKey(day.AddDate(0, 0, -7))]; ok {
		res.LastWeek = &v
	}

	var sum float64
	var n int
	for w := 1; w <= 4; w++ {
		if v, ok := byDate[dateKey(day.AddDate(0, 0, -7*w))]; ok {
			sum += v
			n++
		}
	}
	if n > 0 {
		avg := sum / float64(n)
		res.WeekdayAverage = &avg
	}

	sum, n = 0, 0
	for d := 1; d <= 7; d++ {
		if v, ok := byDate[dateKey(day.AddDate(0, 0, -d))]; ok {
			sum += v
			n++
		}
	}
	if n > 0 {
		mean := sum / float64(n)
		res.RecentMean = &mean
	}

	var weighted, weights float64
	for _, c := range []struct {
		v *float64
		w float64
	}{
		{res.LastWeek, WeightLastWeek},
		{res.WeekdayAverage, WeightWeekdayAverage},
		{res.RecentMean, WeightRecentMean},
	} {
		if c.v != nil {
			weighted += *c.v * c.w
			weights += c.w
		}
	}
	if weights > 0 {
		res.Value = Round1(weighted / weights)
	}
	return res
}

// DailyWeights sums pickup weight per calendar day in loc, oldest first
func DailyWeights(entries []models.PickupEntry, loc *time.Location) []DailyTotal {
	if loc == nil {
		loc = time.UTC
	}
	byDay := make(map[time.Time]float64)
	for _, e := range entries {
		byDay[startOfDay(e.Timestamp, loc)] += e.Weight
	}
	out := make([]DailyTotal, 0, len(byDay))
	for d, v := range byDay {
		out = append(out, DailyTotal{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
