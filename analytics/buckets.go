package analytics

import (
	"math"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// DayBucket aggregates pickups that fell on one weekday
type DayBucket struct {
	Day           time.Weekday `json:"day"`
	DayName       string       `json:"day_name"`
	Count         int          `json:"count"`
	TotalWeight   float64      `json:"total_weight"`
	AverageWeight float64      `json:"average_weight"`
}

// DayOfWeekBuckets puts every entry in exactly one of seven buckets, indexed
// by the weekday of its timestamp in loc (Sunday = 0).
func DayOfWeekBuckets(entries []models.PickupEntry, loc *time.Location) [7]DayBucket {
	if loc == nil {
		loc = time.UTC
	}
	var buckets [7]DayBucket
	for d := range buckets {
		buckets[d].Day = time.Weekday(d)
		buckets[d].DayName = time.Weekday(d).String()
	}
	for _, e := range entries {
		d := e.Timestamp.In(loc).Weekday()
		buckets[d].Count++
		buckets[d].TotalWeight += e.Weight
	}
	for d := range buckets {
		if buckets[d].Count > 0 {
			buckets[d].AverageWeight = buckets[d].TotalWeight / float64(buckets[d].Count)
		}
	}
	return buckets
}

// WeekdayPattern is the average weight handled on one weekday across a range
type WeekdayPattern struct {
	Day           time.Weekday `json:"day"`
	DayName       string       `json:"day_name"`
	Occurrences   int          `json:"occurrences"`
	TotalWeight   float64      `json:"total_weight"`
	AverageWeight float64      `json:"average_weight"`
}

// WeeklyPattern averages the weight per weekday over the calendar days in
// [from, to] (both inclusive, by date in loc). A weekday with no pickups on
// some of its occurrences still counts those days in the denominator.
func WeeklyPattern(entries []models.PickupEntry, from, to time.Time, loc *time.Location) [7]WeekdayPattern {
	if loc == nil {
		loc = time.UTC
	}
	var pattern [7]WeekdayPattern
	for d := range pattern {
		pattern[d].Day = time.Weekday(d)
		pattern[d].DayName = time.Weekday(d).String()
	}

	start := startOfDay(from, loc)
	end := startOfDay(to, loc)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		pattern[day.Weekday()].Occurrences++
	}

	for _, e := range entries {
		ts := e.Timestamp.In(loc)
		if ts.Before(start) || !ts.Before(end.AddDate(0, 0, 1)) {
			continue
		}
		pattern[ts.Weekday()].TotalWeight += e.Weight
	}
	for d := range pattern {
		if pattern[d].Occurrences > 0 {
			pattern[d].AverageWeight = pattern[d].TotalWeight / float64(pattern[d].Occurrences)
		}
	}
	return pattern
}

// IntervalBucket counts entries whose weight falls in [Min, Max)
type IntervalBucket struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"` // 0 when Open
	Open    bool    `json:"open"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// DefaultWeightBounds are the interval edges, in pounds, used by the dashboard
var DefaultWeightBounds = []float64{0, 50, 100, 200, 400}

// WeightIntervals buckets entries by weight. bounds must be ascending; weights
// below bounds[0] land in the first bucket and the last bucket is open-ended.
func WeightIntervals(entries []models.PickupEntry, bounds []float64) []IntervalBucket {
	if len(bounds) == 0 {
		bounds = DefaultWeightBounds
	}
	buckets := make([]IntervalBucket, len(bounds))
	for i, lo := range bounds {
		buckets[i].Min = lo
		if i+1 < len(bounds) {
			buckets[i].Max = bounds[i+1]
		} else {
			buckets[i].Open = true
		}
	}

	for _, e := range entries {
		idx := 0
		for i := len(bounds) - 1; i >= 0; i-- {
			if e.Weight >= bounds[i] {
				idx = i
				break
			}
		}
		buckets[idx].Count++
	}
	for i := range buckets {
		buckets[i].Percent = Round1(Percent(float64(buckets[i].Count), float64(len(entries))))
	}
	return buckets
}

// TotalWeight sums entry weights, skipping NaN and negative values
func TotalWeight(entries []models.PickupEntry) float64 {
	total := 0.0
	for _, e := range entries {
		if math.IsNaN(e.Weight) || e.Weight < 0 {
			continue
		}
		total += e.Weight
	}
	return total
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
