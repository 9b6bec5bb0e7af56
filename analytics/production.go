package analytics

import (
	"sort"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// HourBucket is the quantity produced during one clock hour
type HourBucket struct {
	Hour     int `json:"hour"`
	Quantity int `json:"quantity"`
}

// ProductionRate summarises output since the start of a shift
type ProductionRate struct {
	Category     string       `json:"category,omitempty"`
	ShiftStart   time.Time    `json:"shift_start"`
	Total        int          `json:"total"`
	ElapsedHours float64      `json:"elapsed_hours"`
	PerHour      float64      `json:"per_hour"`
	Hours        []HourBucket `json:"hours"`
}

// HourlyProduction buckets items added at or after shiftStart (and not after
// now) by hour of day in loc. PerHour is Total divided by the hours elapsed
// between shiftStart and now, and 0 when no time has elapsed.
func HourlyProduction(items []models.CartItem, shiftStart, now time.Time, loc *time.Location) ProductionRate {
	if loc == nil {
		loc = time.UTC
	}
	rate := ProductionRate{ShiftStart: shiftStart}
	byHour := make(map[int]int)
	for _, item := range items {
		if item.AddedAt.Before(shiftStart) || item.AddedAt.After(now) {
			continue
		}
		byHour[item.AddedAt.In(loc).Hour()] += item.Quantity
		rate.Total += item.Quantity
	}

	for hour, qty := range byHour {
		rate.Hours = append(rate.Hours, HourBucket{Hour: hour, Quantity: qty})
	}
	sort.Slice(rate.Hours, func(i, j int) bool { return rate.Hours[i].Hour < rate.Hours[j].Hour })

	elapsed := now.Sub(shiftStart).Hours()
	if elapsed > 0 {
		rate.ElapsedHours = Round1(elapsed)
		rate.PerHour = Round1(float64(rate.Total) / elapsed)
	}
	return rate
}

// ProductionByCategory runs HourlyProduction separately for each category,
// using the shift start configured for that category's area.
func ProductionByCategory(items []models.CartItem, rules RuleTable, shiftStarts map[string]time.Time, now time.Time, loc *time.Location) map[string]ProductionRate {
	grouped := make(map[string][]models.CartItem)
	for _, item := range items {
		category := rules.Classify(item.ProductName)
		grouped[category] = append(grouped[category], item)
	}

	out := make(map[string]ProductionRate)
	for _, category := range []string{models.CategoryMangle, models.CategoryDoblado} {
		start, ok := shiftStarts[category]
		if !ok {
			start = startOfDay(now, loc)
		}
		rate := HourlyProduction(grouped[category], start, now, loc)
		rate.Category = category
		out[category] = rate
	}
	return out
}
