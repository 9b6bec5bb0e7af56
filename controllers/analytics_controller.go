package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/analytics"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
)

// forecastHistoryDays covers the four previous same-weekdays Forecast looks at
const forecastHistoryDays = 35

// GetWeeklyPickups handles GET /api/v1/analytics/pickups/weekly
// (?from=, ?to=, default last 28 days; ?client_id=)
func GetWeeklyPickups(c *gin.Context) {
	from, to, ok := dateRange(c, 28)
	if !ok {
		return
	}
	entries, ok := pickupEntries(c, from, to)
	if !ok {
		return
	}
	loc := location()
	respondData(c, http.StatusOK, gin.H{
		"from":         from.Format(dateLayout),
		"to":           to.AddDate(0, 0, -1).Format(dateLayout),
		"pattern":      analytics.WeeklyPattern(entries, from, to.AddDate(0, 0, -1), loc),
		"buckets":      analytics.DayOfWeekBuckets(entries, loc),
		"entries":      len(entries),
		"total_weight": analytics.Round1(analytics.TotalWeight(entries)),
	})
}

// GetWeightIntervals handles GET /api/v1/analytics/pickups/weight-intervals
// (?from=, ?to=, default last 28 days; ?bounds=0,50,100)
func GetWeightIntervals(c *gin.Context) {
	bounds, ok := parseBounds(c)
	if !ok {
		return
	}
	from, to, ok := dateRange(c, 28)
	if !ok {
		return
	}
	entries, ok := pickupEntries(c, from, to)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"entries":   len(entries),
		"intervals": analytics.WeightIntervals(entries, bounds),
	})
}

// GetProduction handles GET /api/v1/analytics/production (?date=, default
// today). Each category is measured from its area's configured shift start.
func GetProduction(c *gin.Context) {
	day, ok := parseDay(c, "date", time.Now())
	if !ok {
		return
	}
	loc := location()
	dayEnd := day.AddDate(0, 0, 1)
	now := time.Now().In(loc)
	if now.After(dayEnd) {
		now = dayEnd
	}

	var items []models.CartItem
	err := config.GetDB().
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Joins("JOIN invoices ON invoices.id = carts.invoice_id AND invoices.deleted_at IS NULL").
		Where("cart_items.added_at >= ? AND cart_items.added_at < ?", day, dayEnd).
		Find(&items).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load production", nil)
		return
	}

	shiftStarts := map[string]time.Time{
		models.CategoryMangle:  shiftStart(models.CategoryMangle, day),
		models.CategoryDoblado: shiftStart(models.CategoryDoblado, day),
	}
	rules := ruleTable()
	respondData(c, http.StatusOK, gin.H{
		"date":          day.Format(dateLayout),
		"categories":    analytics.ProductionByCategory(items, rules, shiftStarts, now, loc),
		"rules_version": rules.Version,
	})
}

// GetForecast handles GET /api/v1/analytics/forecast (?date=, default tomorrow)
func GetForecast(c *gin.Context) {
	target, ok := parseDay(c, "date", time.Now().AddDate(0, 0, 1))
	if !ok {
		return
	}
	entries, ok := pickupEntries(c, target.AddDate(0, 0, -forecastHistoryDays), target)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, analytics.Forecast(analytics.DailyWeights(entries, location()), target))
}

// GetEmployeeAlerts handles GET /api/v1/analytics/alerts/employees
// (?from=, ?to=, default last 30 days)
func GetEmployeeAlerts(c *gin.Context) {
	from, to, ok := dateRange(c, 30)
	if !ok {
		return
	}
	var alerts []models.SystemAlert
	if err := config.GetDB().Where("created_at >= ? AND created_at < ?", from, to).Find(&alerts).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load alerts", nil)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"total":      len(alerts),
		"employees":  analytics.EmployeeAlertRatios(alerts),
		"severities": analytics.SeverityCounts(alerts),
	})
}

// GetClientSummaries handles GET /api/v1/analytics/clients
// (?from=, ?to=, default last 30 days, by invoice date)
func GetClientSummaries(c *gin.Context) {
	from, to, ok := dateRange(c, 30)
	if !ok {
		return
	}
	var invoices []models.Invoice
	err := config.GetDB().
		Preload("Carts").
		Preload("Carts.Items").
		Where("date >= ? AND date < ?", from, to).
		Find(&invoices).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load invoices", nil)
		return
	}
	respondData(c, http.StatusOK, analytics.ClientSummaries(invoices))
}

func pickupEntries(c *gin.Context, from, to time.Time) ([]models.PickupEntry, bool) {
	query := config.GetDB().Where("timestamp >= ? AND timestamp < ?", from, to)
	query, ok := filterClient(c, query)
	if !ok {
		return nil, false
	}
	var entries []models.PickupEntry
	if err := query.Find(&entries).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load pickup entries", nil)
		return nil, false
	}
	return entries, true
}

// parseDay reads a YYYY-MM-DD query parameter as midnight in the business timezone
func parseDay(c *gin.Context, param string, def time.Time) (time.Time, bool) {
	loc := location()
	raw := c.Query(param)
	if raw == "" {
		y, m, d := def.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	}
	day, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", param+" must be YYYY-MM-DD", raw)
		return time.Time{}, false
	}
	return day, true
}

// parseBounds reads ?bounds= as ascending, comma separated weights
func parseBounds(c *gin.Context) ([]float64, bool) {
	raw := c.Query("bounds")
	if raw == "" {
		return analytics.DefaultWeightBounds, true
	}
	var bounds []float64
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v < 0 || (len(bounds) > 0 && v <= bounds[len(bounds)-1]) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "bounds must be ascending non-negative numbers", raw)
			return nil, false
		}
		bounds = append(bounds, v)
	}
	return bounds, true
}
