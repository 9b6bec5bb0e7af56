package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/analytics"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/services"
)

// UpdateSettingsRequest is the body of PUT /settings. Version is the
// settings version the admin edited; omitted fields are kept.
type UpdateSettingsRequest struct {
	Version                 uint                        `json:"version" binding:"required"`
	ShiftStarts             map[string]string           `json:"shift_starts"`
	ClassificationOverrides map[string]string           `json:"classification_overrides"`
	ClassificationRules     []models.ClassificationRule `json:"classification_rules"`
	DefaultCategory         *string                     `json:"default_category"`
}

// ruleTable returns the loaded classification table, or the built-in one
// when no settings store is running
func ruleTable() analytics.RuleTable {
	if store := services.GetSettingsStore(); store != nil {
		return store.RuleTable()
	}
	return analytics.DefaultRuleTable()
}

// shiftStart resolves an area's shift start on day, falling back to midnight
func shiftStart(area string, day time.Time) time.Time {
	loc := location()
	if store := services.GetSettingsStore(); store != nil {
		if start, ok := store.ShiftStart(area, day, loc); ok {
			return start
		}
	}
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func settingsStore(c *gin.Context) (*services.SettingsStore, bool) {
	store := services.GetSettingsStore()
	if store == nil {
		respondError(c, http.StatusServiceUnavailable, "SETTINGS_UNAVAILABLE", "Operator settings are not loaded", nil)
		return nil, false
	}
	return store, true
}

// GetSettings handles GET /api/v1/settings
func GetSettings(c *gin.Context) {
	store, ok := settingsStore(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, store.Current())
}

// UpdateSettings handles PUT /api/v1/settings (admin)
func UpdateSettings(c *gin.Context) {
	store, ok := settingsStore(c)
	if !ok {
		return
	}
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	settings, err := store.Update(req.Version, services.SettingsChange{
		ShiftStarts:             req.ShiftStarts,
		ClassificationOverrides: req.ClassificationOverrides,
		ClassificationRules:     req.ClassificationRules,
		DefaultCategory:         req.DefaultCategory,
	}, actorName(c))
	if err != nil {
		respondServiceError(c, err, "SETTINGS")
		return
	}
	respondData(c, http.StatusOK, settings)
}

// ReloadSettings handles POST /api/v1/settings/reload (admin)
func ReloadSettings(c *gin.Context) {
	store, ok := settingsStore(c)
	if !ok {
		return
	}
	settings, err := store.Reload()
	if err != nil {
		respondServiceError(c, err, "SETTINGS")
		return
	}
	respondData(c, http.StatusOK, settings)
}

// ClassifyProduct handles GET /api/v1/settings/classify?name=
func ClassifyProduct(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name query parameter is required", nil)
		return
	}
	rules := ruleTable()
	respondData(c, http.StatusOK, gin.H{
		"name":     name,
		"category": rules.Classify(name),
		"version":  rules.Version,
	})
}
