package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/services"
)

// CreateAlertRequest is the body of POST /alerts
type CreateAlertRequest struct {
	Type      string `json:"type" binding:"required"`
	Severity  string `json:"severity" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Component string `json:"component"`
}

// ResolveAlertRequest is the optional body of POST /alerts/:id/resolve
type ResolveAlertRequest struct {
	Notes string `json:"notes"`
}

func alertService() *services.AlertService {
	return services.NewAlertService(config.GetDB(), nil)
}

// CreateAlert handles POST /api/v1/alerts
func CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	alert, _, err := alertService().RaiseAlert(services.NewAlert{
		Type:      req.Type,
		Severity:  req.Severity,
		Message:   req.Message,
		Component: req.Component,
		CreatedBy: actorName(c),
	})
	if err != nil {
		respondServiceError(c, err, "ALERT")
		return
	}
	respondData(c, http.StatusCreated, alert)
}

// ListAlerts handles GET /api/v1/alerts with optional ?type=, ?severity=,
// ?resolved= and ?unread= filters, newest first
func ListAlerts(c *gin.Context) {
	page, limit := pagination(c)
	query := config.GetDB().Model(&models.SystemAlert{})

	if alertType := c.Query("type"); alertType != "" {
		if !models.IsValidAlertType(alertType) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown alert type", alertType)
			return
		}
		query = query.Where("type = ?", alertType)
	}
	if severity := c.Query("severity"); severity != "" {
		if models.SeverityRank(severity) == 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown severity", severity)
			return
		}
		query = query.Where("severity = ?", severity)
	}
	switch c.Query("resolved") {
	case "true":
		query = query.Where("is_resolved = ?", true)
	case "false":
		query = query.Where("is_resolved = ?", false)
	}
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count alerts", nil)
		return
	}
	var alerts []models.SystemAlert
	err := query.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&alerts).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list alerts", nil)
		return
	}
	respondPage(c, alerts, page, limit, total)
}

// MarkAlertRead handles POST /api/v1/alerts/:id/read
func MarkAlertRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	alert, err := alertService().MarkRead(id)
	if err != nil {
		respondServiceError(c, err, "ALERT")
		return
	}
	respondData(c, http.StatusOK, alert)
}

// ResolveAlert handles POST /api/v1/alerts/:id/resolve
func ResolveAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ResolveAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}
	}
	alert, err := alertService().Resolve(id, actorName(c), req.Notes)
	if err != nil {
		respondServiceError(c, err, "ALERT")
		return
	}
	respondData(c, http.StatusOK, alert)
}

// DeleteAlert handles DELETE /api/v1/alerts/:id
func DeleteAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result := config.GetDB().Delete(&models.SystemAlert{}, id)
	if result.Error != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete alert", nil)
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "ALERT_NOT_FOUND", "Alert not found", nil)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
