package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/middleware"
	"github.com/kendall-kelly/linen-ops-api/services"
)

const dateLayout = "2006-01-02"

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{"code": code, "message": message}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{"success": false, "error": body})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondValidation(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
}

// respondServiceError maps service sentinel errors to status codes. what
// names the resource in NOT_FOUND codes, e.g. "INVOICE".
func respondServiceError(c *gin.Context, err error, what string) {
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &conflict):
		respondError(c, http.StatusConflict, "REVISION_CONFLICT", "The record was changed by someone else", conflict.Current)
	case errors.Is(err, services.ErrRevisionConflict):
		respondError(c, http.StatusConflict, "REVISION_CONFLICT", "The record was changed by someone else", nil)
	case errors.Is(err, services.ErrSettingsConflict):
		respondError(c, http.StatusConflict, "SETTINGS_VERSION_CONFLICT", "Settings were changed by someone else; reload and retry", err.Error())
	case errors.Is(err, services.ErrInvoiceLocked):
		respondError(c, http.StatusLocked, "INVOICE_LOCKED", "The invoice is locked", nil)
	case errors.Is(err, services.ErrValidation):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, notFoundCode(err, what), "Record not found", err.Error())
	default:
		log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to process the request", nil)
	}
}

// notFoundCode prefers the resource named in the error ("cart 3: record not
// found" gives CART_NOT_FOUND) over the handler's default
func notFoundCode(err error, what string) string {
	msg := err.Error()
	for _, resource := range []string{"pickup group", "pickup entry", "invoice", "cart", "item", "product", "client", "alert"} {
		if strings.HasPrefix(msg, resource+" ") {
			return strings.ToUpper(strings.ReplaceAll(resource, " ", "_")) + "_NOT_FOUND"
		}
	}
	return what + "_NOT_FOUND"
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+param, c.Param(param))
		return 0, false
	}
	return uint(id), true
}

// parseRevision reads the required ?revision= query parameter of DELETEs
func parseRevision(c *gin.Context) (uint, bool) {
	rev, err := strconv.ParseUint(c.Query("revision"), 10, 64)
	if err != nil || rev == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "revision query parameter is required", c.Query("revision"))
		return 0, false
	}
	return uint(rev), true
}

// actorName identifies the employee making the request in audit fields
func actorName(c *gin.Context) string {
	if user, err := middleware.CurrentUser(c); err == nil {
		return user.Name
	}
	if id, err := middleware.GetUserID(c); err == nil {
		return id
	}
	return "unknown"
}

func location() *time.Location {
	return config.GetConfig().Location()
}

// dateRange reads ?from= and ?to= (YYYY-MM-DD in the business timezone).
// The returned end is exclusive: midnight after the inclusive to date.
func dateRange(c *gin.Context, defaultDays int) (from, to time.Time, ok bool) {
	loc := location()
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	to = today.AddDate(0, 0, 1)
	if raw := c.Query("to"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "to must be YYYY-MM-DD", raw)
			return time.Time{}, time.Time{}, false
		}
		to = day.AddDate(0, 0, 1)
	}

	from = to.AddDate(0, 0, -defaultDays)
	if raw := c.Query("from"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "from must be YYYY-MM-DD", raw)
			return time.Time{}, time.Time{}, false
		}
		from = day
	}

	if !from.Before(to) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "from must not be after to", nil)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// pagination reads ?page= and ?limit= (defaults 1 and 10, limit capped at 100)
func pagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func respondPage(c *gin.Context, data interface{}, page, limit int, total int64) {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}
