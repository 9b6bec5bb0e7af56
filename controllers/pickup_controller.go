package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/analytics"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/middleware"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/services"
	"gorm.io/gorm"
)

// CreateGroupRequest is the body of POST /pickup-groups
type CreateGroupRequest struct {
	ClientID uint `json:"client_id" binding:"required"`
}

// PatchGroupRequest is the body of PATCH /pickup-groups/:id
type PatchGroupRequest struct {
	Status          *string  `json:"status"`
	NumCarts        *int     `json:"num_carts"`
	SegregatedCarts *int     `json:"segregated_carts"`
	TotalWeight     *float64 `json:"total_weight"`
}

// CreateEntryRequest is the body of POST /pickup-entries
type CreateEntryRequest struct {
	ClientID  uint       `json:"client_id" binding:"required"`
	GroupID   *uint      `json:"group_id"`
	Weight    float64    `json:"weight" binding:"required"`
	CartCount int        `json:"cart_count"`
	Timestamp *time.Time `json:"timestamp"`
}

// GroupView is a pickup group with its derived tunnel progress
type GroupView struct {
	models.PickupGroup
	Progress analytics.TunnelProgressResult `json:"progress"`
}

func newGroupView(group models.PickupGroup) GroupView {
	return GroupView{PickupGroup: group, Progress: analytics.TunnelProgress(group)}
}

func pickupService() *services.PickupService {
	return services.NewPickupService(config.GetDB())
}

// CreatePickupGroup handles POST /api/v1/pickup-groups
func CreatePickupGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	group, err := pickupService().CreateGroup(req.ClientID)
	if err != nil {
		respondServiceError(c, err, "CLIENT")
		return
	}
	respondData(c, http.StatusCreated, newGroupView(*group))
}

// ListPickupGroups handles GET /api/v1/pickup-groups with optional
// ?status=, ?client_id= and ?washing_type= filters
func ListPickupGroups(c *gin.Context) {
	query := config.GetDB().Model(&models.PickupGroup{})
	if status := c.Query("status"); status != "" {
		if !models.IsValidGroupStatus(status) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status", status)
			return
		}
		query = query.Where("status = ?", status)
	}
	if washingType := c.Query("washing_type"); washingType != "" {
		query = query.Where("washing_type = ?", washingType)
	}
	query, ok := filterClient(c, query)
	if !ok {
		return
	}

	var groups []models.PickupGroup
	if err := query.Order("start_time DESC").Find(&groups).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list pickup groups", nil)
		return
	}
	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, newGroupView(g))
	}
	respondData(c, http.StatusOK, views)
}

// GetPickupGroup handles GET /api/v1/pickup-groups/:id
func GetPickupGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	group, err := pickupService().GetGroup(id)
	if err != nil {
		respondServiceError(c, err, "PICKUP_GROUP")
		return
	}
	respondData(c, http.StatusOK, newGroupView(*group))
}

// UpdatePickupGroup handles PATCH /api/v1/pickup-groups/:id
func UpdatePickupGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req PatchGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	group, err := pickupService().UpdateGroup(id, services.GroupPatch{
		Status:          req.Status,
		NumCarts:        req.NumCarts,
		SegregatedCarts: req.SegregatedCarts,
		TotalWeight:     req.TotalWeight,
	})
	if err != nil {
		respondServiceError(c, err, "PICKUP_GROUP")
		return
	}
	respondData(c, http.StatusOK, newGroupView(*group))
}

// DeletePickupGroup handles DELETE /api/v1/pickup-groups/:id
func DeletePickupGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := pickupService().DeleteGroup(id); err != nil {
		respondServiceError(c, err, "PICKUP_GROUP")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// MarkSegregationDone handles POST /api/v1/pickup-groups/:id/segregation-done
func MarkSegregationDone(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	done, err := pickupService().MarkSegregationDone(id, actorName(c))
	if err != nil {
		respondServiceError(c, err, "PICKUP_GROUP")
		return
	}
	respondData(c, http.StatusCreated, done)
}

// CreatePickupEntry handles POST /api/v1/pickup-entries. The current
// employee is recorded as the driver.
func CreatePickupEntry(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	in := services.NewPickupEntry{
		ClientID:  req.ClientID,
		GroupID:   req.GroupID,
		Weight:    req.Weight,
		CartCount: req.CartCount,
		Timestamp: req.Timestamp,
	}
	if user, err := middleware.CurrentUser(c); err == nil {
		in.Driver = user
	}

	entry, err := pickupService().CreateEntry(in)
	if err != nil {
		respondServiceError(c, err, "CLIENT")
		return
	}
	respondData(c, http.StatusCreated, entry)
}

// ListPickupEntries handles GET /api/v1/pickup-entries with ?from=, ?to=
// (default last 7 days), ?client_id= and ?group_id=
func ListPickupEntries(c *gin.Context) {
	page, limit := pagination(c)
	from, to, ok := dateRange(c, 7)
	if !ok {
		return
	}
	query := config.GetDB().Model(&models.PickupEntry{}).Where("timestamp >= ? AND timestamp < ?", from, to)
	if query, ok = filterClient(c, query); !ok {
		return
	}
	if raw := c.Query("group_id"); raw != "" {
		groupID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "group_id must be numeric", raw)
			return
		}
		query = query.Where("group_id = ?", groupID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count pickup entries", nil)
		return
	}
	var entries []models.PickupEntry
	err := query.Order("timestamp DESC").Offset((page - 1) * limit).Limit(limit).Find(&entries).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list pickup entries", nil)
		return
	}
	respondPage(c, entries, page, limit, total)
}

// DeletePickupEntry handles DELETE /api/v1/pickup-entries/:id
func DeletePickupEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := pickupService().DeleteEntry(id); err != nil {
		respondServiceError(c, err, "PICKUP_ENTRY")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// ListSegregationLogs handles GET /api/v1/segregation-logs with ?from=,
// ?to= (default last 7 days) and ?client_id=
func ListSegregationLogs(c *gin.Context) {
	from, to, ok := dateRange(c, 7)
	if !ok {
		return
	}
	query := config.GetDB().Model(&models.SegregationDoneLog{}).Where("done_at >= ? AND done_at < ?", from, to)
	if query, ok = filterClient(c, query); !ok {
		return
	}
	var logs []models.SegregationDoneLog
	if err := query.Order("done_at DESC").Find(&logs).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list segregation logs", nil)
		return
	}
	respondData(c, http.StatusOK, logs)
}

// filterClient applies ?client_id= when present
func filterClient(c *gin.Context, query *gorm.DB) (*gorm.DB, bool) {
	raw := c.Query("client_id")
	if raw == "" {
		return query, true
	}
	clientID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "client_id must be numeric", raw)
		return nil, false
	}
	return query.Where("client_id = ?", clientID), true
}
