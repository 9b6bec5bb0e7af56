package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClientRequest is the body of POST /clients and PUT /clients/:id.
// On PUT, omitted fields keep their stored value.
type ClientRequest struct {
	Name                    *string             `json:"name"`
	IsRented                *bool               `json:"is_rented"`
	WashingType             *string             `json:"washing_type" binding:"omitempty,oneof=Tunnel Conventional"`
	Segregation             *bool               `json:"segregation"`
	BillingType             *string             `json:"billing_type" binding:"omitempty,oneof=byWeight byItem"`
	NeedsInvoice            *bool               `json:"needs_invoice"`
	CompletedOptionPosition *string             `json:"completed_option_position" binding:"omitempty,oneof=top bottom"`
	PrintConfig             *models.PrintConfig `json:"print_config"`
	SelectedProducts        *[]uint             `json:"selected_products"`
}

// CreateClient handles POST /api/v1/clients
func CreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name is required", nil)
		return
	}

	client := models.Client{
		WashingType:             models.WashingConventional,
		BillingType:             models.BillingByItem,
		CompletedOptionPosition: "bottom",
		PrintConfig:             datatypes.NewJSONType(models.DefaultPrintConfig()),
	}
	if !applyClientRequest(c, &client, req) {
		return
	}

	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("SelectedProducts").Create(&client).Error; err != nil {
			return err
		}
		return replaceSelectedProducts(tx, &client, req.SelectedProducts)
	})
	if err != nil {
		respondClientError(c, err)
		return
	}
	services.AttachClientImageURL(c.Request.Context(), &client)
	respondData(c, http.StatusCreated, client)
}

// ListClients handles GET /api/v1/clients with optional ?washing_type= and ?needs_invoice=
func ListClients(c *gin.Context) {
	query := config.GetDB().Preload("SelectedProducts").Order("name")
	if washingType := c.Query("washing_type"); washingType != "" {
		query = query.Where("washing_type = ?", washingType)
	}
	if needsInvoice := c.Query("needs_invoice"); needsInvoice != "" {
		query = query.Where("needs_invoice = ?", needsInvoice == "true")
	}

	var clients []models.Client
	if err := query.Find(&clients).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list clients", nil)
		return
	}
	for i := range clients {
		services.AttachClientImageURL(c.Request.Context(), &clients[i])
	}
	respondData(c, http.StatusOK, clients)
}

// GetClient handles GET /api/v1/clients/:id
func GetClient(c *gin.Context) {
	client, ok := loadClient(c)
	if !ok {
		return
	}
	services.AttachClientImageURL(c.Request.Context(), client)
	respondData(c, http.StatusOK, client)
}

// UpdateClient handles PUT /api/v1/clients/:id
func UpdateClient(c *gin.Context) {
	client, ok := loadClient(c)
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name must not be empty", nil)
		return
	}
	if !applyClientRequest(c, client, req) {
		return
	}

	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("SelectedProducts").Save(client).Error; err != nil {
			return err
		}
		return replaceSelectedProducts(tx, client, req.SelectedProducts)
	})
	if err != nil {
		respondClientError(c, err)
		return
	}
	services.AttachClientImageURL(c.Request.Context(), client)
	respondData(c, http.StatusOK, client)
}

// DeleteClient handles DELETE /api/v1/clients/:id. Invoices keep the
// denormalized client name.
func DeleteClient(c *gin.Context) {
	client, ok := loadClient(c)
	if !ok {
		return
	}
	err := config.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(client).Association("SelectedProducts").Clear(); err != nil {
			return err
		}
		return tx.Delete(client).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete client", nil)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": client.ID, "deleted": true})
}

// ToggleNeedsInvoice handles PATCH /api/v1/clients/:id/needs-invoice. The
// flip happens in SQL so concurrent toggles never read a stale value.
func ToggleNeedsInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	db := config.GetDB()
	result := db.Model(&models.Client{}).Where("id = ?", id).
		Update("needs_invoice", gorm.Expr("NOT needs_invoice"))
	if result.Error != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update client", nil)
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found", nil)
		return
	}
	client, ok := loadClient(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, client)
}

// UpdatePrintConfig handles PUT /api/v1/clients/:id/print-config
func UpdatePrintConfig(c *gin.Context) {
	client, ok := loadClient(c)
	if !ok {
		return
	}
	var cfg models.PrintConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondValidation(c, err)
		return
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PRINT_CONFIG", err.Error(), nil)
		return
	}

	client.PrintConfig = datatypes.NewJSONType(cfg)
	if err := config.GetDB().Model(client).Update("print_config", client.PrintConfig).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save print configuration", nil)
		return
	}
	respondData(c, http.StatusOK, cfg)
}

// UploadClientImage handles POST /api/v1/clients/:id/image (multipart field "image")
func UploadClientImage(c *gin.Context) {
	client, ok := loadClient(c)
	if !ok {
		return
	}
	key, ok := uploadImage(c, services.FolderClients)
	if !ok {
		return
	}
	if err := config.GetDB().Model(client).Update("image_s3_key", key).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save image", nil)
		return
	}
	client.ImageS3Key = &key
	services.AttachClientImageURL(c.Request.Context(), client)
	respondData(c, http.StatusOK, client)
}

func loadClient(c *gin.Context) (*models.Client, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	var client models.Client
	if err := config.GetDB().Preload("SelectedProducts").First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load client", nil)
		}
		return nil, false
	}
	return &client, true
}

// applyClientRequest copies the non-nil request fields onto client
func applyClientRequest(c *gin.Context, client *models.Client, req ClientRequest) bool {
	if req.Name != nil {
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.IsRented != nil {
		client.IsRented = *req.IsRented
	}
	if req.WashingType != nil {
		client.WashingType = *req.WashingType
	}
	if req.Segregation != nil {
		client.Segregation = *req.Segregation
	}
	if req.BillingType != nil {
		client.BillingType = *req.BillingType
	}
	if req.NeedsInvoice != nil {
		client.NeedsInvoice = *req.NeedsInvoice
	}
	if req.CompletedOptionPosition != nil {
		client.CompletedOptionPosition = *req.CompletedOptionPosition
	}
	if req.PrintConfig != nil {
		cfg := req.PrintConfig.WithDefaults()
		if err := cfg.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_PRINT_CONFIG", err.Error(), nil)
			return false
		}
		client.PrintConfig = datatypes.NewJSONType(cfg)
	}
	return true
}

var errUnknownProduct = errors.New("selected_products references an unknown product")

// replaceSelectedProducts sets the client's product list when ids is non-nil
func replaceSelectedProducts(tx *gorm.DB, client *models.Client, ids *[]uint) error {
	if ids == nil {
		return nil
	}
	products := []models.Product{}
	if len(*ids) > 0 {
		if err := tx.Where("id IN ?", *ids).Order("name").Find(&products).Error; err != nil {
			return err
		}
		if len(products) != len(uniqueIDs(*ids)) {
			return errUnknownProduct
		}
	}
	association := tx.Model(client).Association("SelectedProducts")
	if len(products) == 0 {
		if err := association.Clear(); err != nil {
			return err
		}
	} else if err := association.Replace(products); err != nil {
		return err
	}
	client.SelectedProducts = products
	return nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func respondClientError(c *gin.Context, err error) {
	if errors.Is(err, errUnknownProduct) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save client", nil)
}
