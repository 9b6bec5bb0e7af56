package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/analytics"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/services"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateInvoiceRequest is the body of POST /invoices
type CreateInvoiceRequest struct {
	ClientID       uint       `json:"client_id" binding:"required"`
	Date           *time.Time `json:"date"`
	DeliveryDate   *time.Time `json:"delivery_date"`
	TotalWeight    float64    `json:"total_weight" binding:"gte=0"`
	SpecialService bool       `json:"special_service"`
	Notes          string     `json:"notes"`
}

// PatchInvoiceRequest is the body of PATCH /invoices/:id
type PatchInvoiceRequest struct {
	Revision       uint       `json:"revision" binding:"required"`
	DeliveryDate   *time.Time `json:"delivery_date"`
	TotalWeight    *float64   `json:"total_weight"`
	SpecialService *bool      `json:"special_service"`
	Notes          *string    `json:"notes"`
}

// InvoiceSummary is the response of GET /invoices/:id/summary
type InvoiceSummary struct {
	InvoiceID     uint                          `json:"invoice_id"`
	ClientName    string                        `json:"client_name"`
	Products      []analytics.ProductTotal      `json:"products"`
	CategorySplit analytics.CategorySplitResult `json:"category_split"`
	TotalItems    int                           `json:"total_items"`
	TotalWeight   float64                       `json:"total_weight"`
	Amount        decimal.Decimal               `json:"amount"`
	Carts         int                           `json:"carts"`
	Verified      bool                          `json:"verified"`
	Locked        bool                          `json:"locked"`
	RulesVersion  uint                          `json:"rules_version"`
}

func invoiceService() *services.InvoiceService {
	return services.NewInvoiceService(config.GetDB())
}

// CreateInvoice handles POST /api/v1/invoices
func CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	in := services.NewInvoice{
		ClientID:       req.ClientID,
		DeliveryDate:   req.DeliveryDate,
		TotalWeight:    req.TotalWeight,
		SpecialService: req.SpecialService,
		Notes:          req.Notes,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	invoice, err := invoiceService().CreateInvoice(in)
	if err != nil {
		respondServiceError(c, err, "INVOICE")
		return
	}
	respondData(c, http.StatusCreated, invoice)
}

// ListInvoices handles GET /api/v1/invoices with optional ?client_id=,
// ?from=, ?to=, ?verified= and ?locked= filters, newest first
func ListInvoices(c *gin.Context) {
	page, limit := pagination(c)
	query := config.GetDB().Model(&models.Invoice{})

	query, ok := filterClient(c, query)
	if !ok {
		return
	}
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, ok := dateRange(c, 30)
		if !ok {
			return
		}
		query = query.Where("date >= ? AND date < ?", from, to)
	}
	switch c.Query("verified") {
	case "true":
		query = query.Where("verified_at IS NOT NULL")
	case "false":
		query = query.Where("verified_at IS NULL")
	}
	switch c.Query("locked") {
	case "true":
		query = query.Where("locked_at IS NOT NULL")
	case "false":
		query = query.Where("locked_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count invoices", nil)
		return
	}

	var invoices []models.Invoice
	err := query.Order("date DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&invoices).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list invoices", nil)
		return
	}
	respondPage(c, invoices, page, limit, total)
}

// GetInvoice handles GET /api/v1/invoices/:id
func GetInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := invoiceService().GetInvoice(id)
	if err != nil {
		respondServiceError(c, err, "INVOICE")
		return
	}
	respondData(c, http.StatusOK, invoice)
}

// PatchInvoice handles PATCH /api/v1/invoices/:id
func PatchInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req PatchInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	invoice, err := invoiceService().PatchInvoice(id, req.Revision, services.InvoicePatch{
		DeliveryDate:   req.DeliveryDate,
		TotalWeight:    req.TotalWeight,
		SpecialService: req.SpecialService,
		Notes:          req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, "INVOICE")
		return
	}
	respondData(c, http.StatusOK, invoice)
}

// DeleteInvoice handles DELETE /api/v1/invoices/:id
func DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := invoiceService().DeleteInvoice(id); err != nil {
		respondServiceError(c, err, "INVOICE")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// VerifyInvoice handles POST /api/v1/invoices/:id/verify
func VerifyInvoice(c *gin.Context) {
	invoiceAction(c, func(s *services.InvoiceService, id uint) (*models.Invoice, error) {
		return s.VerifyInvoice(id, actorName(c))
	})
}

// LockInvoice handles POST /api/v1/invoices/:id/lock
func LockInvoice(c *gin.Context) {
	invoiceAction(c, func(s *services.InvoiceService, id uint) (*models.Invoice, error) {
		return s.LockInvoice(id, actorName(c))
	})
}

// UnlockInvoice handles POST /api/v1/invoices/:id/unlock (admin)
func UnlockInvoice(c *gin.Context) {
	invoiceAction(c, func(s *services.InvoiceService, id uint) (*models.Invoice, error) {
		return s.UnlockInvoice(id)
	})
}

func invoiceAction(c *gin.Context, action func(*services.InvoiceService, uint) (*models.Invoice, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := action(invoiceService(), id)
	if err != nil {
		respondServiceError(c, err, "INVOICE")
		return
	}
	respondData(c, http.StatusOK, invoice)
}

// GetInvoiceSummary handles GET /api/v1/invoices/:id/summary
func GetInvoiceSummary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := invoiceService().GetInvoice(id)
	if err != nil {
		respondServiceError(c, err, "INVOICE")
		return
	}

	rules := ruleTable()
	items := analytics.InvoiceItems(*invoice)
	respondData(c, http.StatusOK, InvoiceSummary{
		InvoiceID:     invoice.ID,
		ClientName:    invoice.ClientName,
		Products:      analytics.ProductTotals(items),
		CategorySplit: analytics.CategorySplit(items, rules),
		TotalItems:    analytics.InvoiceTotalItems(*invoice),
		TotalWeight:   invoice.TotalWeight,
		Amount:        analytics.InvoiceAmount(*invoice),
		Carts:         len(invoice.Carts),
		Verified:      invoice.IsVerified(),
		Locked:        invoice.IsLocked(),
		RulesVersion:  rules.Version,
	})
}

// DownloadTicket handles GET /api/v1/invoices/:id/ticket. The client's print
// configuration may be overridden with ?content_display= and ?paper_size=.
func DownloadTicket(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := invoiceService().GetInvoice(id)
	if err != nil {
		respondServiceError(c, err, "INVOICE")
		return
	}

	// Deleted clients still get their historical tickets
	var client models.Client
	if err := config.GetDB().Unscoped().First(&client, invoice.ClientID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load client", nil)
			return
		}
		client = models.Client{ID: invoice.ClientID, Name: invoice.ClientName}
	}

	cfg := client.EffectivePrintConfig()
	if mode := c.Query("content_display"); mode != "" {
		cfg.ContentDisplay = mode
	}
	if size := c.Query("paper_size"); size != "" {
		cfg.PaperSize = size
	}

	pdf, err := services.RenderDeliveryTicketBytes(invoice, &client, cfg, ruleTable())
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			respondError(c, http.StatusBadRequest, "INVALID_PRINT_CONFIG", err.Error(), nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "PDF_ERROR", "Failed to render delivery ticket", nil)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="ticket-%d.pdf"`, invoice.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
