package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/services"
	"github.com/shopspring/decimal"
)

// CreateCartRequest is the body of POST /invoices/:id/carts
type CreateCartRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateCartRequest is the body of PATCH /carts/:id
type UpdateCartRequest struct {
	Revision uint   `json:"revision" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// AddItemRequest is the body of POST /carts/:id/items
type AddItemRequest struct {
	ProductID uint             `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// UpdateItemRequest is the body of PATCH /items/:id
type UpdateItemRequest struct {
	Revision uint `json:"revision" binding:"required"`
	Quantity int  `json:"quantity" binding:"required"`
}

// CreateCart handles POST /api/v1/invoices/:id/carts
func CreateCart(c *gin.Context) {
	invoiceID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CreateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	cart, err := invoiceService().CreateCart(invoiceID, req.Name, actorName(c))
	if err != nil {
		respondServiceError(c, err, "INVOICE")
		return
	}
	respondData(c, http.StatusCreated, cart)
}

// UpdateCart handles PATCH /api/v1/carts/:id (rename)
func UpdateCart(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	cart, err := invoiceService().RenameCart(id, req.Revision, req.Name)
	if err != nil {
		respondServiceError(c, err, "CART")
		return
	}
	respondData(c, http.StatusOK, cart)
}

// DeleteCart handles DELETE /api/v1/carts/:id?revision=
func DeleteCart(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	revision, ok := parseRevision(c)
	if !ok {
		return
	}
	if err := invoiceService().DeleteCart(id, revision); err != nil {
		respondServiceError(c, err, "CART")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// AddCartItem handles POST /api/v1/carts/:id/items
func AddCartItem(c *gin.Context) {
	cartID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	item, err := invoiceService().AddItem(cartID, services.NewItem{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	}, actorName(c))
	if err != nil {
		respondServiceError(c, err, "CART")
		return
	}
	respondData(c, http.StatusCreated, item)
}

// UpdateCartItem handles PATCH /api/v1/items/:id (quantity)
func UpdateCartItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	item, err := invoiceService().UpdateItemQuantity(id, req.Revision, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "ITEM")
		return
	}
	respondData(c, http.StatusOK, item)
}

// DeleteCartItem handles DELETE /api/v1/items/:id?revision=
func DeleteCartItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	revision, ok := parseRevision(c)
	if !ok {
		return
	}
	if err := invoiceService().DeleteItem(id, revision); err != nil {
		respondServiceError(c, err, "ITEM")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
