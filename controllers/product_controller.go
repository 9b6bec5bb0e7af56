package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/services"
	"github.com/kendall-kelly/linen-ops-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductRequest is the body of POST /products and PUT /products/:id
type ProductRequest struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price"`
}

// CreateProduct handles POST /api/v1/products
func CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Price.IsNegative() {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name is required and price must not be negative", nil)
		return
	}

	product := models.Product{Name: name, Price: req.Price}
	if err := config.GetDB().Create(&product).Error; err != nil {
		if isDuplicate(err) {
			respondError(c, http.StatusConflict, "PRODUCT_EXISTS", "A product with this name already exists", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", nil)
		return
	}
	respondData(c, http.StatusCreated, product)
}

// ListProducts handles GET /api/v1/products
func ListProducts(c *gin.Context) {
	var products []models.Product
	if err := config.GetDB().Order("name").Find(&products).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list products", nil)
		return
	}
	for i := range products {
		services.AttachProductImageURL(c.Request.Context(), &products[i])
	}
	respondData(c, http.StatusOK, products)
}

// GetProduct handles GET /api/v1/products/:id
func GetProduct(c *gin.Context) {
	product, ok := loadProduct(c)
	if !ok {
		return
	}
	services.AttachProductImageURL(c.Request.Context(), product)
	respondData(c, http.StatusOK, product)
}

// UpdateProduct handles PUT /api/v1/products/:id. Existing cart items keep
// the name and price they were added with.
func UpdateProduct(c *gin.Context) {
	product, ok := loadProduct(c)
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Price.IsNegative() {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name is required and price must not be negative", nil)
		return
	}

	err := config.GetDB().Model(product).Updates(map[string]interface{}{"name": name, "price": req.Price}).Error
	if err != nil {
		if isDuplicate(err) {
			respondError(c, http.StatusConflict, "PRODUCT_EXISTS", "A product with this name already exists", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", nil)
		return
	}
	product.Name, product.Price = name, req.Price
	respondData(c, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/:id
func DeleteProduct(c *gin.Context) {
	product, ok := loadProduct(c)
	if !ok {
		return
	}
	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM client_products WHERE product_id = ?", product.ID).Error; err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", nil)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": product.ID, "deleted": true})
}

// UploadProductImage handles POST /api/v1/products/:id/image (multipart field "image")
func UploadProductImage(c *gin.Context) {
	product, ok := loadProduct(c)
	if !ok {
		return
	}
	key, ok := uploadImage(c, services.FolderProducts)
	if !ok {
		return
	}
	if err := config.GetDB().Model(product).Update("image_s3_key", key).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save image", nil)
		return
	}
	product.ImageS3Key = &key
	services.AttachProductImageURL(c.Request.Context(), product)
	respondData(c, http.StatusOK, product)
}

func loadProduct(c *gin.Context) (*models.Product, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	var product models.Product
	if err := config.GetDB().First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load product", nil)
		}
		return nil, false
	}
	return &product, true
}

// uploadImage validates the "image" form file and stores it under folder
func uploadImage(c *gin.Context, folder string) (string, bool) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_IMAGE", "An image file is required in the \"image\" field", nil)
		return "", false
	}
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		code := "INVALID_IMAGE"
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			code = uploadErr.Code
		}
		respondError(c, http.StatusBadRequest, code, err.Error(), nil)
		return "", false
	}
	imageService := services.GetImageService()
	if imageService == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Image storage is not configured", nil)
		return "", false
	}
	key, err := imageService.UploadImage(c.Request.Context(), fileHeader, folder)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload image", nil)
		return "", false
	}
	return key, true
}
