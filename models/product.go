package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a linen article the laundry processes (sheets, towels, scrubs...)
type Product struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"uniqueIndex;not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	ImageS3Key *string         `json:"image_s3_key"`
	ImageURL   *string         `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for image
	LegacyID   *string         `gorm:"index" json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
