package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Washing methods
const (
	WashingTunnel       = "Tunnel"
	WashingConventional = "Conventional"
)

// Billing modes
const (
	BillingByWeight = "byWeight"
	BillingByItem   = "byItem"
)

// Client represents a hotel, hospital or business whose linen the laundry processes
type Client struct {
	ID                      uint                            `gorm:"primaryKey" json:"id"`
	Name                    string                          `gorm:"not null" json:"name"`
	ImageS3Key              *string                         `json:"image_s3_key"`
	ImageURL                *string                         `gorm:"-" json:"image_url,omitempty"`
	SelectedProducts        []Product                       `gorm:"many2many:client_products" json:"selected_products"`
	IsRented                bool                            `gorm:"not null;default:false" json:"is_rented"`
	WashingType             string                          `gorm:"not null;default:'Conventional'" json:"washing_type"` // Tunnel, Conventional
	Segregation             bool                            `gorm:"not null;default:false" json:"segregation"`
	BillingType             string                          `gorm:"not null;default:'byItem'" json:"billing_type"` // byWeight, byItem
	NeedsInvoice            bool                            `gorm:"not null;default:false" json:"needs_invoice"`
	CompletedOptionPosition string                          `gorm:"not null;default:'bottom'" json:"completed_option_position"` // top, bottom
	PrintConfig             datatypes.JSONType[PrintConfig] `json:"print_config"`
	LegacyID                *string                         `gorm:"index" json:"-"`
	CreatedAt               time.Time                       `json:"created_at"`
	UpdatedAt               time.Time                       `json:"updated_at"`
	DeletedAt               gorm.DeletedAt                  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Client model
func (Client) TableName() string {
	return "clients"
}

// EffectivePrintConfig returns the stored print configuration with defaults applied
func (c *Client) EffectivePrintConfig() PrintConfig {
	return c.PrintConfig.Data().WithDefaults()
}

// ProductIDs returns the IDs of the client's selected products
func (c *Client) ProductIDs() []uint {
	ids := make([]uint, 0, len(c.SelectedProducts))
	for _, p := range c.SelectedProducts {
		ids = append(ids, p.ID)
	}
	return ids
}
