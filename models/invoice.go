package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the work document for one client visit. Its carts and their
// items are stored as separate rows so that edits touch disjoint records.
type Invoice struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ClientID       uint           `gorm:"not null;index" json:"client_id"`
	Client         *Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ClientName     string         `gorm:"not null" json:"client_name"` // denormalized for listings
	Date           time.Time      `gorm:"not null;index" json:"date"`
	DeliveryDate   *time.Time     `gorm:"index" json:"delivery_date"`
	Carts          []Cart         `gorm:"foreignKey:InvoiceID" json:"carts"`
	VerifiedAt     *time.Time     `json:"verified_at"`
	VerifiedBy     *string        `json:"verified_by"`
	LockedAt       *time.Time     `json:"locked_at"`
	LockedBy       *string        `json:"locked_by"`
	TotalWeight    float64        `gorm:"not null;default:0" json:"total_weight"`
	SpecialService bool           `gorm:"not null;default:false" json:"special_service"`
	Notes          string         `gorm:"type:text" json:"notes"`
	Revision       uint           `gorm:"not null;default:1" json:"revision"`
	LegacyID       *string        `gorm:"index" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// IsLocked reports whether carts and items can no longer be edited
func (i *Invoice) IsLocked() bool {
	return i.LockedAt != nil
}

// IsVerified reports whether a supervisor checked the invoice
func (i *Invoice) IsVerified() bool {
	return i.VerifiedAt != nil
}

// Cart is a named group of items within an invoice, roughly one physical cart
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	InvoiceID uint       `gorm:"not null;index" json:"invoice_id"`
	Name      string     `gorm:"not null" json:"name"`
	CreatedBy string     `json:"created_by"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	Revision  uint       `gorm:"not null;default:1" json:"revision"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Cart model
func (Cart) TableName() string {
	return "carts"
}

// CartItem is one product line inside a cart
type CartItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CartID      uint            `gorm:"not null;index" json:"cart_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"not null" json:"product_name"` // denormalized at insert time
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"unit_price"`
	AddedBy     string          `json:"added_by"`
	AddedAt     time.Time       `gorm:"not null;index" json:"added_at"`
	Revision    uint            `gorm:"not null;default:1" json:"revision"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the CartItem model
func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal returns quantity times unit price
func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}
