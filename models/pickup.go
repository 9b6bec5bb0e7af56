package models

import (
	"time"

	"gorm.io/gorm"
)

// Pickup group statuses, in the order a group moves through the plant
const (
	GroupCollecting  = "collecting"
	GroupSegregating = "segregating"
	GroupWashing     = "washing"
	GroupCompleted   = "completed"
)

// PickupGroup collects the weighed pickups of one client for tunnel/conventional washing
type PickupGroup struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	ClientID             uint           `gorm:"not null;index" json:"client_id"`
	ClientName           string         `gorm:"not null" json:"client_name"`
	WashingType          string         `gorm:"not null;default:'Conventional'" json:"washing_type"`
	Status               string         `gorm:"not null;default:'collecting';index" json:"status"`
	StartTime            time.Time      `gorm:"not null;index" json:"start_time"`
	SegregationStartedAt *time.Time     `gorm:"index" json:"segregation_started_at"`
	EndTime              *time.Time     `json:"end_time"`
	TotalWeight          float64        `gorm:"not null;default:0" json:"total_weight"`
	NumCarts             int            `gorm:"not null;default:0" json:"num_carts"`
	SegregatedCarts      int            `gorm:"not null;default:0" json:"segregated_carts"`
	Entries              []PickupEntry  `gorm:"foreignKey:GroupID" json:"entries,omitempty"`
	LegacyID             *string        `gorm:"index" json:"-"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the PickupGroup model
func (PickupGroup) TableName() string {
	return "pickup_groups"
}

// IsValidGroupStatus reports whether status is a known pickup group status
func IsValidGroupStatus(status string) bool {
	switch status {
	case GroupCollecting, GroupSegregating, GroupWashing, GroupCompleted:
		return true
	}
	return false
}

// PickupEntry is one weighed pickup from a client, optionally part of a group
type PickupEntry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	GroupID    *uint          `gorm:"index" json:"group_id"`
	ClientID   uint           `gorm:"not null;index" json:"client_id"`
	ClientName string         `gorm:"not null" json:"client_name"`
	DriverID   *uint          `gorm:"index" json:"driver_id"`
	DriverName string         `json:"driver_name"`
	Weight     float64        `gorm:"not null" json:"weight"`
	CartCount  int            `gorm:"not null;default:0" json:"cart_count"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	LegacyID   *string        `gorm:"index" json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the PickupEntry model
func (PickupEntry) TableName() string {
	return "pickup_entries"
}

// SegregationDoneLog records that a group's carts finished segregation
type SegregationDoneLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GroupID      uint      `gorm:"not null;index" json:"group_id"`
	ClientID     uint      `gorm:"not null;index" json:"client_id"`
	ClientName   string    `json:"client_name"`
	Weight       float64   `json:"weight"`
	Carts        int       `json:"carts"`
	SegregatedBy string    `json:"segregated_by"`
	DoneAt       time.Time `gorm:"not null;index" json:"done_at"`
	LegacyID     *string   `gorm:"index" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the SegregationDoneLog model
func (SegregationDoneLog) TableName() string {
	return "segregation_done_logs"
}
