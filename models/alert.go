package models

import (
	"time"

	"gorm.io/gorm"
)

// Alert types
const (
	AlertTunnel       = "tunnel"
	AlertConventional = "conventional"
	AlertSegregation  = "segregation"
	AlertPickup       = "pickup"
	AlertInvoice      = "invoice"
	AlertDelivery     = "delivery"
	AlertSystem       = "system"
)

// Alert severities, lowest first
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SystemAlert is an operational alert raised by an employee or by the scheduler
type SystemAlert struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Type            string         `gorm:"not null;index" json:"type"`
	Severity        string         `gorm:"not null;index" json:"severity"`
	Message         string         `gorm:"type:text;not null" json:"message"`
	Component       string         `json:"component"`
	SourceKey       string         `gorm:"index;uniqueIndex:idx_system_alerts_open_source_key,where:source_key <> '' AND NOT is_resolved AND deleted_at IS NULL" json:"source_key,omitempty"` // dedup key for generated alerts
	CreatedBy       string         `gorm:"index" json:"created_by"`
	IsRead          bool           `gorm:"not null;default:false" json:"is_read"`
	ReadAt          *time.Time     `json:"read_at"`
	IsResolved      bool           `gorm:"not null;default:false;index" json:"is_resolved"`
	ResolvedAt      *time.Time     `json:"resolved_at"`
	ResolvedBy      *string        `json:"resolved_by"`
	ResolutionNotes string         `gorm:"type:text" json:"resolution_notes"`
	LegacyID        *string        `gorm:"index" json:"-"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the SystemAlert model
func (SystemAlert) TableName() string {
	return "system_alerts"
}

// IsValidAlertType reports whether t is a known alert type
func IsValidAlertType(t string) bool {
	switch t {
	case AlertTunnel, AlertConventional, AlertSegregation, AlertPickup, AlertInvoice, AlertDelivery, AlertSystem:
		return true
	}
	return false
}

// SeverityRank orders severities; unknown values rank lowest
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}
