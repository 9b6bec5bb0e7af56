package models

import (
	"time"

	"gorm.io/datatypes"
)

// Production categories
const (
	CategoryMangle  = "Mangle"
	CategoryDoblado = "Doblado"
)

// ClassificationRule maps a case-insensitive substring to a category
type ClassificationRule struct {
	Pattern  string `json:"pattern" mapstructure:"pattern"`
	Category string `json:"category" mapstructure:"category"`
}

// OperatorSettings is one immutable version of the operator-tunable settings.
// Every change inserts a new row with Version+1.
type OperatorSettings struct {
	ID                      uint                                     `gorm:"primaryKey" json:"id"`
	Version                 uint                                     `gorm:"uniqueIndex;not null" json:"version"`
	ShiftStarts             datatypes.JSONType[map[string]string]    `json:"shift_starts"` // area -> "HH:MM"
	ClassificationOverrides datatypes.JSONType[map[string]string]    `json:"classification_overrides"`
	ClassificationRules     datatypes.JSONType[[]ClassificationRule] `json:"classification_rules"`
	DefaultCategory         string                                   `gorm:"not null;default:'Doblado'" json:"default_category"`
	CreatedBy               string                                   `json:"created_by"`
	CreatedAt               time.Time                                `json:"created_at"`
}

// TableName specifies the table name for the OperatorSettings model
func (OperatorSettings) TableName() string {
	return "operator_settings"
}

// IsValidCategory reports whether c is a known production category
func IsValidCategory(c string) bool {
	return c == CategoryMangle || c == CategoryDoblado
}
