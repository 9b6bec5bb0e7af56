package models

import (
	"time"

	"gorm.io/gorm"
)

// Employee roles
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleDriver   = "driver"
)

// User represents an employee of the laundry (admin, operator or driver)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'operator'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsValidRole reports whether role is one of the known employee roles
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleDriver:
		return true
	}
	return false
}
