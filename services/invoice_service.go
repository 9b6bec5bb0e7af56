package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceService edits invoices, their carts and cart items. Every mutation
// carries the revision the caller last saw and fails with a ConflictError
// when the row has moved on.
type InvoiceService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewInvoiceService creates an invoice service on db
func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db, now: time.Now}
}

// NewInvoice is the input for CreateInvoice
type NewInvoice struct {
	ClientID       uint
	Date           time.Time
	DeliveryDate   *time.Time
	TotalWeight    float64
	SpecialService bool
	Notes          string
}

// InvoicePatch holds the invoice fields a PATCH may change; nil means unchanged
type InvoicePatch struct {
	DeliveryDate   *time.Time
	TotalWeight    *float64
	SpecialService *bool
	Notes          *string
}

func (p InvoicePatch) updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if p.DeliveryDate != nil {
		updates["delivery_date"] = *p.DeliveryDate
	}
	if p.TotalWeight != nil {
		updates["total_weight"] = *p.TotalWeight
	}
	if p.SpecialService != nil {
		updates["special_service"] = *p.SpecialService
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	return updates
}

// CreateInvoice creates an empty invoice for an existing client
func (s *InvoiceService) CreateInvoice(in NewInvoice) (*models.Invoice, error) {
	if in.TotalWeight < 0 {
		return nil, validationf("total_weight must not be negative")
	}

	client, err := findClient(s.db, in.ClientID)
	if err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	invoice := models.Invoice{
		ClientID:       client.ID,
		ClientName:     client.Name,
		Date:           date,
		DeliveryDate:   in.DeliveryDate,
		TotalWeight:    in.TotalWeight,
		SpecialService: in.SpecialService,
		Notes:          in.Notes,
		Revision:       1,
	}
	if err := s.db.Create(&invoice).Error; err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return s.GetInvoice(invoice.ID)
}

// GetInvoice loads an invoice with its carts and items in insertion order
func (s *InvoiceService) GetInvoice(id uint) (*models.Invoice, error) {
	return loadInvoice(s.db, id)
}

func loadInvoice(db *gorm.DB, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := db.
		Preload("Carts", func(db *gorm.DB) *gorm.DB { return db.Order("carts.id") }).
		Preload("Carts.Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("invoice", id)
		}
		return nil, err
	}
	return &invoice, nil
}

// PatchInvoice applies patch if the invoice is still at revision
func (s *InvoiceService) PatchInvoice(id, revision uint, patch InvoicePatch) (*models.Invoice, error) {
	if patch.TotalWeight != nil && *patch.TotalWeight < 0 {
		return nil, validationf("total_weight must not be negative")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, id)
		if err != nil {
			return err
		}
		if invoice.IsLocked() {
			return ErrInvoiceLocked
		}

		updates := patch.updates()
		if len(updates) == 0 {
			if invoice.Revision != revision {
				return &ConflictError{Current: invoice}
			}
			return nil
		}
		if err := compareAndSwap(tx, &models.Invoice{}, id, revision, updates); err != nil {
			if errors.Is(err, ErrRevisionConflict) {
				current, loadErr := loadInvoice(tx, id)
				if loadErr != nil {
					return loadErr
				}
				return &ConflictError{Current: current}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(id)
}

// VerifyInvoice records who checked the invoice. Verifying twice keeps the
// first verification.
func (s *InvoiceService) VerifyInvoice(id uint, actor string) (*models.Invoice, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, id)
		if err != nil {
			return err
		}
		if invoice.IsVerified() {
			return nil
		}
		return bump(tx, &models.Invoice{}, id, map[string]interface{}{
			"verified_at": s.now(),
			"verified_by": actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(id)
}

// LockInvoice freezes the invoice's carts and items
func (s *InvoiceService) LockInvoice(id uint, actor string) (*models.Invoice, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, id)
		if err != nil {
			return err
		}
		if invoice.IsLocked() {
			return nil
		}
		return bump(tx, &models.Invoice{}, id, map[string]interface{}{
			"locked_at": s.now(),
			"locked_by": actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(id)
}

// UnlockInvoice clears the lock so the invoice can be edited again
func (s *InvoiceService) UnlockInvoice(id uint) (*models.Invoice, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, id)
		if err != nil {
			return err
		}
		if !invoice.IsLocked() {
			return nil
		}
		return bump(tx, &models.Invoice{}, id, map[string]interface{}{
			"locked_at": nil,
			"locked_by": nil,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(id)
}

// DeleteInvoice soft-deletes an unlocked invoice
func (s *InvoiceService) DeleteInvoice(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, id)
		if err != nil {
			return err
		}
		if invoice.IsLocked() {
			return ErrInvoiceLocked
		}
		return tx.Delete(&models.Invoice{}, id).Error
	})
}

// lockInvoice reads the invoice row, taking a row lock where the database
// supports it so lock/unlock cannot interleave with cart edits.
func lockInvoice(tx *gorm.DB, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("invoice", id)
		}
		return nil, err
	}
	return &invoice, nil
}

// compareAndSwap applies updates and increments revision only when the row is
// still at revision. It returns ErrRevisionConflict when no row matched.
func compareAndSwap(tx *gorm.DB, model interface{}, id, revision uint, updates map[string]interface{}) error {
	updates["revision"] = gorm.Expr("revision + 1")
	res := tx.Model(model).Where("id = ? AND revision = ?", id, revision).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRevisionConflict
	}
	return nil
}

// bump applies updates unconditionally and increments revision
func bump(tx *gorm.DB, model interface{}, id uint, updates map[string]interface{}) error {
	updates["revision"] = gorm.Expr("revision + 1")
	return tx.Model(model).Where("id = ?", id).Updates(updates).Error
}
