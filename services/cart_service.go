package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewItem is the input for AddItem. UnitPrice defaults to the product price.
type NewItem struct {
	ProductID uint
	Quantity  int
	UnitPrice *decimal.Decimal
}

// CreateCart appends a new cart to an unlocked invoice
func (s *InvoiceService) CreateCart(invoiceID uint, name, actor string) (*models.Cart, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("cart name is required")
	}

	var cart models.Cart
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.IsLocked() {
			return ErrInvoiceLocked
		}
		cart = models.Cart{
			InvoiceID: invoiceID,
			Name:      name,
			CreatedBy: actor,
			Revision:  1,
			Items:     []models.CartItem{},
		}
		return tx.Create(&cart).Error
	})
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// RenameCart changes a cart's name if it is still at revision
func (s *InvoiceService) RenameCart(cartID, revision uint, name string) (*models.Cart, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("cart name is required")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := editableCart(tx, cartID); err != nil {
			return err
		}
		err := compareAndSwap(tx, &models.Cart{}, cartID, revision, map[string]interface{}{"name": name})
		return cartConflict(tx, cartID, err)
	})
	if err != nil {
		return nil, err
	}
	return s.getCart(cartID)
}

// DeleteCart removes a cart and its items if the cart is still at revision
func (s *InvoiceService) DeleteCart(cartID, revision uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := editableCart(tx, cartID); err != nil {
			return err
		}
		res := tx.Where("id = ? AND revision = ?", cartID, revision).Delete(&models.Cart{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return cartConflict(tx, cartID, ErrRevisionConflict)
		}
		return tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
	})
}

// AddItem appends a new item row to a cart. Appends never conflict with
// edits to other items of the same cart.
func (s *InvoiceService) AddItem(cartID uint, in NewItem, actor string) (*models.CartItem, error) {
	if in.Quantity <= 0 {
		return nil, validationf("quantity must be greater than zero")
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, validationf("unit_price must not be negative")
	}

	var item models.CartItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := editableCart(tx, cartID); err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("product", in.ProductID)
			}
			return err
		}

		price := product.Price
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		item = models.CartItem{
			CartID:      cartID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			UnitPrice:   price,
			AddedBy:     actor,
			AddedAt:     s.now(),
			Revision:    1,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemQuantity sets an item's quantity if it is still at revision
func (s *InvoiceService) UpdateItemQuantity(itemID, revision uint, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, validationf("quantity must be greater than zero")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := findItem(tx, itemID)
		if err != nil {
			return err
		}
		if _, err := editableCart(tx, item.CartID); err != nil {
			return err
		}
		err = compareAndSwap(tx, &models.CartItem{}, itemID, revision, map[string]interface{}{"quantity": quantity})
		return itemConflict(tx, itemID, err)
	})
	if err != nil {
		return nil, err
	}
	return findItem(s.db, itemID)
}

// DeleteItem removes an item if it is still at revision
func (s *InvoiceService) DeleteItem(itemID, revision uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		item, err := findItem(tx, itemID)
		if err != nil {
			return err
		}
		if _, err := editableCart(tx, item.CartID); err != nil {
			return err
		}
		res := tx.Where("id = ? AND revision = ?", itemID, revision).Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return itemConflict(tx, itemID, ErrRevisionConflict)
		}
		return nil
	})
}

func (s *InvoiceService) getCart(cartID uint) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		First(&cart, cartID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("cart", cartID)
		}
		return nil, err
	}
	return &cart, nil
}

// editableCart loads a cart and fails when its invoice is locked
func editableCart(tx *gorm.DB, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := tx.First(&cart, cartID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("cart", cartID)
		}
		return nil, err
	}
	invoice, err := lockInvoice(tx, cart.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("cart %d: %w", cartID, err)
	}
	if invoice.IsLocked() {
		return nil, ErrInvoiceLocked
	}
	return &cart, nil
}

func findItem(db *gorm.DB, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("item", itemID)
		}
		return nil, err
	}
	return &item, nil
}

func cartConflict(tx *gorm.DB, cartID uint, err error) error {
	if !errors.Is(err, ErrRevisionConflict) {
		return err
	}
	var current models.Cart
	if loadErr := tx.Preload("Items").First(&current, cartID).Error; loadErr != nil {
		return err
	}
	return &ConflictError{Current: &current}
}

func itemConflict(tx *gorm.DB, itemID uint, err error) error {
	if !errors.Is(err, ErrRevisionConflict) {
		return err
	}
	current, loadErr := findItem(tx, itemID)
	if loadErr != nil {
		return err
	}
	return &ConflictError{Current: current}
}
