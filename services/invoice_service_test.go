package services

import (
	"errors"
	"testing"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type InvoiceServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	svc     *InvoiceService
	client  models.Client
	shirts  models.Product
	pants   models.Product
	invoice *models.Invoice
}

func (s *InvoiceServiceTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.svc = NewInvoiceService(s.db)
	fixed := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return fixed }

	s.client = models.Client{Name: "Hospital Central"}
	s.Require().NoError(s.db.Create(&s.client).Error)
	s.shirts = models.Product{Name: "Scrub Shirts", Price: decimal.RequireFromString("0.50")}
	s.pants = models.Product{Name: "Scrub Pants", Price: decimal.RequireFromString("0.75")}
	s.Require().NoError(s.db.Create(&s.shirts).Error)
	s.Require().NoError(s.db.Create(&s.pants).Error)

	inv, err := s.svc.CreateInvoice(NewInvoice{ClientID: s.client.ID})
	s.Require().NoError(err)
	s.invoice = inv
}

func TestInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}

func (s *InvoiceServiceTestSuite) TestCreateInvoiceDenormalizesClientName() {
	s.Equal("Hospital Central", s.invoice.ClientName)
	s.Equal(uint(1), s.invoice.Revision)
	s.Empty(s.invoice.Carts)
	s.False(s.invoice.Date.IsZero())
}

func (s *InvoiceServiceTestSuite) TestCreateInvoiceUnknownClient() {
	_, err := s.svc.CreateInvoice(NewInvoice{ClientID: 999})
	s.ErrorIs(err, ErrNotFound)
}

func (s *InvoiceServiceTestSuite) TestCartAndItemsRoundTrip() {
	cart, err := s.svc.CreateCart(s.invoice.ID, "Cart 1", "ana")
	s.Require().NoError(err)
	s.Equal(uint(1), cart.Revision)

	_, err = s.svc.AddItem(cart.ID, NewItem{ProductID: s.shirts.ID, Quantity: 12}, "ana")
	s.Require().NoError(err)
	_, err = s.svc.AddItem(cart.ID, NewItem{ProductID: s.pants.ID, Quantity: 8}, "luis")
	s.Require().NoError(err)

	inv, err := s.svc.GetInvoice(s.invoice.ID)
	s.Require().NoError(err)
	s.Require().Len(inv.Carts, 1)
	s.Require().Len(inv.Carts[0].Items, 2)
	s.Equal("Scrub Shirts", inv.Carts[0].Items[0].ProductName)
	s.True(decimal.RequireFromString("0.50").Equal(inv.Carts[0].Items[0].UnitPrice))
	s.Equal("luis", inv.Carts[0].Items[1].AddedBy)
}

func (s *InvoiceServiceTestSuite) TestRenameCartRevisionConflict() {
	cart, err := s.svc.CreateCart(s.invoice.ID, "Cart 1", "ana")
	s.Require().NoError(err)

	renamed, err := s.svc.RenameCart(cart.ID, cart.Revision, "Towels")
	s.Require().NoError(err)
	s.Equal("Towels", renamed.Name)
	s.Equal(uint(2), renamed.Revision)

	// a second editor still holding revision 1 loses
	_, err = s.svc.RenameCart(cart.ID, cart.Revision, "Sheets")
	s.Require().ErrorIs(err, ErrRevisionConflict)
	var conflict *ConflictError
	s.Require().True(errors.As(err, &conflict))
	current := conflict.Current.(*models.Cart)
	s.Equal("Towels", current.Name)

	stored, err := s.svc.getCart(cart.ID)
	s.Require().NoError(err)
	s.Equal("Towels", stored.Name, "only the first edit is applied")
}

func (s *InvoiceServiceTestSuite) TestEditsToDifferentItemsDoNotConflict() {
	cart, err := s.svc.CreateCart(s.invoice.ID, "Cart 1", "ana")
	s.Require().NoError(err)
	a, err := s.svc.AddItem(cart.ID, NewItem{ProductID: s.shirts.ID, Quantity: 1}, "ana")
	s.Require().NoError(err)
	b, err := s.svc.AddItem(cart.ID, NewItem{ProductID: s.pants.ID, Quantity: 1}, "luis")
	s.Require().NoError(err)

	updatedA, err := s.svc.UpdateItemQuantity(a.ID, a.Revision, 5)
	s.Require().NoError(err)
	updatedB, err := s.svc.UpdateItemQuantity(b.ID, b.Revision, 7)
	s.Require().NoError(err)

	s.Equal(5, updatedA.Quantity)
	s.Equal(7, updatedB.Quantity)
	s.Equal(uint(2), updatedA.Revision)
}

func (s *InvoiceServiceTestSuite) TestAddItemValidation() {
	cart, err := s.svc.CreateCart(s.invoice.ID, "Cart 1", "ana")
	s.Require().NoError(err)

	_, err = s.svc.AddItem(cart.ID, NewItem{ProductID: s.shirts.ID, Quantity: 0}, "ana")
	s.ErrorIs(err, ErrValidation)

	_, err = s.svc.AddItem(cart.ID, NewItem{ProductID: 999, Quantity: 1}, "ana")
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.AddItem(999, NewItem{ProductID: s.shirts.ID, Quantity: 1}, "ana")
	s.ErrorIs(err, ErrNotFound)

	price := decimal.RequireFromString("1.25")
	item, err := s.svc.AddItem(cart.ID, NewItem{ProductID: s.shirts.ID, Quantity: 2, UnitPrice: &price}, "ana")
	s.Require().NoError(err)
	s.True(price.Equal(item.UnitPrice))
}

func (s *InvoiceServiceTestSuite) TestDeleteItemAndCart() {
	cart, err := s.svc.CreateCart(s.invoice.ID, "Cart 1", "ana")
	s.Require().NoError(err)
	item, err := s.svc.AddItem(cart.ID, NewItem{ProductID: s.shirts.ID, Quantity: 3}, "ana")
	s.Require().NoError(err)
	other, err := s.svc.AddItem(cart.ID, NewItem{ProductID: s.pants.ID, Quantity: 4}, "ana")
	s.Require().NoError(err)

	s.ErrorIs(s.svc.DeleteItem(item.ID, item.Revision+1), ErrRevisionConflict)
	s.NoError(s.svc.DeleteItem(item.ID, item.Revision))
	s.ErrorIs(s.svc.DeleteItem(item.ID, item.Revision), ErrNotFound)

	s.NoError(s.svc.DeleteCart(cart.ID, cart.Revision))
	var count int64
	s.db.Model(&models.CartItem{}).Where("id = ?", other.ID).Count(&count)
	s.Equal(int64(0), count, "items go with their cart")
}

func (s *InvoiceServiceTestSuite) TestLockedInvoiceRejectsEdits() {
	cart, err := s.svc.CreateCart(s.invoice.ID, "Cart 1", "ana")
	s.Require().NoError(err)
	item, err := s.svc.AddItem(cart.ID, NewItem{ProductID: s.shirts.ID, Quantity: 3}, "ana")
	s.Require().NoError(err)

	locked, err := s.svc.LockInvoice(s.invoice.ID, "admin")
	s.Require().NoError(err)
	s.True(locked.IsLocked())
	s.Equal("admin", *locked.LockedBy)

	_, err = s.svc.CreateCart(s.invoice.ID, "Cart 2", "ana")
	s.ErrorIs(err, ErrInvoiceLocked)
	_, err = s.svc.RenameCart(cart.ID, cart.Revision, "x")
	s.ErrorIs(err, ErrInvoiceLocked)
	_, err = s.svc.AddItem(cart.ID, NewItem{ProductID: s.shirts.ID, Quantity: 1}, "ana")
	s.ErrorIs(err, ErrInvoiceLocked)
	_, err = s.svc.UpdateItemQuantity(item.ID, item.Revision, 9)
	s.ErrorIs(err, ErrInvoiceLocked)
	s.ErrorIs(s.svc.DeleteItem(item.ID, item.Revision), ErrInvoiceLocked)
	s.ErrorIs(s.svc.DeleteInvoice(s.invoice.ID), ErrInvoiceLocked)
	notes := "late"
	_, err = s.svc.PatchInvoice(s.invoice.ID, locked.Revision, InvoicePatch{Notes: &notes})
	s.ErrorIs(err, ErrInvoiceLocked)

	unlocked, err := s.svc.UnlockInvoice(s.invoice.ID)
	s.Require().NoError(err)
	s.False(unlocked.IsLocked())
	_, err = s.svc.UpdateItemQuantity(item.ID, item.Revision, 9)
	s.NoError(err)
}

func (s *InvoiceServiceTestSuite) TestPatchInvoiceUsesRevision() {
	weight := 120.5
	patched, err := s.svc.PatchInvoice(s.invoice.ID, 1, InvoicePatch{TotalWeight: &weight})
	s.Require().NoError(err)
	s.Equal(120.5, patched.TotalWeight)
	s.Equal(uint(2), patched.Revision)

	special := true
	_, err = s.svc.PatchInvoice(s.invoice.ID, 1, InvoicePatch{SpecialService: &special})
	s.ErrorIs(err, ErrRevisionConflict)

	negative := -1.0
	_, err = s.svc.PatchInvoice(s.invoice.ID, 2, InvoicePatch{TotalWeight: &negative})
	s.ErrorIs(err, ErrValidation)
}

func (s *InvoiceServiceTestSuite) TestVerifyKeepsFirstVerification() {
	first, err := s.svc.VerifyInvoice(s.invoice.ID, "ana")
	s.Require().NoError(err)
	s.True(first.IsVerified())

	second, err := s.svc.VerifyInvoice(s.invoice.ID, "luis")
	s.Require().NoError(err)
	s.Equal("ana", *second.VerifiedBy)
}

func (s *InvoiceServiceTestSuite) TestDeleteInvoice() {
	s.NoError(s.svc.DeleteInvoice(s.invoice.ID))
	_, err := s.svc.GetInvoice(s.invoice.ID)
	s.ErrorIs(err, ErrNotFound)
}
