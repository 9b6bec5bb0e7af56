package client

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/kendall-kelly/linen-ops-api/models"
)

// CartAPI is the subset of Client the mirror needs
type CartAPI interface {
	RenameCart(ctx context.Context, cartID, revision uint, name string) (*models.Cart, error)
	AddItem(ctx context.Context, cartID, productID uint, quantity int) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID, revision uint, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, itemID, revision uint) error
}

// OpKind names the edit an operation performs
type OpKind string

const (
	OpRenameCart     OpKind = "rename_cart"
	OpAddItem        OpKind = "add_item"
	OpUpdateQuantity OpKind = "update_quantity"
	OpRemoveItem     OpKind = "remove_item"
)

// OpState is where an operation is in its lifecycle
type OpState string

const (
	OpPending    OpState = "pending"
	OpConfirmed  OpState = "confirmed"
	OpRolledBack OpState = "rolled_back"
)

// Operation is one local edit sent to the server
type Operation struct {
	ID        string
	Kind      OpKind
	CartID    uint
	ItemID    uint
	ProductID uint
	Name      string
	Quantity  int
	State     OpState
	Err       error
}

// InvoiceMirror keeps the last invoice confirmed by the server plus the
// edits still in flight. View shows both; a failed edit disappears from
// View and is reported by Failed.
type InvoiceMirror struct {
	api CartAPI

	mu       sync.Mutex
	snapshot models.Invoice
	pending  []*Operation
	failed   []Operation
}

// NewInvoiceMirror starts a mirror from a fetched invoice
func NewInvoiceMirror(api CartAPI, snapshot models.Invoice) *InvoiceMirror {
	return &InvoiceMirror{api: api, snapshot: cloneInvoice(snapshot)}
}

// View returns the confirmed snapshot with pending edits applied in order
func (m *InvoiceMirror) View() models.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *InvoiceMirror) viewLocked() models.Invoice {
	view := cloneInvoice(m.snapshot)
	for _, op := range m.pending {
		applyOp(&view, op)
	}
	return view
}

// Snapshot returns the last server-confirmed invoice
func (m *InvoiceMirror) Snapshot() models.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneInvoice(m.snapshot)
}

// ApplySnapshot replaces the confirmed state with a fresh fetch. Pending
// edits stay queued and are re-applied on top of it by View.
func (m *InvoiceMirror) ApplySnapshot(inv models.Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = cloneInvoice(inv)
}

// Pending returns copies of the in-flight operations
func (m *InvoiceMirror) Pending() []Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Operation, 0, len(m.pending))
	for _, op := range m.pending {
		out = append(out, *op)
	}
	return out
}

// Failed returns the operations that were rolled back
func (m *InvoiceMirror) Failed() []Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Operation(nil), m.failed...)
}

// RenameCart renames a cart locally, then on the server
func (m *InvoiceMirror) RenameCart(ctx context.Context, cartID uint, name string) error {
	op := &Operation{Kind: OpRenameCart, CartID: cartID, Name: name}
	revision, err := m.enqueue(op, func(view models.Invoice) (uint, bool) {
		cart := findCart(&view, cartID)
		if cart == nil {
			return 0, false
		}
		return cart.Revision, true
	})
	if err != nil {
		return err
	}
	cart, err := m.api.RenameCart(ctx, cartID, revision, name)
	return m.settle(op, err, func(snap *models.Invoice) {
		if c := findCart(snap, cartID); c != nil {
			c.Name = cart.Name
			c.Revision = cart.Revision
		}
	})
}

// AddItem shows a placeholder line (ID 0) until the server assigns one
func (m *InvoiceMirror) AddItem(ctx context.Context, cartID, productID uint, quantity int) error {
	op := &Operation{Kind: OpAddItem, CartID: cartID, ProductID: productID, Quantity: quantity}
	if _, err := m.enqueue(op, func(view models.Invoice) (uint, bool) {
		return 0, findCart(&view, cartID) != nil
	}); err != nil {
		return err
	}
	item, err := m.api.AddItem(ctx, cartID, productID, quantity)
	return m.settle(op, err, func(snap *models.Invoice) {
		c := findCart(snap, cartID)
		if c == nil {
			return
		}
		if existing := findItemIn(c, item.ID); existing != nil {
			*existing = *item
			return
		}
		c.Items = append(c.Items, *item)
	})
}

// UpdateItemQuantity changes a quantity locally, then on the server
func (m *InvoiceMirror) UpdateItemQuantity(ctx context.Context, itemID uint, quantity int) error {
	op := &Operation{Kind: OpUpdateQuantity, ItemID: itemID, Quantity: quantity}
	revision, err := m.enqueue(op, itemRevision(itemID))
	if err != nil {
		return err
	}
	item, err := m.api.UpdateItemQuantity(ctx, itemID, revision, quantity)
	return m.settle(op, err, func(snap *models.Invoice) {
		if existing := findItem(snap, itemID); existing != nil {
			*existing = *item
		}
	})
}

// RemoveItem hides an item locally, then deletes it on the server
func (m *InvoiceMirror) RemoveItem(ctx context.Context, itemID uint) error {
	op := &Operation{Kind: OpRemoveItem, ItemID: itemID}
	revision, err := m.enqueue(op, itemRevision(itemID))
	if err != nil {
		return err
	}
	err = m.api.RemoveItem(ctx, itemID, revision)
	return m.settle(op, err, func(snap *models.Invoice) {
		removeItem(snap, itemID)
	})
}

// enqueue reads the target's revision from the current view and queues op
func (m *InvoiceMirror) enqueue(op *Operation, target func(models.Invoice) (uint, bool)) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revision, ok := target(m.viewLocked())
	if !ok {
		return 0, fmt.Errorf("%s: target not found in invoice %d", op.Kind, m.snapshot.ID)
	}
	op.ID = uuid.NewString()
	op.State = OpPending
	m.pending = append(m.pending, op)
	return revision, nil
}

// settle moves op out of the queue: into the snapshot on success, into
// Failed on error
func (m *InvoiceMirror) settle(op *Operation, err error, commit func(*models.Invoice)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pending {
		if p.ID == op.ID {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	if err != nil {
		op.State = OpRolledBack
		op.Err = err
		m.failed = append(m.failed, *op)
		log.Printf("Rolled back %s on invoice %d: %v", op.Kind, m.snapshot.ID, err)
		return err
	}
	op.State = OpConfirmed
	commit(&m.snapshot)
	return nil
}

func itemRevision(itemID uint) func(models.Invoice) (uint, bool) {
	return func(view models.Invoice) (uint, bool) {
		item := findItem(&view, itemID)
		if item == nil {
			return 0, false
		}
		return item.Revision, true
	}
}

func applyOp(inv *models.Invoice, op *Operation) {
	switch op.Kind {
	case OpRenameCart:
		if c := findCart(inv, op.CartID); c != nil {
			c.Name = op.Name
		}
	case OpAddItem:
		if c := findCart(inv, op.CartID); c != nil {
			c.Items = append(c.Items, models.CartItem{
				CartID:    op.CartID,
				ProductID: op.ProductID,
				Quantity:  op.Quantity,
			})
		}
	case OpUpdateQuantity:
		if item := findItem(inv, op.ItemID); item != nil {
			item.Quantity = op.Quantity
		}
	case OpRemoveItem:
		removeItem(inv, op.ItemID)
	}
}

func findCart(inv *models.Invoice, cartID uint) *models.Cart {
	for i := range inv.Carts {
		if inv.Carts[i].ID == cartID {
			return &inv.Carts[i]
		}
	}
	return nil
}

func findItemIn(cart *models.Cart, itemID uint) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func findItem(inv *models.Invoice, itemID uint) *models.CartItem {
	for i := range inv.Carts {
		if item := findItemIn(&inv.Carts[i], itemID); item != nil {
			return item
		}
	}
	return nil
}

func removeItem(inv *models.Invoice, itemID uint) {
	for i := range inv.Carts {
		items := inv.Carts[i].Items
		for j := range items {
			if items[j].ID == itemID {
				inv.Carts[i].Items = append(items[:j:j], items[j+1:]...)
				return
			}
		}
	}
}

// cloneInvoice copies the cart and item slices so views never alias the
// snapshot
func cloneInvoice(inv models.Invoice) models.Invoice {
	out := inv
	out.Carts = make([]models.Cart, len(inv.Carts))
	for i, cart := range inv.Carts {
		cart.Items = append([]models.CartItem(nil), cart.Items...)
		out.Carts[i] = cart
	}
	return out
}
