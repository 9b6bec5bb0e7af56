package analytics

import (
	"sort"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/shopspring/decimal"
)

// ProductTotal is the summed quantity of one product
type ProductTotal struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// CartTotalItems sums the quantities of a cart's items
func CartTotalItems(cart models.Cart) int {
	total := 0
	for _, item := range cart.Items {
		total += item.Quantity
	}
	return total
}

// InvoiceTotalItems sums the quantities across all carts of an invoice
func InvoiceTotalItems(inv models.Invoice) int {
	total := 0
	for _, cart := range inv.Carts {
		total += CartTotalItems(cart)
	}
	return total
}

// InvoiceItems flattens the items of every cart
func InvoiceItems(inv models.Invoice) []models.CartItem {
	var items []models.CartItem
	for _, cart := range inv.Carts {
		items = append(items, cart.Items...)
	}
	return items
}

// ProductTotals groups items by product and sums quantity and amount, sorted by product name
func ProductTotals(items []models.CartItem) []ProductTotal {
	byProduct := make(map[uint]*ProductTotal)
	for _, item := range items {
		pt, ok := byProduct[item.ProductID]
		if !ok {
			pt = &ProductTotal{ProductID: item.ProductID, ProductName: item.ProductName, Amount: decimal.Zero}
			byProduct[item.ProductID] = pt
		}
		pt.Quantity += item.Quantity
		pt.Amount = pt.Amount.Add(item.LineTotal())
	}

	totals := make([]ProductTotal, 0, len(byProduct))
	for _, pt := range byProduct {
		totals = append(totals, *pt)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].ProductName == totals[j].ProductName {
			return totals[i].ProductID < totals[j].ProductID
		}
		return totals[i].ProductName < totals[j].ProductName
	})
	return totals
}

// InvoiceAmount is the sum of quantity times unit price over every item
func InvoiceAmount(inv models.Invoice) decimal.Decimal {
	amount := decimal.Zero
	for _, item := range InvoiceItems(inv) {
		amount = amount.Add(item.LineTotal())
	}
	return amount
}
