package analytics

import (
	"sort"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// ClientSummary aggregates a client's invoices over a period
type ClientSummary struct {
	ClientID    uint    `json:"client_id"`
	ClientName  string  `json:"client_name"`
	Invoices    int     `json:"invoices"`
	TotalItems  int     `json:"total_items"`
	TotalWeight float64 `json:"total_weight"`
}

// ClientSummaries groups invoices by client, sorted by total items descending
func ClientSummaries(invoices []models.Invoice) []ClientSummary {
	byClient := make(map[uint]*ClientSummary)
	for _, inv := range invoices {
		s, ok := byClient[inv.ClientID]
		if !ok {
			s = &ClientSummary{ClientID: inv.ClientID, ClientName: inv.ClientName}
			byClient[inv.ClientID] = s
		}
		s.Invoices++
		s.TotalItems += InvoiceTotalItems(inv)
		s.TotalWeight += inv.TotalWeight
	}

	out := make([]ClientSummary, 0, len(byClient))
	for _, s := range byClient {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalItems == out[j].TotalItems {
			return out[i].ClientName < out[j].ClientName
		}
		return out[i].TotalItems > out[j].TotalItems
	})
	return out
}
