package analytics

import "github.com/kendall-kelly/linen-ops-api/models"

// TunnelProgressResult is derived at read time and never stored
type TunnelProgressResult struct {
	ProcessedWeight float64 `json:"processed_weight"`
	RemainingWeight float64 `json:"remaining_weight"`
	Percent         float64 `json:"percent"`
}

// TunnelProgress estimates how much of a group's weight has gone through
// segregation, assuming carts of equal weight.
func TunnelProgress(group models.PickupGroup) TunnelProgressResult {
	if group.NumCarts <= 0 || group.TotalWeight <= 0 {
		return TunnelProgressResult{RemainingWeight: maxFloat(group.TotalWeight, 0)}
	}
	segregated := group.SegregatedCarts
	if segregated > group.NumCarts {
		segregated = group.NumCarts
	}
	if segregated < 0 {
		segregated = 0
	}
	perCart := group.TotalWeight / float64(group.NumCarts)
	processed := Round1(perCart * float64(segregated))
	if processed > group.TotalWeight {
		processed = group.TotalWeight
	}
	return TunnelProgressResult{
		ProcessedWeight: processed,
		RemainingWeight: Round1(group.TotalWeight - processed),
		Percent:         Round1(Percent(float64(segregated), float64(group.NumCarts))),
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
