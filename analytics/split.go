package analytics

import (
	"math"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// CategorySplitResult is the Mangle/Doblado breakdown of a set of items
type CategorySplitResult struct {
	MangleQuantity  int     `json:"mangle_quantity"`
	DobladoQuantity int     `json:"doblado_quantity"`
	ManglePercent   float64 `json:"mangle_percent"`
	DobladoPercent  float64 `json:"doblado_percent"`
}

// Percent returns part/total*100, or 0 when total is 0
func Percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CategorySplit classifies items and returns quantities and percentages.
// For a non-empty set the two percentages always add up to exactly 100.
func CategorySplit(items []models.CartItem, rules RuleTable) CategorySplitResult {
	var res CategorySplitResult
	for _, item := range items {
		if rules.Classify(item.ProductName) == models.CategoryMangle {
			res.MangleQuantity += item.Quantity
		} else {
			res.DobladoQuantity += item.Quantity
		}
	}

	total := res.MangleQuantity + res.DobladoQuantity
	if total == 0 {
		return res
	}
	res.ManglePercent = Round1(Percent(float64(res.MangleQuantity), float64(total)))
	res.DobladoPercent = Round1(100 - res.ManglePercent)
	return res
}
