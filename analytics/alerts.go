package analytics

import (
	"sort"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// EmployeeRatio is one employee's share of the alerts in a period
type EmployeeRatio struct {
	Employee        string  `json:"employee"`
	Total           int     `json:"total"`
	Resolved        int     `json:"resolved"`
	SharePercent    float64 `json:"share_percent"`
	ResolvedPercent float64 `json:"resolved_percent"`
}

// EmployeeAlertRatios groups alerts by creator. Alerts without a creator are
// grouped under "system". Sorted by total descending, then name.
func EmployeeAlertRatios(alerts []models.SystemAlert) []EmployeeRatio {
	byEmployee := make(map[string]*EmployeeRatio)
	for _, a := range alerts {
		name := a.CreatedBy
		if name == "" {
			name = "system"
		}
		r, ok := byEmployee[name]
		if !ok {
			r = &EmployeeRatio{Employee: name}
			byEmployee[name] = r
		}
		r.Total++
		if a.IsResolved {
			r.Resolved++
		}
	}

	out := make([]EmployeeRatio, 0, len(byEmployee))
	for _, r := range byEmployee {
		r.SharePercent = Round1(Percent(float64(r.Total), float64(len(alerts))))
		r.ResolvedPercent = Round1(Percent(float64(r.Resolved), float64(r.Total)))
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total == out[j].Total {
			return out[i].Employee < out[j].Employee
		}
		return out[i].Total > out[j].Total
	})
	return out
}

// SeverityCounts counts alerts per severity
func SeverityCounts(alerts []models.SystemAlert) map[string]int {
	counts := map[string]int{
		models.SeverityLow:      0,
		models.SeverityMedium:   0,
		models.SeverityHigh:     0,
		models.SeverityCritical: 0,
	}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	return counts
}
