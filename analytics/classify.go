package analytics

import (
	"strings"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// Rule maps a case-insensitive substring of a product name to a category
type Rule struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
}

// RuleTable classifies free-text product names into production categories.
// Overrides are consulted first, then Rules in order, then Default.
// Napkins lists the patterns of the napkin family totalled on tickets.
type RuleTable struct {
	Version   uint              `json:"version"`
	Rules     []Rule            `json:"rules"`
	Overrides map[string]string `json:"overrides"`
	Default   string            `json:"default"`
	Napkins   []string          `json:"napkins"`
}

// DefaultRules is the built-in rule table used until an operator edits it
var DefaultRules = []Rule{
	{Pattern: "sheet", Category: models.CategoryMangle},
	{Pattern: "sabana", Category: models.CategoryMangle},
	{Pattern: "sábana", Category: models.CategoryMangle},
	{Pattern: "duvet", Category: models.CategoryMangle},
	{Pattern: "pillowcase", Category: models.CategoryMangle},
	{Pattern: "funda", Category: models.CategoryMangle},
	{Pattern: "tablecloth", Category: models.CategoryMangle},
	{Pattern: "mantel", Category: models.CategoryMangle},
	{Pattern: "napkin", Category: models.CategoryMangle},
	{Pattern: "servilleta", Category: models.CategoryMangle},
	{Pattern: "towel", Category: models.CategoryDoblado},
	{Pattern: "toalla", Category: models.CategoryDoblado},
	{Pattern: "scrub", Category: models.CategoryDoblado},
	{Pattern: "robe", Category: models.CategoryDoblado},
	{Pattern: "bata", Category: models.CategoryDoblado},
	{Pattern: "gown", Category: models.CategoryDoblado},
	{Pattern: "blanket", Category: models.CategoryDoblado},
	{Pattern: "frisa", Category: models.CategoryDoblado},
}

// DefaultNapkinPatterns is the napkin family of the built-in table
var DefaultNapkinPatterns = []string{"servilleta", "napkin"}

// DefaultRuleTable returns a table with DefaultRules and no overrides
func DefaultRuleTable() RuleTable {
	rules := make([]Rule, len(DefaultRules))
	copy(rules, DefaultRules)
	return RuleTable{Rules: rules, Overrides: map[string]string{}, Default: models.CategoryDoblado, Napkins: defaultNapkins()}
}

// NewRuleTable builds a table, normalising override keys for lookup
func NewRuleTable(version uint, rules []Rule, overrides map[string]string, def string) RuleTable {
	normalized := make(map[string]string, len(overrides))
	for name, category := range overrides {
		normalized[normalizeName(name)] = category
	}
	if def == "" {
		def = models.CategoryDoblado
	}
	return RuleTable{Version: version, Rules: rules, Overrides: normalized, Default: def, Napkins: defaultNapkins()}
}

// IsNapkin reports whether a product belongs to the napkin family
func (t RuleTable) IsNapkin(productName string) bool {
	patterns := t.Napkins
	if len(patterns) == 0 {
		patterns = DefaultNapkinPatterns
	}
	name := normalizeName(productName)
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}

func defaultNapkins() []string {
	return append([]string(nil), DefaultNapkinPatterns...)
}

// Classify returns the category for a product name
func (t RuleTable) Classify(productName string) string {
	name := normalizeName(productName)
	if category, ok := t.Overrides[name]; ok {
		return category
	}
	for _, rule := range t.Rules {
		pattern := strings.ToLower(strings.TrimSpace(rule.Pattern))
		if pattern != "" && strings.Contains(name, pattern) {
			return rule.Category
		}
	}
	if t.Default == "" {
		return models.CategoryDoblado
	}
	return t.Default
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
