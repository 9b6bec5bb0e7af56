package analytics

import (
	"testing"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyKeywordsIgnoreCase(t *testing.T) {
	table := DefaultRuleTable()

	tests := []struct {
		name string
		want string
	}{
		{"Bath Towel", models.CategoryDoblado},
		{"BATH TOWEL", models.CategoryDoblado},
		{"king sheet", models.CategoryMangle},
		{"Sábana Queen", models.CategoryMangle},
		{"Servilletas Blancas", models.CategoryMangle},
		{"Pillowcase", models.CategoryMangle},
		{"Unknown Widget", models.CategoryDoblado},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(tt.name))
		})
	}
}

func TestClassifyOverrideTakesPrecedence(t *testing.T) {
	table := NewRuleTable(3, DefaultRules, map[string]string{
		"Bath  Towel": models.CategoryMangle,
	}, "")

	assert.Equal(t, models.CategoryMangle, table.Classify("bath towel"), "override should beat the towel keyword")
	assert.Equal(t, models.CategoryDoblado, table.Classify("hand towel"), "other towels still follow the keyword")
	assert.Equal(t, uint(3), table.Version)
	assert.Equal(t, models.CategoryDoblado, table.Default)
}

func TestClassifyRuleOrderMatters(t *testing.T) {
	table := NewRuleTable(1, []Rule{
		{Pattern: "towel", Category: models.CategoryDoblado},
		{Pattern: "tablecloth", Category: models.CategoryMangle},
	}, nil, models.CategoryMangle)

	assert.Equal(t, models.CategoryDoblado, table.Classify("towel tablecloth"), "first matching rule wins")
	assert.Equal(t, models.CategoryMangle, table.Classify("apron"), "falls back to the table default")
}

func TestClassifyZeroTableDefaultsToDoblado(t *testing.T) {
	var table RuleTable
	assert.Equal(t, models.CategoryDoblado, table.Classify("anything"))
}

func TestRuleTableIsNapkin(t *testing.T) {
	table := DefaultRuleTable()
	assert.True(t, table.IsNapkin("Servilleta blanca"))
	assert.True(t, table.IsNapkin("Cloth  NAPKIN"))
	assert.False(t, table.IsNapkin("Mantel"))

	var zero RuleTable
	assert.True(t, zero.IsNapkin("napkin"), "zero table uses the built-in family")

	custom := RuleTable{Napkins: []string{"cocktail"}}
	assert.True(t, custom.IsNapkin("Cocktail square"))
	assert.False(t, custom.IsNapkin("napkin"))
}
