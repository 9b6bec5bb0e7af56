package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "clients", Client{}.TableName())
	assert.Equal(t, "products", Product{}.TableName())
	assert.Equal(t, "invoices", Invoice{}.TableName())
	assert.Equal(t, "carts", Cart{}.TableName())
	assert.Equal(t, "cart_items", CartItem{}.TableName())
	assert.Equal(t, "pickup_groups", PickupGroup{}.TableName())
	assert.Equal(t, "pickup_entries", PickupEntry{}.TableName())
	assert.Equal(t, "segregation_done_logs", SegregationDoneLog{}.TableName())
	assert.Equal(t, "system_alerts", SystemAlert{}.TableName())
	assert.Equal(t, "operator_settings", OperatorSettings{}.TableName())
	assert.Len(t, All(), 11)
}

func TestCartItemLineTotal(t *testing.T) {
	item := CartItem{Quantity: 12, UnitPrice: decimal.RequireFromString("1.25")}
	assert.True(t, decimal.RequireFromString("15").Equal(item.LineTotal()))
}

func TestInvoiceLockAndVerifyFlags(t *testing.T) {
	inv := Invoice{}
	assert.False(t, inv.IsLocked())
	assert.False(t, inv.IsVerified())

	now := testTime()
	inv.LockedAt = &now
	inv.VerifiedAt = &now
	assert.True(t, inv.IsLocked())
	assert.True(t, inv.IsVerified())
}

func TestClientEffectivePrintConfig(t *testing.T) {
	client := Client{}
	cfg := client.EffectivePrintConfig()
	def := DefaultPrintConfig()
	assert.Equal(t, def.PaperSize, cfg.PaperSize, "zero config should fall back to defaults")
	assert.Equal(t, def.Margins, cfg.Margins)
	assert.Equal(t, def.ContentDisplay, cfg.ContentDisplay)
	assert.Equal(t, def.FontScale, cfg.FontScale)

	client.PrintConfig = datatypes.NewJSONType(PrintConfig{ContentDisplay: DisplaySummary, FontScale: 1.5})
	cfg = client.EffectivePrintConfig()
	assert.Equal(t, DisplaySummary, cfg.ContentDisplay)
	assert.Equal(t, 1.5, cfg.FontScale)
	assert.Equal(t, PaperLetter, cfg.PaperSize)
}

func TestClientPrintConfigJSON(t *testing.T) {
	client := Client{Name: "Hotel Caribe", PrintConfig: datatypes.NewJSONType(DefaultPrintConfig())}
	raw, err := json.Marshal(client)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &decoded))
	pc := decoded["print_config"].(map[string]interface{})
	assert.Equal(t, "letter", pc["paper_size"])
	assert.Equal(t, "detailed", pc["content_display"])
}

func TestPrintConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PrintConfig)
		wantErr bool
	}{
		{"defaults are valid", func(p *PrintConfig) {}, false},
		{"every content mode", func(p *PrintConfig) { p.ContentDisplay = DisplayServilletasSummary }, false},
		{"unknown paper", func(p *PrintConfig) { p.PaperSize = "tabloid" }, true},
		{"unknown orientation", func(p *PrintConfig) { p.Orientation = "diagonal" }, true},
		{"unknown content mode", func(p *PrintConfig) { p.ContentDisplay = "everything" }, true},
		{"font scale too small", func(p *PrintConfig) { p.FontScale = 0.1 }, true},
		{"font scale too large", func(p *PrintConfig) { p.FontScale = 3 }, true},
		{"negative margin", func(p *PrintConfig) { p.Margins.Left = -1 }, true},
		{"huge margin", func(p *PrintConfig) { p.Margins.Top = 80 }, true},
		{"signature must be data url", func(p *PrintConfig) {
			p.ShowSignature = true
			p.SignatureImage = "https://example.com/sig.png"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPrintConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnumHelpers(t *testing.T) {
	assert.True(t, IsValidGroupStatus(GroupSegregating))
	assert.False(t, IsValidGroupStatus("lost"))
	assert.True(t, IsValidAlertType(AlertTunnel))
	assert.False(t, IsValidAlertType("weather"))
	assert.True(t, IsValidCategory(CategoryMangle))
	assert.False(t, IsValidCategory("mangle"))
	assert.Greater(t, SeverityRank(SeverityCritical), SeverityRank(SeverityHigh))
	assert.Equal(t, 0, SeverityRank("unknown"))
}
