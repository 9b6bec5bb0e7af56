package models

import (
	"fmt"
	"strings"
)

// Paper sizes supported by the delivery ticket renderer
const (
	PaperLetter     = "letter"
	PaperA4         = "a4"
	PaperLegal      = "legal"
	PaperHalfLetter = "half-letter"
)

// Ticket content display modes
const (
	DisplayDetailed           = "detailed"
	DisplaySummary            = "summary"
	DisplayWeightOnly         = "weight-only"
	DisplayServilletasSummary = "servilletas-summary"
)

// Page orientations
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

const (
	MinFontScale = 0.5
	MaxFontScale = 2.0
	MaxMarginMM  = 50.0
)

// Margins are expressed in millimetres
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// PrintConfig controls how a client's delivery tickets are rendered
type PrintConfig struct {
	PaperSize      string  `json:"paper_size"`
	Orientation    string  `json:"orientation"`
	Margins        Margins `json:"margins"`
	FontScale      float64 `json:"font_scale"`
	ContentDisplay string  `json:"content_display"`
	ShowSignature  bool    `json:"show_signature"`
	SignatureImage string  `json:"signature_image,omitempty"` // data:image/png;base64,...
	ShowPrices     bool    `json:"show_prices"`
	ShowWeight     bool    `json:"show_weight"`
	FooterText     string  `json:"footer_text,omitempty"`
}

// DefaultPrintConfig is used for clients that never customised their tickets
func DefaultPrintConfig() PrintConfig {
	return PrintConfig{
		PaperSize:      PaperLetter,
		Orientation:    OrientationPortrait,
		Margins:        Margins{Top: 10, Right: 10, Bottom: 10, Left: 10},
		FontScale:      1,
		ContentDisplay: DisplayDetailed,
		ShowWeight:     true,
	}
}

// WithDefaults fills zero values with the defaults
func (p PrintConfig) WithDefaults() PrintConfig {
	def := DefaultPrintConfig()
	if p.PaperSize == "" {
		p.PaperSize = def.PaperSize
	}
	if p.Orientation == "" {
		p.Orientation = def.Orientation
	}
	if p.Margins == (Margins{}) {
		p.Margins = def.Margins
	}
	if p.FontScale == 0 {
		p.FontScale = def.FontScale
	}
	if p.ContentDisplay == "" {
		p.ContentDisplay = def.ContentDisplay
	}
	return p
}

// Validate checks every enumerated field and numeric range
func (p PrintConfig) Validate() error {
	switch p.PaperSize {
	case PaperLetter, PaperA4, PaperLegal, PaperHalfLetter:
	default:
		return fmt.Errorf("invalid paper_size %q", p.PaperSize)
	}
	switch p.Orientation {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("invalid orientation %q", p.Orientation)
	}
	if !IsValidContentDisplay(p.ContentDisplay) {
		return fmt.Errorf("invalid content_display %q", p.ContentDisplay)
	}
	if p.FontScale < MinFontScale || p.FontScale > MaxFontScale {
		return fmt.Errorf("font_scale must be between %.1f and %.1f", MinFontScale, MaxFontScale)
	}
	for name, m := range map[string]float64{
		"top": p.Margins.Top, "right": p.Margins.Right, "bottom": p.Margins.Bottom, "left": p.Margins.Left,
	} {
		if m < 0 || m > MaxMarginMM {
			return fmt.Errorf("margin %s must be between 0 and %.0f mm", name, MaxMarginMM)
		}
	}
	if p.ShowSignature && p.SignatureImage != "" && !strings.HasPrefix(p.SignatureImage, "data:image/") {
		return fmt.Errorf("signature_image must be a data URL")
	}
	return nil
}

// IsValidContentDisplay reports whether mode is a known ticket content mode
func IsValidContentDisplay(mode string) bool {
	switch mode {
	case DisplayDetailed, DisplaySummary, DisplayWeightOnly, DisplayServilletasSummary:
		return true
	}
	return false
}
