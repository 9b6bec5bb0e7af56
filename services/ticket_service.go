package services

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/kendall-kelly/linen-ops-api/analytics"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/utils"
	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

const (
	ticketBaseFontSize = 10.0
	ticketLineHeight   = 5.0
	signatureWidthMM   = 50.0
)

// RenderDeliveryTicket writes the delivery ticket PDF for invoice to w using
// the given print configuration
func RenderDeliveryTicket(w io.Writer, invoice *models.Invoice, client *models.Client, cfg models.PrintConfig, rules analytics.RuleTable) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if invoice == nil {
		return validationf("invoice is required")
	}

	pdf := newTicketPDF(cfg)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	r := &ticketRenderer{pdf: pdf, tr: tr, cfg: cfg}

	pdf.AddPage()
	r.header(invoice, client)

	switch cfg.ContentDisplay {
	case models.DisplayDetailed:
		r.detailed(invoice)
	case models.DisplaySummary:
		r.summary(analytics.InvoiceItems(*invoice))
	case models.DisplayWeightOnly:
		r.weightOnly(invoice)
	case models.DisplayServilletasSummary:
		r.servilletas(analytics.InvoiceItems(*invoice), rules)
	}

	if cfg.ContentDisplay != models.DisplayWeightOnly {
		r.totals(invoice, rules)
	}
	if err := r.signature(); err != nil {
		return err
	}
	r.footer()

	if pdf.Err() {
		return fmt.Errorf("failed to render ticket: %w", pdf.Error())
	}
	return pdf.Output(w)
}

// RenderDeliveryTicketBytes renders the ticket into memory
func RenderDeliveryTicketBytes(invoice *models.Invoice, client *models.Client, cfg models.PrintConfig, rules analytics.RuleTable) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderDeliveryTicket(&buf, invoice, client, cfg, rules); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newTicketPDF(cfg models.PrintConfig) *gofpdf.Fpdf {
	orientation := "P"
	if cfg.Orientation == models.OrientationLandscape {
		orientation = "L"
	}
	init := &gofpdf.InitType{OrientationStr: orientation, UnitStr: "mm"}
	switch cfg.PaperSize {
	case models.PaperA4:
		init.SizeStr = "A4"
	case models.PaperLegal:
		init.SizeStr = "Legal"
	case models.PaperHalfLetter:
		init.Size = gofpdf.SizeType{Wd: 139.7, Ht: 215.9}
	default:
		init.SizeStr = "Letter"
	}

	pdf := gofpdf.NewCustom(init)
	pdf.SetMargins(cfg.Margins.Left, cfg.Margins.Top, cfg.Margins.Right)
	pdf.SetAutoPageBreak(true, cfg.Margins.Bottom)
	pdf.SetTitle("Delivery ticket", true)
	pdf.SetCreator("linen-ops-api", true)
	return pdf
}

type ticketRenderer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	cfg models.PrintConfig
}

func (r *ticketRenderer) font(style string, size float64) {
	r.pdf.SetFont("Helvetica", style, size*r.cfg.FontScale)
}

func (r *ticketRenderer) lineHeight() float64 {
	return ticketLineHeight * r.cfg.FontScale
}

func (r *ticketRenderer) contentWidth() float64 {
	w, _ := r.pdf.GetPageSize()
	left, _, right, _ := r.pdf.GetMargins()
	return w - left - right
}

func (r *ticketRenderer) header(invoice *models.Invoice, client *models.Client) {
	lh := r.lineHeight()
	clientName := invoice.ClientName
	if client != nil && client.Name != "" {
		clientName = client.Name
	}

	r.font("B", ticketBaseFontSize+4)
	r.pdf.CellFormat(0, lh+2, r.tr("Delivery Ticket"), "", 1, "C", false, 0, "")
	r.font("", ticketBaseFontSize)
	r.pdf.CellFormat(0, lh, r.tr(fmt.Sprintf("Invoice #%d", invoice.ID)), "", 1, "L", false, 0, "")
	r.pdf.CellFormat(0, lh, r.tr("Client: "+clientName), "", 1, "L", false, 0, "")
	r.pdf.CellFormat(0, lh, "Date: "+invoice.Date.Format("2006-01-02"), "", 1, "L", false, 0, "")
	if invoice.DeliveryDate != nil {
		r.pdf.CellFormat(0, lh, "Delivery: "+invoice.DeliveryDate.Format("2006-01-02"), "", 1, "L", false, 0, "")
	}
	if invoice.SpecialService {
		r.font("B", ticketBaseFontSize)
		r.pdf.CellFormat(0, lh, "SPECIAL SERVICE", "", 1, "L", false, 0, "")
	}
	r.pdf.Ln(lh / 2)
}

// columns returns the widths for product, quantity, unit price and amount
func (r *ticketRenderer) columns() (product, qty, price, amount float64) {
	width := r.contentWidth()
	if !r.cfg.ShowPrices {
		return width * 0.75, width * 0.25, 0, 0
	}
	return width * 0.46, width * 0.14, width * 0.2, width * 0.2
}

func (r *ticketRenderer) tableHeader() {
	lh := r.lineHeight()
	product, qty, price, amount := r.columns()
	r.font("B", ticketBaseFontSize)
	r.pdf.CellFormat(product, lh, "Product", "B", 0, "L", false, 0, "")
	if r.cfg.ShowPrices {
		r.pdf.CellFormat(qty, lh, "Qty", "B", 0, "R", false, 0, "")
		r.pdf.CellFormat(price, lh, "Unit", "B", 0, "R", false, 0, "")
		r.pdf.CellFormat(amount, lh, "Amount", "B", 1, "R", false, 0, "")
	} else {
		r.pdf.CellFormat(qty, lh, "Qty", "B", 1, "R", false, 0, "")
	}
	r.font("", ticketBaseFontSize)
}

func (r *ticketRenderer) row(name string, quantity int, unit, amount decimal.Decimal, bold bool) {
	lh := r.lineHeight()
	productW, qtyW, priceW, amountW := r.columns()
	style := ""
	if bold {
		style = "B"
	}
	r.font(style, ticketBaseFontSize)
	r.pdf.CellFormat(productW, lh, r.tr(name), "", 0, "L", false, 0, "")
	if r.cfg.ShowPrices {
		r.pdf.CellFormat(qtyW, lh, fmt.Sprintf("%d", quantity), "", 0, "R", false, 0, "")
		r.pdf.CellFormat(priceW, lh, unit.StringFixed(2), "", 0, "R", false, 0, "")
		r.pdf.CellFormat(amountW, lh, amount.StringFixed(2), "", 1, "R", false, 0, "")
	} else {
		r.pdf.CellFormat(qtyW, lh, fmt.Sprintf("%d", quantity), "", 1, "R", false, 0, "")
	}
}

func (r *ticketRenderer) detailed(invoice *models.Invoice) {
	lh := r.lineHeight()
	if len(invoice.Carts) == 0 {
		r.pdf.CellFormat(0, lh, "No carts", "", 1, "L", false, 0, "")
		return
	}
	for _, cart := range invoice.Carts {
		r.font("B", ticketBaseFontSize+1)
		r.pdf.CellFormat(0, lh+1, r.tr(fmt.Sprintf("%s (%d items)", cart.Name, analytics.CartTotalItems(cart))), "", 1, "L", false, 0, "")
		r.tableHeader()
		for _, item := range cart.Items {
			r.row(item.ProductName, item.Quantity, item.UnitPrice, item.LineTotal(), false)
		}
		r.pdf.Ln(lh / 2)
	}
}

func (r *ticketRenderer) summary(items []models.CartItem) {
	r.tableHeader()
	for _, total := range analytics.ProductTotals(items) {
		r.row(total.ProductName, total.Quantity, unitPrice(total), total.Amount, false)
	}
	r.pdf.Ln(r.lineHeight() / 2)
}

func (r *ticketRenderer) servilletas(items []models.CartItem, rules analytics.RuleTable) {
	r.tableHeader()
	napkins := 0
	napkinAmount := decimal.Zero
	for _, total := range analytics.ProductTotals(items) {
		isNapkin := rules.IsNapkin(total.ProductName)
		if isNapkin {
			napkins += total.Quantity
			napkinAmount = napkinAmount.Add(total.Amount)
		}
		r.row(total.ProductName, total.Quantity, unitPrice(total), total.Amount, isNapkin)
	}
	r.pdf.Ln(r.lineHeight() / 2)

	lh := r.lineHeight()
	r.font("B", ticketBaseFontSize+2)
	r.pdf.SetFillColor(230, 230, 230)
	label := fmt.Sprintf("Servilletas: %d", napkins)
	if r.cfg.ShowPrices {
		label += "   " + napkinAmount.StringFixed(2)
	}
	r.pdf.CellFormat(0, lh+2, r.tr(label), "1", 1, "C", true, 0, "")
	r.pdf.Ln(lh / 2)
}

func (r *ticketRenderer) weightOnly(invoice *models.Invoice) {
	lh := r.lineHeight()
	r.font("B", ticketBaseFontSize+6)
	r.pdf.CellFormat(0, lh*2, fmt.Sprintf("Total weight: %.1f lb", invoice.TotalWeight), "1", 1, "C", false, 0, "")
	r.pdf.Ln(lh)
}

func (r *ticketRenderer) totals(invoice *models.Invoice, rules analytics.RuleTable) {
	lh := r.lineHeight()
	items := analytics.InvoiceItems(*invoice)
	split := analytics.CategorySplit(items, rules)

	r.font("B", ticketBaseFontSize)
	r.pdf.CellFormat(0, lh, fmt.Sprintf("Total items: %d", analytics.InvoiceTotalItems(*invoice)), "T", 1, "L", false, 0, "")
	r.font("", ticketBaseFontSize)
	r.pdf.CellFormat(0, lh, fmt.Sprintf("Mangle: %d (%.1f%%)   Doblado: %d (%.1f%%)",
		split.MangleQuantity, split.ManglePercent, split.DobladoQuantity, split.DobladoPercent), "", 1, "L", false, 0, "")
	if r.cfg.ShowWeight {
		r.pdf.CellFormat(0, lh, fmt.Sprintf("Total weight: %.1f lb", invoice.TotalWeight), "", 1, "L", false, 0, "")
	}
	if r.cfg.ShowPrices {
		r.font("B", ticketBaseFontSize)
		r.pdf.CellFormat(0, lh, "Total: "+analytics.InvoiceAmount(*invoice).StringFixed(2), "", 1, "L", false, 0, "")
	}
	r.pdf.Ln(lh)
}

func (r *ticketRenderer) signature() error {
	if !r.cfg.ShowSignature {
		return nil
	}
	lh := r.lineHeight()
	if r.cfg.SignatureImage != "" {
		mediaType, data, err := utils.DecodeDataURL(r.cfg.SignatureImage)
		if err != nil {
			return fmt.Errorf("%w: signature_image: %v", ErrValidation, err)
		}
		imageType := ""
		switch mediaType {
		case "image/png":
			imageType = "PNG"
		case "image/jpeg", "image/jpg":
			imageType = "JPG"
		default:
			return validationf("signature_image must be PNG or JPEG, got %s", mediaType)
		}
		opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
		r.pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(data))
		if r.pdf.Err() {
			return fmt.Errorf("%w: signature_image: %v", ErrValidation, r.pdf.Error())
		}
		r.pdf.ImageOptions("signature", r.pdf.GetX(), r.pdf.GetY(), signatureWidthMM, 0, true, opts, 0, "")
	} else {
		r.pdf.Ln(lh * 2)
	}
	r.font("", ticketBaseFontSize)
	r.pdf.CellFormat(signatureWidthMM+20, lh, "Received by", "T", 1, "L", false, 0, "")
	return nil
}

func (r *ticketRenderer) footer() {
	text := strings.TrimSpace(r.cfg.FooterText)
	if text == "" {
		return
	}
	r.pdf.Ln(r.lineHeight())
	r.font("I", ticketBaseFontSize-1)
	r.pdf.MultiCell(0, r.lineHeight(), r.tr(text), "", "C", false)
}

func unitPrice(total analytics.ProductTotal) decimal.Decimal {
	if total.Quantity == 0 {
		return decimal.Zero
	}
	return total.Amount.Div(decimal.NewFromInt(int64(total.Quantity))).Round(2)
}
