package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Legacy collections in import order; later collections reference earlier ones
var LegacyCollections = []string{
	"products",
	"clients",
	"invoices",
	"pickup_groups",
	"pickup_entries",
	"segregation_done_logs",
	"system_alerts",
}

// LegacyDocument is one document read from the legacy store
type LegacyDocument struct {
	ID   string
	Data map[string]interface{}
}

// LegacySource lists the documents of a legacy collection
type LegacySource interface {
	Documents(ctx context.Context, collection string) ([]LegacyDocument, error)
	Close() error
}

// FirestoreSource reads legacy documents from Cloud Firestore
type FirestoreSource struct {
	client *firestore.Client
}

// NewFirestoreSource connects to the project's default database
func NewFirestoreSource(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreSource, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreSource{client: client}, nil
}

// Documents reads every document of collection
func (s *FirestoreSource) Documents(ctx context.Context, collection string) ([]LegacyDocument, error) {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	var docs []LegacyDocument
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", collection, err)
		}
		docs = append(docs, LegacyDocument{ID: doc.Ref.ID, Data: doc.Data()})
	}
	return docs, nil
}

// Close releases the Firestore client
func (s *FirestoreSource) Close() error {
	return s.client.Close()
}

// ImportStats counts what happened to one collection's documents
type ImportStats struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Importer copies legacy documents into the relational schema. Each row
// keeps the document ID in legacy_id so running it again skips what is
// already there.
type Importer struct {
	db     *gorm.DB
	source LegacySource
}

// NewImporter creates an importer writing to db
func NewImporter(db *gorm.DB, source LegacySource) *Importer {
	return &Importer{db: db, source: source}
}

// Run imports the named collections (all of LegacyCollections when empty) in
// dependency order and returns per-collection stats. A document that cannot
// be mapped is logged and counted as failed; read errors stop the run.
func (im *Importer) Run(ctx context.Context, collections []string) (map[string]*ImportStats, error) {
	wanted := make(map[string]bool)
	for _, c := range collections {
		wanted[strings.TrimSpace(c)] = true
	}

	results := make(map[string]*ImportStats)
	for _, collection := range LegacyCollections {
		if len(wanted) > 0 && !wanted[collection] {
			continue
		}
		docs, err := im.source.Documents(ctx, collection)
		if err != nil {
			return results, err
		}

		stats := &ImportStats{}
		results[collection] = stats
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			imported, err := im.importDocument(collection, doc)
			switch {
			case err != nil:
				log.Printf("Import %s/%s failed: %v", collection, doc.ID, err)
				stats.Failed++
			case imported:
				stats.Imported++
			default:
				stats.Skipped++
			}
		}
		log.Printf("Imported %s: %d new, %d skipped, %d failed", collection, stats.Imported, stats.Skipped, stats.Failed)
	}
	return results, nil
}

func (im *Importer) importDocument(collection string, doc LegacyDocument) (bool, error) {
	switch collection {
	case "products":
		return im.importProduct(doc)
	case "clients":
		return im.importClient(doc)
	case "invoices":
		return im.importInvoice(doc)
	case "pickup_groups":
		return im.importPickupGroup(doc)
	case "pickup_entries":
		return im.importPickupEntry(doc)
	case "segregation_done_logs":
		return im.importSegregationLog(doc)
	case "system_alerts":
		return im.importAlert(doc)
	}
	return false, fmt.Errorf("unknown collection %q", collection)
}

func (im *Importer) exists(model interface{}, legacyID string) (bool, error) {
	var count int64
	if err := im.db.Model(model).Where("legacy_id = ?", legacyID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// lookupID maps a legacy document ID to the imported row's ID
func lookupID(db *gorm.DB, model interface{}, legacyID string) (uint, bool) {
	if legacyID == "" {
		return 0, false
	}
	var id uint
	err := db.Model(model).Select("id").Where("legacy_id = ?", legacyID).Limit(1).Scan(&id).Error
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (im *Importer) importProduct(doc LegacyDocument) (bool, error) {
	if found, err := im.exists(&models.Product{}, doc.ID); err != nil || found {
		return false, err
	}
	name := asString(doc.Data["name"])
	if name == "" {
		return false, fmt.Errorf("product has no name")
	}
	product := models.Product{
		Name:     name,
		Price:    decimal.NewFromFloat(asFloat(doc.Data["price"], 0)).Round(2),
		LegacyID: legacyID(doc.ID),
	}
	return true, im.db.Create(&product).Error
}

func (im *Importer) importClient(doc LegacyDocument) (bool, error) {
	if found, err := im.exists(&models.Client{}, doc.ID); err != nil || found {
		return false, err
	}
	d := doc.Data
	name := asString(d["name"])
	if name == "" {
		return false, fmt.Errorf("client has no name")
	}

	var productIDs []uint
	for _, raw := range asSlice(d["selectedProducts"]) {
		if id, ok := lookupID(im.db, &models.Product{}, asString(raw)); ok {
			productIDs = append(productIDs, id)
		}
	}
	var products []models.Product
	if len(productIDs) > 0 {
		if err := im.db.Find(&products, productIDs).Error; err != nil {
			return false, err
		}
	}

	client := models.Client{
		Name:                    name,
		SelectedProducts:        products,
		IsRented:                asBool(d["isRented"]),
		WashingType:             oneOf(asString(d["washingType"]), models.WashingConventional, models.WashingTunnel, models.WashingConventional),
		Segregation:             asBool(d["segregation"]),
		BillingType:             oneOf(asString(d["billingType"]), models.BillingByItem, models.BillingByWeight, models.BillingByItem),
		NeedsInvoice:            asBool(d["needsInvoice"]),
		CompletedOptionPosition: oneOf(asString(d["completedOptionPosition"]), "bottom", "top", "bottom"),
		PrintConfig:             datatypes.NewJSONType(legacyPrintConfig(asMap(d["printConfig"]))),
		LegacyID:                legacyID(doc.ID),
	}
	return true, im.db.Create(&client).Error
}

func legacyPrintConfig(m map[string]interface{}) models.PrintConfig {
	def := models.DefaultPrintConfig()
	if m == nil {
		return def
	}
	margins := asMap(m["margins"])
	cfg := models.PrintConfig{
		PaperSize:      oneOf(asString(m["paperSize"]), def.PaperSize, models.PaperLetter, models.PaperA4, models.PaperLegal, models.PaperHalfLetter),
		Orientation:    oneOf(asString(m["orientation"]), def.Orientation, models.OrientationPortrait, models.OrientationLandscape),
		FontScale:      clamp(asFloat(m["fontScale"], def.FontScale), models.MinFontScale, models.MaxFontScale),
		ContentDisplay: oneOf(asString(m["contentDisplay"]), def.ContentDisplay, models.DisplayDetailed, models.DisplaySummary, models.DisplayWeightOnly, models.DisplayServilletasSummary),
		ShowSignature:  asBool(m["showSignature"]),
		SignatureImage: asString(m["signatureImage"]),
		ShowPrices:     asBool(m["showPrices"]),
		ShowWeight:     true,
		FooterText:     asString(m["footerText"]),
	}
	if v, ok := m["showWeight"]; ok {
		cfg.ShowWeight = asBool(v)
	}
	if margins != nil {
		cfg.Margins = models.Margins{
			Top:    clamp(asFloat(margins["top"], def.Margins.Top), 0, models.MaxMarginMM),
			Right:  clamp(asFloat(margins["right"], def.Margins.Right), 0, models.MaxMarginMM),
			Bottom: clamp(asFloat(margins["bottom"], def.Margins.Bottom), 0, models.MaxMarginMM),
			Left:   clamp(asFloat(margins["left"], def.Margins.Left), 0, models.MaxMarginMM),
		}
	} else {
		cfg.Margins = def.Margins
	}
	if !strings.HasPrefix(cfg.SignatureImage, "data:image/") {
		cfg.SignatureImage = ""
	}
	return cfg
}

// importInvoice turns the embedded carts array into cart and item rows
func (im *Importer) importInvoice(doc LegacyDocument) (bool, error) {
	if found, err := im.exists(&models.Invoice{}, doc.ID); err != nil || found {
		return false, err
	}
	d := doc.Data
	clientID, ok := lookupID(im.db, &models.Client{}, asString(d["clientId"]))
	if !ok {
		return false, fmt.Errorf("invoice references unknown client %q", asString(d["clientId"]))
	}
	clientName := asString(d["clientName"])
	if clientName == "" {
		var client models.Client
		if err := im.db.Select("name").First(&client, clientID).Error; err == nil {
			clientName = client.Name
		}
	}

	date := asTime(d["date"])
	if date == nil {
		date = asTime(d["createdAt"])
	}
	if date == nil {
		now := time.Now()
		date = &now
	}

	invoice := models.Invoice{
		ClientID:       clientID,
		ClientName:     clientName,
		Date:           *date,
		DeliveryDate:   asTime(d["deliveryDate"]),
		VerifiedAt:     asTime(d["verifiedAt"]),
		VerifiedBy:     optionalString(d["verifiedBy"]),
		LockedAt:       asTime(d["lockedAt"]),
		LockedBy:       optionalString(d["lockedBy"]),
		TotalWeight:    math.Max(asFloat(d["totalWeight"], 0), 0),
		SpecialService: asBool(d["specialService"]),
		Notes:          asString(d["notes"]),
		Revision:       1,
		LegacyID:       legacyID(doc.ID),
	}

	err := im.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		for i, rawCart := range asSlice(d["carts"]) {
			c := asMap(rawCart)
			if c == nil {
				continue
			}
			cartName := asString(c["name"])
			if cartName == "" {
				cartName = fmt.Sprintf("Cart %d", i+1)
			}
			cart := models.Cart{
				InvoiceID: invoice.ID,
				Name:      cartName,
				CreatedBy: asString(c["createdBy"]),
				Revision:  1,
			}
			if created := asTime(c["createdAt"]); created != nil {
				cart.CreatedAt = *created
			}
			if err := tx.Create(&cart).Error; err != nil {
				return err
			}
			for _, rawItem := range asSlice(c["items"]) {
				item, ok := im.legacyItem(tx, cart, asMap(rawItem))
				if !ok {
					continue
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	return err == nil, err
}

// legacyItem maps an embedded item; items with no usable quantity are dropped
func (im *Importer) legacyItem(tx *gorm.DB, cart models.Cart, m map[string]interface{}) (models.CartItem, bool) {
	if m == nil {
		return models.CartItem{}, false
	}
	quantity := asInt(m["quantity"], 0)
	if quantity <= 0 {
		return models.CartItem{}, false
	}

	item := models.CartItem{
		CartID:      cart.ID,
		ProductName: asString(m["productName"]),
		Quantity:    quantity,
		UnitPrice:   decimal.NewFromFloat(math.Max(asFloat(m["price"], 0), 0)).Round(2),
		AddedBy:     asString(m["addedBy"]),
		AddedAt:     cart.CreatedAt,
		Revision:    1,
	}
	if added := asTime(m["addedAt"]); added != nil {
		item.AddedAt = *added
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}

	var product models.Product
	legacyProduct := asString(m["productId"])
	if id, ok := lookupID(tx, &models.Product{}, legacyProduct); ok {
		product.ID = id
	}
	if product.ID != 0 {
		if err := tx.First(&product, product.ID).Error; err != nil {
			return models.CartItem{}, false
		}
	} else if item.ProductName != "" {
		if err := tx.Where("name = ?", item.ProductName).First(&product).Error; err != nil {
			return models.CartItem{}, false
		}
	} else {
		return models.CartItem{}, false
	}
	item.ProductID = product.ID
	if item.ProductName == "" {
		item.ProductName = product.Name
	}
	return item, true
}

func (im *Importer) importPickupGroup(doc LegacyDocument) (bool, error) {
	if found, err := im.exists(&models.PickupGroup{}, doc.ID); err != nil || found {
		return false, err
	}
	d := doc.Data
	clientID, ok := lookupID(im.db, &models.Client{}, asString(d["clientId"]))
	if !ok {
		return false, fmt.Errorf("group references unknown client %q", asString(d["clientId"]))
	}
	start := asTime(d["startTime"])
	if start == nil {
		start = asTime(d["createdAt"])
	}
	if start == nil {
		return false, fmt.Errorf("group has no start time")
	}
	group := models.PickupGroup{
		ClientID:        clientID,
		ClientName:      asString(d["clientName"]),
		WashingType:     oneOf(asString(d["washingType"]), models.WashingConventional, models.WashingTunnel, models.WashingConventional),
		Status:          oneOf(asString(d["status"]), models.GroupCollecting, models.GroupCollecting, models.GroupSegregating, models.GroupWashing, models.GroupCompleted),
		StartTime:       *start,
		EndTime:         asTime(d["endTime"]),
		TotalWeight:     math.Max(asFloat(d["totalWeight"], 0), 0),
		NumCarts:        max(asInt(d["numCarts"], 0), 0),
		SegregatedCarts: max(asInt(d["segregatedCarts"], 0), 0),
		LegacyID:        legacyID(doc.ID),
	}
	return true, im.db.Create(&group).Error
}

func (im *Importer) importPickupEntry(doc LegacyDocument) (bool, error) {
	if found, err := im.exists(&models.PickupEntry{}, doc.ID); err != nil || found {
		return false, err
	}
	d := doc.Data
	clientID, ok := lookupID(im.db, &models.Client{}, asString(d["clientId"]))
	if !ok {
		return false, fmt.Errorf("entry references unknown client %q", asString(d["clientId"]))
	}
	ts := asTime(d["timestamp"])
	if ts == nil {
		return false, fmt.Errorf("entry has no timestamp")
	}
	entry := models.PickupEntry{
		ClientID:   clientID,
		ClientName: asString(d["clientName"]),
		DriverName: asString(d["driverName"]),
		Weight:     math.Max(asFloat(d["weight"], 0), 0),
		CartCount:  max(asInt(d["cartCount"], 0), 0),
		Timestamp:  *ts,
		LegacyID:   legacyID(doc.ID),
	}
	if groupID, ok := lookupID(im.db, &models.PickupGroup{}, asString(d["groupId"])); ok {
		entry.GroupID = &groupID
	}
	return true, im.db.Create(&entry).Error
}

func (im *Importer) importSegregationLog(doc LegacyDocument) (bool, error) {
	if found, err := im.exists(&models.SegregationDoneLog{}, doc.ID); err != nil || found {
		return false, err
	}
	d := doc.Data
	groupID, ok := lookupID(im.db, &models.PickupGroup{}, asString(d["groupId"]))
	if !ok {
		return false, fmt.Errorf("log references unknown group %q", asString(d["groupId"]))
	}
	clientID, _ := lookupID(im.db, &models.Client{}, asString(d["clientId"]))
	done := asTime(d["timestamp"])
	if done == nil {
		done = asTime(d["doneAt"])
	}
	if done == nil {
		return false, fmt.Errorf("log has no timestamp")
	}
	entry := models.SegregationDoneLog{
		GroupID:      groupID,
		ClientID:     clientID,
		ClientName:   asString(d["clientName"]),
		Weight:       math.Max(asFloat(d["weight"], 0), 0),
		Carts:        max(asInt(d["carts"], 0), 0),
		SegregatedBy: asString(d["segregatedBy"]),
		DoneAt:       *done,
		LegacyID:     legacyID(doc.ID),
	}
	return true, im.db.Create(&entry).Error
}

func (im *Importer) importAlert(doc LegacyDocument) (bool, error) {
	if found, err := im.exists(&models.SystemAlert{}, doc.ID); err != nil || found {
		return false, err
	}
	d := doc.Data
	message := asString(d["message"])
	if message == "" {
		return false, fmt.Errorf("alert has no message")
	}
	alertType := asString(d["type"])
	if !models.IsValidAlertType(alertType) {
		alertType = models.AlertSystem
	}
	severity := asString(d["severity"])
	if models.SeverityRank(severity) == 0 {
		severity = models.SeverityMedium
	}
	alert := models.SystemAlert{
		Type:            alertType,
		Severity:        severity,
		Message:         message,
		Component:       asString(d["component"]),
		CreatedBy:       asString(d["createdBy"]),
		IsRead:          asBool(d["isRead"]),
		ReadAt:          asTime(d["readAt"]),
		IsResolved:      asBool(d["isResolved"]),
		ResolvedAt:      asTime(d["resolvedAt"]),
		ResolvedBy:      optionalString(d["resolvedBy"]),
		ResolutionNotes: asString(d["resolutionNotes"]),
		LegacyID:        legacyID(doc.ID),
	}
	if created := asTime(d["createdAt"]); created != nil {
		alert.CreatedAt = *created
	}
	return true, im.db.Create(&alert).Error
}

func legacyID(id string) *string {
	return &id
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case *firestore.DocumentRef:
		if t != nil {
			return t.ID
		}
	case fmt.Stringer:
		return t.String()
	case int64, float64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

func optionalString(v interface{}) *string {
	s := asString(v)
	if s == "" {
		return nil
	}
	return &s
}

// asFloat coerces numbers and numeric strings; NaN, infinities and anything
// else yield def
func asFloat(v interface{}, def float64) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

func asInt(v interface{}, def int) int {
	f := asFloat(v, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(math.Round(f))
}

func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

// asTime accepts Firestore timestamps, RFC 3339 / date strings and epoch
// milliseconds
func asTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return &parsed
			}
		}
	case int64:
		ts := time.UnixMilli(t)
		return &ts
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		ts := time.UnixMilli(int64(t))
		return &ts
	}
	return nil
}

func asSlice(v interface{}) []interface{} {
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return nil
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return nil
}

// oneOf returns v when it is one of allowed, def otherwise
func oneOf(v, def string, allowed ...string) string {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
