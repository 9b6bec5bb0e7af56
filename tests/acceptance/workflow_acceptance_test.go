package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/routes"
	"github.com/kendall-kelly/linen-ops-api/services"
	"github.com/kendall-kelly/linen-ops-api/tests/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const (
	adminSub    = "auth0|admin"
	operatorSub = "auth0|operator"
	driverSub   = "auth0|driver"
)

// WorkflowAcceptanceTestSuite walks through a day at the plant over a real
// HTTP server: pickups, segregation, invoicing, delivery ticket and alerts.
type WorkflowAcceptanceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	server   *httptest.Server
	notifier *services.MockNotifier
}

// SetupSuite runs once before all tests
func (s *WorkflowAcceptanceTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

// SetupTest gives every test a fresh database and server
func (s *WorkflowAcceptanceTestSuite) SetupTest() {
	cfg := &config.Config{GoEnv: "test", Timezone: "UTC"}
	config.SetConfig(cfg)

	s.db = testutil.NewTestDB(s.T())
	testutil.SeedUser(s.T(), s.db, adminSub, "Ana Admin", models.RoleAdmin)
	testutil.SeedUser(s.T(), s.db, operatorSub, "Omar Operator", models.RoleOperator)
	testutil.SeedUser(s.T(), s.db, driverSub, "Diego Driver", models.RoleDriver)

	_, err := services.InitSettingsStore(s.db, "")
	s.Require().NoError(err)
	s.notifier = services.NewMockNotifier()
	s.notifier.SetAsMockForTesting()

	s.server = httptest.NewServer(routes.SetupRouter(cfg, testutil.MockAuthMiddleware()))
}

// TearDownTest runs after each test
func (s *WorkflowAcceptanceTestSuite) TearDownTest() {
	s.server.Close()
	services.SetNotifier(nil)
	services.SetSettingsStore(nil)
}

// call makes a request as subject and decodes the JSON envelope
func (s *WorkflowAcceptanceTestSuite) call(method, path, subject string, body interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", subject)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var envelope map[string]interface{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func dataOf(envelope map[string]interface{}) map[string]interface{} {
	return envelope["data"].(map[string]interface{})
}

func idOf(envelope map[string]interface{}) uint {
	return uint(dataOf(envelope)["id"].(float64))
}

func (s *WorkflowAcceptanceTestSuite) TestShiftWorkflow() {
	// Admin sets up the catalogue and the client
	status, resp := s.call(http.MethodPost, "/api/v1/products", adminSub, gin.H{"name": "King Sheet", "price": "2.50"})
	s.Require().Equal(http.StatusCreated, status, resp)
	sheet := idOf(resp)
	status, resp = s.call(http.MethodPost, "/api/v1/products", adminSub, gin.H{"name": "Bath Towel", "price": "1.00"})
	s.Require().Equal(http.StatusCreated, status, resp)
	towel := idOf(resp)

	status, resp = s.call(http.MethodPost, "/api/v1/clients", adminSub, gin.H{
		"name":              "Hotel Marina",
		"washing_type":      models.WashingTunnel,
		"selected_products": []uint{sheet, towel},
	})
	s.Require().Equal(http.StatusCreated, status, resp)
	client := idOf(resp)

	// Driver brings in two loads
	status, resp = s.call(http.MethodPost, "/api/v1/pickup-groups", driverSub, gin.H{"client_id": client})
	s.Require().Equal(http.StatusCreated, status, resp)
	group := idOf(resp)
	for _, weight := range []float64{80, 40} {
		status, resp = s.call(http.MethodPost, "/api/v1/pickup-entries", driverSub, gin.H{
			"client_id": client, "group_id": group, "weight": weight, "cart_count": 2,
		})
		s.Require().Equal(http.StatusCreated, status, resp)
	}

	status, resp = s.call(http.MethodGet, fmt.Sprintf("/api/v1/pickup-groups/%d", group), operatorSub, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(float64(120), dataOf(resp)["total_weight"])
	s.Equal(float64(4), dataOf(resp)["num_carts"])

	status, _ = s.call(http.MethodPost, fmt.Sprintf("/api/v1/pickup-groups/%d/segregation-done", group), operatorSub, nil)
	s.Require().Equal(http.StatusCreated, status)

	// Operator builds the invoice cart by cart
	status, resp = s.call(http.MethodPost, "/api/v1/invoices", operatorSub, gin.H{"client_id": client, "total_weight": 120})
	s.Require().Equal(http.StatusCreated, status, resp)
	invoice := idOf(resp)

	status, resp = s.call(http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/carts", invoice), operatorSub, gin.H{"name": "Cart 1"})
	s.Require().Equal(http.StatusCreated, status, resp)
	cart := idOf(resp)
	for _, line := range []gin.H{{"product_id": sheet, "quantity": 10}, {"product_id": towel, "quantity": 10}} {
		status, resp = s.call(http.MethodPost, fmt.Sprintf("/api/v1/carts/%d/items", cart), operatorSub, line)
		s.Require().Equal(http.StatusCreated, status, resp)
	}

	status, resp = s.call(http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d/summary", invoice), operatorSub, nil)
	s.Require().Equal(http.StatusOK, status, resp)
	summary := dataOf(resp)
	s.Equal(float64(20), summary["total_items"])
	s.Equal("35", summary["amount"])
	split := summary["category_split"].(map[string]interface{})
	s.Equal(float64(50), split["mangle_percent"])
	s.Equal(float64(50), split["doblado_percent"])

	// Towels move to the mangle; the summary picks up the new rules
	status, resp = s.call(http.MethodPut, "/api/v1/settings", adminSub, gin.H{
		"version":                  1,
		"classification_overrides": gin.H{"Bath Towel": models.CategoryMangle},
	})
	s.Require().Equal(http.StatusOK, status, resp)
	_, resp = s.call(http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d/summary", invoice), operatorSub, nil)
	split = dataOf(resp)["category_split"].(map[string]interface{})
	s.Equal(float64(100), split["mangle_percent"])
	s.Equal(float64(2), dataOf(resp)["rules_version"])

	// Verify, lock, then the ticket
	status, _ = s.call(http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/verify", invoice), operatorSub, nil)
	s.Require().Equal(http.StatusOK, status)
	status, _ = s.call(http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/lock", invoice), operatorSub, nil)
	s.Require().Equal(http.StatusOK, status)
	status, resp = s.call(http.MethodPost, fmt.Sprintf("/api/v1/carts/%d/items", cart), operatorSub, gin.H{"product_id": sheet, "quantity": 1})
	s.Equal(http.StatusLocked, status)
	s.Equal("INVOICE_LOCKED", resp["error"].(map[string]interface{})["code"])

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/invoices/%d/ticket", s.server.URL, invoice), nil)
	s.Require().NoError(err)
	req.Header.Set("X-Test-User", operatorSub)
	ticket, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer ticket.Body.Close()
	s.Equal(http.StatusOK, ticket.StatusCode)
	s.Equal("application/pdf", ticket.Header.Get("Content-Type"))
	pdf, err := io.ReadAll(ticket.Body)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(pdf, []byte("%PDF")))

	// Client overview shows the day's work
	status, resp = s.call(http.MethodGet, "/api/v1/analytics/clients", operatorSub, nil)
	s.Require().Equal(http.StatusOK, status, resp)
	s.Len(resp["data"], 1)
}

func (s *WorkflowAcceptanceTestSuite) TestOverdueInvoiceRaisesAlertOnce() {
	customer := models.Client{Name: "Clinica Norte"}
	s.Require().NoError(s.db.Create(&customer).Error)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	status, resp := s.call(http.MethodPost, "/api/v1/invoices", operatorSub, gin.H{
		"client_id": customer.ID, "delivery_date": yesterday,
	})
	s.Require().Equal(http.StatusCreated, status, resp)

	scheduler := services.NewAlertScheduler(s.db, services.NewAlertService(s.db, nil))
	raised, err := scheduler.CheckOverdueInvoices()
	s.Require().NoError(err)
	s.Equal(1, raised)
	raised, err = scheduler.CheckOverdueInvoices()
	s.Require().NoError(err)
	s.Zero(raised, "an unresolved alert is not raised twice")
	s.Len(s.notifier.Notified(), 1)

	status, resp = s.call(http.MethodGet, "/api/v1/alerts?type=invoice&resolved=false", driverSub, nil)
	s.Require().Equal(http.StatusOK, status, resp)
	alerts := resp["data"].([]interface{})
	s.Require().Len(alerts, 1)
	alert := alerts[0].(map[string]interface{})
	s.Equal(models.SeverityHigh, alert["severity"])

	status, resp = s.call(http.MethodPost, fmt.Sprintf("/api/v1/alerts/%d/resolve", uint(alert["id"].(float64))), operatorSub, gin.H{"notes": "delivered late"})
	s.Require().Equal(http.StatusOK, status, resp)
	s.Equal("Omar Operator", dataOf(resp)["resolved_by"])

	status, resp = s.call(http.MethodGet, "/api/v1/analytics/alerts/employees", operatorSub, nil)
	s.Require().Equal(http.StatusOK, status, resp)
	s.Equal(float64(1), dataOf(resp)["total"])
}

func TestWorkflowAcceptanceTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowAcceptanceTestSuite))
}
