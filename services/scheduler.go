package services

import (
	"fmt"
	"log"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StalledGroupAfter is how long a group may sit in segregation before an alert
const StalledGroupAfter = 6 * time.Hour

// AlertScheduler periodically raises alerts for overdue invoices and
// pickup groups stuck in segregation
type AlertScheduler struct {
	db     *gorm.DB
	alerts *AlertService
	cron   *cron.Cron
	now    func() time.Time
}

// NewAlertScheduler creates a scheduler; call Start to begin running checks
func NewAlertScheduler(db *gorm.DB, alerts *AlertService) *AlertScheduler {
	return &AlertScheduler{
		db:     db,
		alerts: alerts,
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start runs the checks once and then on spec (a robfig/cron expression
// such as "@every 1h")
func (s *AlertScheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunChecks); err != nil {
		return fmt.Errorf("invalid alert schedule %q: %w", spec, err)
	}
	s.RunChecks()
	s.cron.Start()
	log.Printf("Alert scheduler started (%s)", spec)
	return nil
}

// Stop waits for a running check to finish
func (s *AlertScheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Alert scheduler stopped")
}

// RunChecks runs every check, logging failures
func (s *AlertScheduler) RunChecks() {
	if n, err := s.CheckOverdueInvoices(); err != nil {
		log.Printf("Overdue invoice check failed: %v", err)
	} else if n > 0 {
		log.Printf("Raised %d overdue invoice alert(s)", n)
	}
	if n, err := s.CheckStalledGroups(); err != nil {
		log.Printf("Stalled group check failed: %v", err)
	} else if n > 0 {
		log.Printf("Raised %d stalled group alert(s)", n)
	}
}

// CheckOverdueInvoices raises a high invoice alert for each invoice whose
// delivery date has passed without verification. Returns new alerts raised.
func (s *AlertScheduler) CheckOverdueInvoices() (int, error) {
	var invoices []models.Invoice
	err := s.db.Where("delivery_date IS NOT NULL AND delivery_date < ? AND verified_at IS NULL", s.now()).
		Order("delivery_date").Find(&invoices).Error
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, inv := range invoices {
		_, created, err := s.alerts.RaiseAlert(NewAlert{
			Type:      models.AlertInvoice,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("Invoice %d for %s was due %s and is not verified", inv.ID, inv.ClientName, inv.DeliveryDate.Format("2006-01-02")),
			Component: "invoices",
			SourceKey: fmt.Sprintf("invoice-overdue:%d", inv.ID),
			CreatedBy: "system",
		})
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}
	return raised, nil
}

// CheckStalledGroups raises a medium segregation alert for each group that
// has been segregating for longer than StalledGroupAfter. Imported groups
// with no segregation stamp are timed from their start.
func (s *AlertScheduler) CheckStalledGroups() (int, error) {
	var groups []models.PickupGroup
	err := s.db.Where("status = ? AND COALESCE(segregation_started_at, start_time) < ?", models.GroupSegregating, s.now().Add(-StalledGroupAfter)).
		Order("start_time").Find(&groups).Error
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, g := range groups {
		_, created, err := s.alerts.RaiseAlert(NewAlert{
			Type:      models.AlertSegregation,
			Severity:  models.SeverityMedium,
			Message:   fmt.Sprintf("Pickup group %d for %s has been in segregation since %s", g.ID, g.ClientName, segregationStart(g).Format("2006-01-02 15:04")),
			Component: "pickups",
			SourceKey: fmt.Sprintf("group-stalled:%d", g.ID),
			CreatedBy: "system",
		})
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}
	return raised, nil
}

func segregationStart(g models.PickupGroup) time.Time {
	if g.SegregationStartedAt != nil {
		return *g.SegregationStartedAt
	}
	return g.StartTime
}
