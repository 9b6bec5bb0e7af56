package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
	"gorm.io/gorm"
)

// NewAlert is the input for RaiseAlert
type NewAlert struct {
	Type      string
	Severity  string
	Message   string
	Component string
	SourceKey string
	CreatedBy string
}

// AlertService stores system alerts and forwards the serious ones
type AlertService struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

// NewAlertService creates an alert service; a nil notifier uses GetNotifier
func NewAlertService(db *gorm.DB, notifier Notifier) *AlertService {
	if notifier == nil {
		notifier = GetNotifier()
	}
	return &AlertService{db: db, notifier: notifier, now: time.Now}
}

// RaiseAlert stores an alert. An alert with a SourceKey is not duplicated
// while an unresolved alert with the same key exists; the existing one is
// returned with created=false. High and critical alerts are sent to the
// notifier; a notifier failure is logged and does not fail the call.
func (s *AlertService) RaiseAlert(in NewAlert) (alert *models.SystemAlert, created bool, err error) {
	if !models.IsValidAlertType(in.Type) {
		return nil, false, validationf("unknown alert type %q", in.Type)
	}
	if models.SeverityRank(in.Severity) == 0 {
		return nil, false, validationf("unknown severity %q", in.Severity)
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, false, validationf("message is required")
	}

	if in.SourceKey != "" {
		existing, err := s.openBySourceKey(in.SourceKey)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}

	record := models.SystemAlert{
		Type:      in.Type,
		Severity:  in.Severity,
		Message:   strings.TrimSpace(in.Message),
		Component: in.Component,
		SourceKey: in.SourceKey,
		CreatedBy: in.CreatedBy,
	}
	if err := s.db.Create(&record).Error; err != nil {
		// another scheduler raised the same open alert first
		if in.SourceKey != "" && isUniqueViolation(err) {
			if existing, findErr := s.openBySourceKey(in.SourceKey); findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to store alert: %w", err)
	}

	if models.SeverityRank(record.Severity) >= models.SeverityRank(models.SeverityHigh) && s.notifier != nil {
		if err := s.notifier.Notify(record); err != nil {
			log.Printf("warning: alert %d stored but notification failed: %v", record.ID, err)
		}
	}
	return &record, true, nil
}

// MarkRead flags an alert as read
func (s *AlertService) MarkRead(id uint) (*models.SystemAlert, error) {
	alert, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if alert.IsRead {
		return alert, nil
	}
	now := s.now()
	if err := s.db.Model(alert).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, err
	}
	return s.find(id)
}

// Resolve closes an alert. Resolving also marks it read.
func (s *AlertService) Resolve(id uint, actor, notes string) (*models.SystemAlert, error) {
	alert, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if alert.IsResolved {
		return alert, nil
	}
	now := s.now()
	updates := map[string]interface{}{
		"is_resolved":      true,
		"resolved_at":      now,
		"resolved_by":      actor,
		"resolution_notes": notes,
	}
	if !alert.IsRead {
		updates["is_read"] = true
		updates["read_at"] = now
	}
	if err := s.db.Model(alert).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(id)
}

func (s *AlertService) find(id uint) (*models.SystemAlert, error) {
	var alert models.SystemAlert
	if err := s.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("alert", id)
		}
		return nil, err
	}
	return &alert, nil
}

func (s *AlertService) openBySourceKey(key string) (*models.SystemAlert, error) {
	var existing models.SystemAlert
	if err := s.db.Where("source_key = ? AND is_resolved = ?", key, false).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}
