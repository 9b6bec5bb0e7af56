package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PickupService records weighed pickups and moves pickup groups through
// collecting, segregating, washing and completed
type PickupService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPickupService creates a pickup service on db
func NewPickupService(db *gorm.DB) *PickupService {
	return &PickupService{db: db, now: time.Now}
}

// NewPickupEntry is the input for CreateEntry
type NewPickupEntry struct {
	ClientID  uint
	GroupID   *uint
	Weight    float64
	CartCount int
	Timestamp *time.Time
	Driver    *models.User
}

// GroupPatch holds the group fields a PATCH may change; nil means unchanged
type GroupPatch struct {
	Status          *string
	NumCarts        *int
	SegregatedCarts *int
	TotalWeight     *float64
}

// CreateGroup opens a collecting group for a client
func (s *PickupService) CreateGroup(clientID uint) (*models.PickupGroup, error) {
	client, err := findClient(s.db, clientID)
	if err != nil {
		return nil, err
	}
	group := models.PickupGroup{
		ClientID:    client.ID,
		ClientName:  client.Name,
		WashingType: client.WashingType,
		Status:      models.GroupCollecting,
		StartTime:   s.now(),
	}
	if err := s.db.Create(&group).Error; err != nil {
		return nil, fmt.Errorf("failed to create pickup group: %w", err)
	}
	return &group, nil
}

// GetGroup loads a group with its entries, newest first
func (s *PickupService) GetGroup(id uint) (*models.PickupGroup, error) {
	var group models.PickupGroup
	err := s.db.Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp DESC") }).
		First(&group, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("pickup group", id)
		}
		return nil, err
	}
	return &group, nil
}

// UpdateGroup applies patch. Entering segregation stamps
// SegregationStartedAt and moving to completed stamps the end time.
func (s *PickupService) UpdateGroup(id uint, patch GroupPatch) (*models.PickupGroup, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		group, err := lockGroup(tx, id)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})
		numCarts := group.NumCarts
		if patch.NumCarts != nil {
			if *patch.NumCarts < 0 {
				return validationf("num_carts must not be negative")
			}
			numCarts = *patch.NumCarts
			updates["num_carts"] = numCarts
		}
		if patch.SegregatedCarts != nil {
			if *patch.SegregatedCarts < 0 || *patch.SegregatedCarts > numCarts {
				return validationf("segregated_carts must be between 0 and %d", numCarts)
			}
			updates["segregated_carts"] = *patch.SegregatedCarts
		}
		if patch.TotalWeight != nil {
			if *patch.TotalWeight < 0 || math.IsNaN(*patch.TotalWeight) {
				return validationf("total_weight must not be negative")
			}
			updates["total_weight"] = *patch.TotalWeight
		}
		if patch.Status != nil {
			if !models.IsValidGroupStatus(*patch.Status) {
				return validationf("unknown status %q", *patch.Status)
			}
			updates["status"] = *patch.Status
			if *patch.Status == models.GroupSegregating && group.Status != models.GroupSegregating {
				updates["segregation_started_at"] = s.now()
			}
			if *patch.Status == models.GroupCompleted && group.EndTime == nil {
				updates["end_time"] = s.now()
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.PickupGroup{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(id)
}

// DeleteGroup soft-deletes a group and detaches its entries
func (s *PickupService) DeleteGroup(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := findGroup(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&models.PickupEntry{}).Where("group_id = ?", id).Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PickupGroup{}, id).Error
	})
}

// CreateEntry records a weighed pickup. When it belongs to a group, the
// group's weight and cart count grow by the entry's.
func (s *PickupService) CreateEntry(in NewPickupEntry) (*models.PickupEntry, error) {
	if in.Weight <= 0 || math.IsNaN(in.Weight) || math.IsInf(in.Weight, 0) {
		return nil, validationf("weight must be greater than zero")
	}
	if in.CartCount < 0 {
		return nil, validationf("cart_count must not be negative")
	}

	var entry models.PickupEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		client, err := findClient(tx, in.ClientID)
		if err != nil {
			return err
		}
		ts := s.now()
		if in.Timestamp != nil && !in.Timestamp.IsZero() {
			ts = *in.Timestamp
		}
		entry = models.PickupEntry{
			GroupID:    in.GroupID,
			ClientID:   client.ID,
			ClientName: client.Name,
			Weight:     in.Weight,
			CartCount:  in.CartCount,
			Timestamp:  ts,
		}
		if in.Driver != nil {
			entry.DriverID = &in.Driver.ID
			entry.DriverName = in.Driver.Name
		}

		if in.GroupID != nil {
			group, err := findGroup(tx, *in.GroupID)
			if err != nil {
				return err
			}
			if group.ClientID != client.ID {
				return validationf("pickup group %d belongs to another client", group.ID)
			}
			if group.Status == models.GroupCompleted {
				return validationf("pickup group %d is completed", group.ID)
			}
			if err := adjustGroup(tx, group.ID, in.Weight, in.CartCount); err != nil {
				return err
			}
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteEntry removes an entry and takes it back out of its group's totals
func (s *PickupService) DeleteEntry(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var entry models.PickupEntry
		if err := tx.First(&entry, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("pickup entry", id)
			}
			return err
		}
		if entry.GroupID != nil {
			if err := adjustGroup(tx, *entry.GroupID, -entry.Weight, -entry.CartCount); err != nil {
				return err
			}
		}
		return tx.Delete(&entry).Error
	})
}

// MarkSegregationDone logs that every cart of the group was segregated and
// moves the group on to washing
func (s *PickupService) MarkSegregationDone(groupID uint, actor string) (*models.SegregationDoneLog, error) {
	var entry models.SegregationDoneLog
	err := s.db.Transaction(func(tx *gorm.DB) error {
		group, err := lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		switch group.Status {
		case models.GroupCollecting, models.GroupSegregating:
		default:
			return validationf("pickup group %d is already %s", group.ID, group.Status)
		}

		now := s.now()
		entry = models.SegregationDoneLog{
			GroupID:      group.ID,
			ClientID:     group.ClientID,
			ClientName:   group.ClientName,
			Weight:       group.TotalWeight,
			Carts:        group.NumCarts,
			SegregatedBy: actor,
			DoneAt:       now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.PickupGroup{}).Where("id = ?", group.ID).Updates(map[string]interface{}{
			"status":           models.GroupWashing,
			"segregated_carts": group.NumCarts,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// adjustGroup adds weight and carts to a group's totals, never going below
// zero. The row is locked so concurrent entries on one group both count.
func adjustGroup(tx *gorm.DB, groupID uint, weight float64, carts int) error {
	group, err := lockGroup(tx, groupID)
	if err != nil {
		return err
	}
	numCarts := max(group.NumCarts+carts, 0)
	return tx.Model(&models.PickupGroup{}).Where("id = ?", groupID).Updates(map[string]interface{}{
		"total_weight":     math.Max(group.TotalWeight+weight, 0),
		"num_carts":        numCarts,
		"segregated_carts": min(group.SegregatedCarts, numCarts),
	}).Error
}

func lockGroup(tx *gorm.DB, id uint) (*models.PickupGroup, error) {
	return findGroup(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func findGroup(db *gorm.DB, id uint) (*models.PickupGroup, error) {
	var group models.PickupGroup
	if err := db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("pickup group", id)
		}
		return nil, err
	}
	return &group, nil
}

func findClient(db *gorm.DB, id uint) (*models.Client, error) {
	var client models.Client
	if err := db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("client", id)
		}
		return nil, err
	}
	return &client, nil
}
