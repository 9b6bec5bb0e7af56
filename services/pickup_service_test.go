package services

import (
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/tests/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type PickupServiceTestSuite struct {
	suite.Suite
	db     *gorm.DB
	svc    *PickupService
	now    time.Time
	client models.Client
	driver models.User
}

func (s *PickupServiceTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.svc = NewPickupService(s.db)
	s.now = time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return s.now }

	s.client = models.Client{Name: "Hospital Central", WashingType: models.WashingTunnel}
	s.Require().NoError(s.db.Create(&s.client).Error)
	s.driver = testutil.SeedUser(s.T(), s.db, "auth0|driver", "Pedro", models.RoleDriver)
}

func TestPickupServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PickupServiceTestSuite))
}

func (s *PickupServiceTestSuite) TestEntriesFeedGroupTotals() {
	group, err := s.svc.CreateGroup(s.client.ID)
	s.Require().NoError(err)
	s.Equal(models.GroupCollecting, group.Status)
	s.Equal(models.WashingTunnel, group.WashingType)

	first, err := s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, GroupID: &group.ID, Weight: 120, CartCount: 3, Driver: &s.driver})
	s.Require().NoError(err)
	s.Equal("Pedro", first.DriverName)
	s.Equal("Hospital Central", first.ClientName)
	s.True(first.Timestamp.Equal(s.now))

	_, err = s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, GroupID: &group.ID, Weight: 80, CartCount: 2})
	s.Require().NoError(err)

	loaded, err := s.svc.GetGroup(group.ID)
	s.Require().NoError(err)
	s.Equal(200.0, loaded.TotalWeight)
	s.Equal(5, loaded.NumCarts)
	s.Len(loaded.Entries, 2)

	s.Require().NoError(s.svc.DeleteEntry(first.ID))
	loaded, err = s.svc.GetGroup(group.ID)
	s.Require().NoError(err)
	s.Equal(80.0, loaded.TotalWeight)
	s.Equal(2, loaded.NumCarts)
}

func (s *PickupServiceTestSuite) TestConcurrentEntriesAllCount() {
	group, err := s.svc.CreateGroup(s.client.ID)
	s.Require().NoError(err)

	const entries = 8
	var wg sync.WaitGroup
	errs := make(chan error, entries)
	for i := 0; i < entries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, GroupID: &group.ID, Weight: 25, CartCount: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	loaded, err := s.svc.GetGroup(group.ID)
	s.Require().NoError(err)
	s.Equal(200.0, loaded.TotalWeight)
	s.Equal(entries, loaded.NumCarts)
}

func (s *PickupServiceTestSuite) TestCreateEntryValidation() {
	other := models.Client{Name: "Hotel Caribe"}
	s.Require().NoError(s.db.Create(&other).Error)
	group, err := s.svc.CreateGroup(other.ID)
	s.Require().NoError(err)

	_, err = s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, Weight: 0})
	s.ErrorIs(err, ErrValidation)
	_, err = s.svc.CreateEntry(NewPickupEntry{ClientID: 999, Weight: 10})
	s.ErrorIs(err, ErrNotFound)
	_, err = s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, GroupID: &group.ID, Weight: 10})
	s.ErrorIs(err, ErrValidation, "group of another client")

	missing := uint(999)
	_, err = s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, GroupID: &missing, Weight: 10})
	s.ErrorIs(err, ErrNotFound)
}

func (s *PickupServiceTestSuite) TestUpdateGroup() {
	group, err := s.svc.CreateGroup(s.client.ID)
	s.Require().NoError(err)

	carts := 4
	segregating := models.GroupSegregating
	updated, err := s.svc.UpdateGroup(group.ID, GroupPatch{NumCarts: &carts, Status: &segregating})
	s.Require().NoError(err)
	s.Equal(4, updated.NumCarts)
	s.Equal(models.GroupSegregating, updated.Status)

	tooMany := 5
	_, err = s.svc.UpdateGroup(group.ID, GroupPatch{SegregatedCarts: &tooMany})
	s.ErrorIs(err, ErrValidation)

	bogus := "lost"
	_, err = s.svc.UpdateGroup(group.ID, GroupPatch{Status: &bogus})
	s.ErrorIs(err, ErrValidation)

	completed := models.GroupCompleted
	updated, err = s.svc.UpdateGroup(group.ID, GroupPatch{Status: &completed})
	s.Require().NoError(err)
	s.Require().NotNil(updated.EndTime)
	s.True(updated.EndTime.Equal(s.now))

	_, err = s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, GroupID: &group.ID, Weight: 10})
	s.ErrorIs(err, ErrValidation, "completed groups take no more pickups")
}

func (s *PickupServiceTestSuite) TestMarkSegregationDone() {
	group, err := s.svc.CreateGroup(s.client.ID)
	s.Require().NoError(err)
	_, err = s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, GroupID: &group.ID, Weight: 150, CartCount: 3})
	s.Require().NoError(err)

	done, err := s.svc.MarkSegregationDone(group.ID, "ana")
	s.Require().NoError(err)
	s.Equal(150.0, done.Weight)
	s.Equal(3, done.Carts)
	s.Equal("ana", done.SegregatedBy)

	loaded, err := s.svc.GetGroup(group.ID)
	s.Require().NoError(err)
	s.Equal(models.GroupWashing, loaded.Status)
	s.Equal(3, loaded.SegregatedCarts)

	_, err = s.svc.MarkSegregationDone(group.ID, "ana")
	s.ErrorIs(err, ErrValidation)
}

func (s *PickupServiceTestSuite) TestDeleteGroupDetachesEntries() {
	group, err := s.svc.CreateGroup(s.client.ID)
	s.Require().NoError(err)
	entry, err := s.svc.CreateEntry(NewPickupEntry{ClientID: s.client.ID, GroupID: &group.ID, Weight: 40})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.DeleteGroup(group.ID))
	_, err = s.svc.GetGroup(group.ID)
	s.ErrorIs(err, ErrNotFound)

	var stored models.PickupEntry
	s.Require().NoError(s.db.First(&stored, entry.ID).Error)
	s.Nil(stored.GroupID)
}
