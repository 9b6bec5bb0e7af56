package services

import (
	"testing"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertSchedulerChecks(t *testing.T) {
	db := testutil.NewTestDB(t)
	notifier := NewMockNotifier()
	scheduler := NewAlertScheduler(db, NewAlertService(db, notifier))
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	scheduler.now = func() time.Time { return now }

	client := models.Client{Name: "Hotel Caribe"}
	require.NoError(t, db.Create(&client).Error)

	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	verifiedAt := now.Add(-72 * time.Hour)
	invoices := []models.Invoice{
		{ClientID: client.ID, ClientName: client.Name, Date: past, DeliveryDate: &past},
		{ClientID: client.ID, ClientName: client.Name, Date: past, DeliveryDate: &future},
		{ClientID: client.ID, ClientName: client.Name, Date: past, DeliveryDate: &past, VerifiedAt: &verifiedAt},
		{ClientID: client.ID, ClientName: client.Name, Date: past},
	}
	require.NoError(t, db.Create(&invoices).Error)

	groups := []models.PickupGroup{
		{ClientID: client.ID, ClientName: client.Name, Status: models.GroupSegregating, StartTime: now.Add(-8 * time.Hour)},
		{ClientID: client.ID, ClientName: client.Name, Status: models.GroupSegregating, StartTime: now.Add(-1 * time.Hour)},
		{ClientID: client.ID, ClientName: client.Name, Status: models.GroupWashing, StartTime: now.Add(-10 * time.Hour)},
	}
	require.NoError(t, db.Create(&groups).Error)

	n, err := scheduler.CheckOverdueInvoices()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = scheduler.CheckStalledGroups()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// checks are idempotent while the alerts stay unresolved
	scheduler.RunChecks()
	var alerts []models.SystemAlert
	require.NoError(t, db.Order("id").Find(&alerts).Error)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertInvoice, alerts[0].Type)
	assert.Equal(t, "system", alerts[0].CreatedBy)
	assert.Equal(t, models.AlertSegregation, alerts[1].Type)
	assert.Equal(t, models.SeverityMedium, alerts[1].Severity)

	// only the high invoice alert was sent out
	assert.Len(t, notifier.Notified(), 1)
}

func TestAlertSchedulerRejectsBadSpec(t *testing.T) {
	db := testutil.NewTestDB(t)
	scheduler := NewAlertScheduler(db, NewAlertService(db, NewMockNotifier()))
	assert.Error(t, scheduler.Start("every so often"))
}

func TestAlertSchedulerStartStop(t *testing.T) {
	db := testutil.NewTestDB(t)
	scheduler := NewAlertScheduler(db, NewAlertService(db, NewMockNotifier()))
	require.NoError(t, scheduler.Start("@every 1h"))
	scheduler.Stop()
}

func TestStalledGroupTimedFromSegregationStart(t *testing.T) {
	db := testutil.NewTestDB(t)
	pickups := NewPickupService(db)
	scheduler := NewAlertScheduler(db, NewAlertService(db, NewMockNotifier()))

	opened := time.Date(2024, time.March, 10, 6, 0, 0, 0, time.UTC)
	clock := opened
	pickups.now = func() time.Time { return clock }
	scheduler.now = func() time.Time { return clock }

	client := models.Client{Name: "Hotel Caribe"}
	require.NoError(t, db.Create(&client).Error)
	group, err := pickups.CreateGroup(client.ID)
	require.NoError(t, err)

	// collected all morning, segregation starts seven hours later
	clock = opened.Add(7 * time.Hour)
	segregating := models.GroupSegregating
	updated, err := pickups.UpdateGroup(group.ID, GroupPatch{Status: &segregating})
	require.NoError(t, err)
	require.NotNil(t, updated.SegregationStartedAt)
	assert.True(t, updated.SegregationStartedAt.Equal(clock))

	clock = opened.Add(7*time.Hour + time.Minute)
	n, err := scheduler.CheckStalledGroups()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// re-sending the same status keeps the original stamp
	_, err = pickups.UpdateGroup(group.ID, GroupPatch{Status: &segregating})
	require.NoError(t, err)

	clock = opened.Add(13*time.Hour + time.Minute)
	n, err = scheduler.CheckStalledGroups()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
