package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with every model
// migrated and installs it as config.DB. Each call gets its own database;
// a single connection keeps all queries on it.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	RefuseProduction(t)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	config.SetDB(db)
	return db
}

// SeedUser creates an employee with the given role
func SeedUser(t *testing.T, db *gorm.DB, auth0ID, name, role string) models.User {
	t.Helper()
	user := models.User{
		Auth0ID: auth0ID,
		Name:    name,
		Email:   fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Role:    role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}
