package config

import (
	"errors"
	"fmt"
	"log"

	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// MigrationsPath is the golang-migrate source URL for the SQL migrations
var MigrationsPath = "file://migrations"

// Migrate brings the schema up to date. With MIGRATIONS=1 the versioned SQL
// files are applied with golang-migrate; otherwise gorm AutoMigrate is used.
func Migrate(cfg *Config, db *gorm.DB, models ...interface{}) error {
	if cfg != nil && cfg.UseSQLMigrations {
		log.Println("Running SQL migrations from", MigrationsPath)
		return RunSQLMigrations(cfg.DatabaseURL)
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// RunSQLMigrations applies every pending migration in MigrationsPath
func RunSQLMigrations(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for SQL migrations")
	}
	m, err := migrate.New(MigrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialise migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("warning: failed to close migrator: %v %v", srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
