package testhelpers

import (
	"fmt"
	"testing"

	"github.com/skedyul/toolserver/internal/migrations"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateTestDB opens a fresh in-memory SQLite database with all migrations applied.
func CreateTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}
	// every connection to :memory: gets its own empty database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access test database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrations.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}
	return db, nil
}

// TestDBSetup holds a test database and the function that releases it.
type TestDBSetup struct {
	DB      *gorm.DB
	Cleanup func()
}

// SetupTestDB creates a migrated in-memory database and fails the test if that is not possible.
func SetupTestDB(t *testing.T) *TestDBSetup {
	t.Helper()
	db, err := CreateTestDB()
	if err != nil {
		t.Fatalf("failed to set up test database: %v", err)
	}
	return &TestDBSetup{
		DB: db,
		Cleanup: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}
}
