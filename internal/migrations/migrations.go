// Package migrations creates and updates the usage ledger schema.
package migrations

import (
	"fmt"

	"github.com/skedyul/toolserver/internal/model"
	"gorm.io/gorm"
)

// Migrate brings the database schema up to date.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Invocation{}); err != nil {
		return fmt.Errorf("failed to migrate invocations table: %w", err)
	}
	return nil
}
