// Package db opens the database connection backing the usage ledger.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSQLiteFile is the database file used when no DSN is supplied.
const DefaultSQLiteFile = "toolserver.db"

// NewDBConnection opens a connection to the database described by dsn.
// Postgres DSNs (postgres:// or postgresql://) use the Postgres driver.
// Anything else is treated as a SQLite DSN, and an empty dsn means DefaultSQLiteFile in the current directory.
func NewDBConnection(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var dialector gorm.Dialector
	switch {
	case isPostgresDSN(dsn):
		dialector = postgres.Open(dsn)
	case dsn == "":
		dialector = sqlite.Open(DefaultSQLiteFile)
	default:
		dialector = sqlite.Open(dsn)
	}

	conn, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
