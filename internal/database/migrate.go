// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SchemaVersion is the schema version this build expects. It must match the
// highest migration step under migrations/.
const SchemaVersion int64 = 2

// ErrSchemaTooNew is returned when the store was written by a newer build.
// Serving against an unknown schema is never safe, so callers must treat
// this as fatal. A store is never silently downgraded.
var ErrSchemaTooNew = errors.New("database schema is newer than this build supports")

// RunMigrations brings the store up to SchemaVersion. Already-applied steps
// are skipped; a failed step leaves the version stamp at the last completed
// step so the run can be retried.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	current, err := goose.EnsureDBVersion(db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: store has version %d, expected at most %d", ErrSchemaTooNew, current, SchemaVersion)
	}
	if current == SchemaVersion {
		return nil
	}

	return goose.UpTo(db, "migrations", SchemaVersion)
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.Down(db, "migrations")
}

// Version returns the schema version currently stamped on the store.
func Version(db *sql.DB) (int64, error) {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}

	return goose.EnsureDBVersion(db)
}
