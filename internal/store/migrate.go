package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/matheus3301/lifechat/internal/store/migrations"
)

// SchemaVersion is the newest migration this build ships.
const SchemaVersion uint = 1

// ErrSchemaTooNew means the database was migrated by a newer lifechat.
var ErrSchemaTooNew = errors.New("database schema is newer than this build")

// MigrateResult describes the schema before and after Migrate.
type MigrateResult struct {
	From    uint
	Version uint
	Changed bool
}

// Migrate brings the chat schema up to SchemaVersion. A dirty database (a
// migration that failed halfway) is refused rather than retried.
func (db *DB) Migrate() (*MigrateResult, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return nil, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return nil, fmt.Errorf("schema version %d is dirty, restore the database or force the version", from)
	case from > SchemaVersion:
		return nil, fmt.Errorf("%w: database at %d, build at %d", ErrSchemaTooNew, from, SchemaVersion)
	}

	if err := m.Migrate(SchemaVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migrate %d -> %d: %w", from, SchemaVersion, err)
	}
	return &MigrateResult{From: from, Version: SchemaVersion, Changed: from != SchemaVersion}, nil
}
