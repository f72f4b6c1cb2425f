package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/resort/internal/store/migrations"
)

// MigrateResult reports the schema version before and after Migrate.
type MigrateResult struct {
	From    uint
	Version uint
	Changed bool
}

// Migrate applies pending schema migrations. A database left dirty by an
// interrupted migration is refused rather than forced.
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

	from, dirty, err := version(m)
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, fmt.Errorf("snapshot database is dirty at version %d; delete it to rebuild from the backend", from)
	}

	res := &MigrateResult{From: from, Version: from}
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		return res, nil
	case err != nil:
		return nil, fmt.Errorf("migration up: %w", err)
	}
	if res.Version, _, err = version(m); err != nil {
		return nil, err
	}
	res.Changed = res.Version != from
	return res, nil
}

// version treats a fresh database as version 0.
func version(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration version: %w", err)
	}
	return v, dirty, nil
}
