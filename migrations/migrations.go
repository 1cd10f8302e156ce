// Package migrations is the schema installer (C2): it installs and
// uninstalls the byplay table and its index, tracking applied migrations in
// a companion byplay_migrations table. Built on golang-migrate/migrate, the
// way iamd3vil-flowctl's cmd/install.go drives it — an iofs source over an
// embedded directory plus the postgres database driver — with the migration
// table renamed so it matches this package's on-disk contract.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// migrationsTable is the companion metadata table name from §6: bit-exact,
// since existing deployments may already depend on it.
const migrationsTable = "byplay_migrations"

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return nil, fmt.Errorf("byplay: creating postgres migration driver: %w", err)
	}

	sourceFS, err := fs.Sub(migrationFiles, "sql")
	if err != nil {
		return nil, fmt.Errorf("byplay: opening embedded migrations: %w", err)
	}
	source, err := iofs.New(sourceFS, ".")
	if err != nil {
		return nil, fmt.Errorf("byplay: creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("byplay: creating migration instance: %w", err)
	}
	return m, nil
}

// Install applies any missing migrations that create the byplay table and
// its index. Idempotent: calling it again once already applied is a no-op.
func Install(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("byplay: applying migrations: %w", err)
	}
	return nil
}

// Uninstall rolls back all migrations and additionally drops the migrations
// table. Idempotent: calling it again on an already-uninstalled database is
// a no-op.
func Uninstall(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("byplay: rolling back migrations: %w", err)
	}

	// migrate's Down() empties its tracking table but never drops it; §4.2
	// requires the migrations table itself to be gone after uninstall.
	if _, err := db.Exec("DROP TABLE IF EXISTS " + migrationsTable); err != nil {
		return fmt.Errorf("byplay: dropping migrations table: %w", err)
	}
	return nil
}
