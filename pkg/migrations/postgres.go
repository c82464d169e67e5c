package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

// UpPostgres applies every pending schema migration.
func UpPostgres(db *sql.DB) error {
	return runPostgres(db, func(m *migrate.Migrate) error {
		return m.Up()
	})
}

// DownPostgres reverts the given number of applied migrations.
func DownPostgres(db *sql.DB, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	return runPostgres(db, func(m *migrate.Migrate) error {
		return m.Steps(-steps)
	})
}

// PostgresVersion returns the applied schema version and its dirty flag.
func PostgresVersion(db *sql.DB) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := runPostgres(db, func(m *migrate.Migrate) error {
		var err error
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

func runPostgres(db *sql.DB, fn func(m *migrate.Migrate) error) error {
	source, err := iofs.New(postgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}

	// WithInstance would close db along with the driver; a dedicated conn keeps
	// the caller's pool open.
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
