package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

const migrateTimeout = time.Minute

// Migrator applies goose migrations read from an embedded filesystem.
type Migrator struct {
	dsn        string
	migrations fs.FS
	log        *logger.Logger
}

func NewMigrator(dsn string, migrations fs.FS, log *logger.Logger) (*Migrator, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}
	if migrations == nil {
		return nil, errors.New("nil migrations filesystem")
	}
	return &Migrator{dsn: dsn, migrations: migrations, log: log}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	return m.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		m.log.Info("applying migrations")
		if err := goose.UpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		m.log.Info("migrations applied")
		return nil
	})
}

// Down rolls back the latest migration, or down to targetVersion when it is not negative.
func (m *Migrator) Down(ctx context.Context, targetVersion int64) error {
	return m.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		if targetVersion >= 0 {
			m.log.Infof("rolling back migrations to version %d", targetVersion)
			if err := goose.DownToContext(ctx, db, ".", targetVersion); err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
			return nil
		}
		m.log.Info("rolling back latest migration")
		if err := goose.DownContext(ctx, db, "."); err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		return nil
	})
}

func (m *Migrator) Status(ctx context.Context) error {
	return m.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		if err := goose.StatusContext(ctx, db, "."); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}

func (m *Migrator) withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	goose.SetBaseFS(m.migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	db, err := sql.Open("pgx", m.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer db.Close()

	runCtx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	if err := db.PingContext(runCtx); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}
	return fn(runCtx, db)
}
