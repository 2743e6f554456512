package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

var gooseMu sync.Mutex

// Migrator applies goose migrations from an embedded filesystem.
type Migrator struct {
	db     *sql.DB
	fsys   fs.FS
	dir    string
	logger *zap.Logger
}

// NewMigrator binds the migration source to a database handle.
func NewMigrator(db *sql.DB, fsys fs.FS, dir string, logger *zap.Logger) *Migrator {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: db, fsys: fsys, dir: dir, logger: logger}
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	return m.with(func() error {
		m.logger.Info("applying database migrations")
		if err := goose.UpContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// Down rolls back the latest migration.
func (m *Migrator) Down(ctx context.Context) error {
	return m.with(func() error {
		if err := goose.DownContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("rollback migration: %w", err)
		}
		return nil
	})
}

// Status prints the migration table through goose's logger.
func (m *Migrator) Status(ctx context.Context) error {
	return m.with(func() error {
		return goose.StatusContext(ctx, m.db, m.dir)
	})
}

// Version reports the currently applied migration version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.with(func() error {
		v, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// goose keeps its dialect and base FS in package globals.
func (m *Migrator) with(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(m.fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}
