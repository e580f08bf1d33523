package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MikeBiancalana/wxctl/internal/config"

	_ "modernc.org/sqlite"
)

type sqliteDialect struct{}

func sqlitePath(dict config.DatabaseDict) string {
	if dict.DatabaseName == ":memory:" || filepath.IsAbs(dict.DatabaseName) {
		return dict.DatabaseName
	}
	return filepath.Join(dict.SQLiteRoot, dict.DatabaseName)
}

func (sqliteDialect) driverName() string { return "sqlite" }

func (sqliteDialect) dsn(dict config.DatabaseDict) string {
	// WAL for better concurrent access with readers such as a running logger
	return sqlitePath(dict) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// prepare stops the driver from silently creating an empty file for a missing database.
func (sqliteDialect) prepare(_ context.Context, dict config.DatabaseDict, create bool) error {
	path := sqlitePath(dict)
	if path == ":memory:" {
		return nil
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrOperational, err)
	case !create:
		return fmt.Errorf("%w: '%s'", ErrNoDatabase, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory for '%s': %v", ErrOperational, path, err)
	}
	return nil
}

func (sqliteDialect) isNotExist(error) bool { return false }

func (sqliteDialect) createDatabase(context.Context, config.DatabaseDict) error {
	// Opening the file creates it.
	return nil
}

func (sqliteDialect) configure(ctx context.Context, db *sql.DB) error {
	// One writer at a time; transactions hold the only connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}

func (sqliteDialect) tableNamesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table'"
}

func (sqliteDialect) intType() string   { return "INTEGER" }
func (sqliteDialect) floatType() string { return "REAL" }

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) identifier(name string) string { return name }
