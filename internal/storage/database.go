package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MikeBiancalana/wxctl/internal/config"
)

var (
	// ErrOperational is wrapped by every failure to open or operate on a database.
	ErrOperational = errors.New("operational error")

	// ErrNoDatabase means the configured database does not exist.
	ErrNoDatabase = fmt.Errorf("%w: database does not exist", ErrOperational)
)

// dialect hides the differences between the supported database engines.
type dialect interface {
	// driverName is the database/sql driver to open.
	driverName() string
	dsn(dict config.DatabaseDict) string
	// prepare runs before the connection is opened. It reports ErrNoDatabase
	// for a missing database it cannot or may not create.
	prepare(ctx context.Context, dict config.DatabaseDict, create bool) error
	// isNotExist reports whether a connection error means the database is missing.
	isNotExist(err error) bool
	createDatabase(ctx context.Context, dict config.DatabaseDict) error
	configure(ctx context.Context, db *sql.DB) error
	tableNamesQuery() string
	intType() string
	floatType() string
	placeholder(n int) string
	// identifier folds a table name the way the engine stores it.
	identifier(name string) string
}

// DB wraps a SQL database connection
type DB struct {
	db      *sql.DB
	name    string
	dialect dialect
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return sqliteDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver '%s'", driver)
	}
}

// Open connects to the database described by dict. When create is false a
// missing database is reported as ErrNoDatabase. When create is true it is created.
func Open(ctx context.Context, dict config.DatabaseDict, create bool) (*DB, error) {
	d, err := dialectFor(dict.Driver)
	if err != nil {
		return nil, err
	}

	if err := d.prepare(ctx, dict, create); err != nil {
		return nil, err
	}

	db, err := connect(ctx, d, dict)
	if err != nil && d.isNotExist(err) {
		if !create {
			return nil, fmt.Errorf("%w: '%s'", ErrNoDatabase, dict.DatabaseName)
		}
		if err := d.createDatabase(ctx, dict); err != nil {
			return nil, fmt.Errorf("%w: failed to create database '%s': %v", ErrOperational, dict.DatabaseName, err)
		}
		db, err = connect(ctx, d, dict)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database '%s': %v", ErrOperational, dict.DatabaseName, err)
	}

	if err := d.configure(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to configure database '%s': %v", ErrOperational, dict.DatabaseName, err)
	}

	return &DB{db: db, name: dict.DatabaseName, dialect: d}, nil
}

func connect(ctx context.Context, d dialect, dict config.DatabaseDict) (*sql.DB, error) {
	db, err := sql.Open(d.driverName(), d.dsn(dict))
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// DB returns the underlying database connection
func (d *DB) DB() *sql.DB {
	return d.db
}

// Name returns the configured database name.
func (d *DB) Name() string {
	return d.name
}

// BeginTx starts a new transaction
func (d *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return d.db.BeginTx(ctx, nil)
}

// Rebind rewrites '?' placeholders into the engine's own form.
func (d *DB) Rebind(query string) string {
	if d.dialect.placeholder(1) == "?" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.dialect.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IntType and FloatType are the column types used for integer and real columns.
func (d *DB) IntType() string {
	return d.dialect.intType()
}

func (d *DB) FloatType() string {
	return d.dialect.floatType()
}

// Tables lists the tables in the database, sorted by name.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, d.dialect.tableNamesQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// TableExists reports whether a table with the given name exists.
func (d *DB) TableExists(ctx context.Context, name string) (bool, error) {
	tables, err := d.Tables(ctx)
	if err != nil {
		return false, err
	}
	want := d.dialect.identifier(name)
	for _, t := range tables {
		if t == want {
			return true, nil
		}
	}
	return false, nil
}

// Identifier returns name as the engine stores it.
func (d *DB) Identifier(name string) string {
	return d.dialect.identifier(name)
}
