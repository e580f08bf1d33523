// Package manager owns an archive database: the primary archive table of
// timestamped observation records and the daily summary tables derived from it.
package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/MikeBiancalana/wxctl/internal/config"
	"github.com/MikeBiancalana/wxctl/internal/storage"
)

const (
	// DaySummaryVersion is written to the metadata table when daily summaries are created.
	DaySummaryVersion = "4.0"

	metaVersion    = "Version"
	metaLastUpdate = "lastUpdate"
)

var (
	// ErrNoArchive means the database exists but holds no archive table.
	ErrNoArchive = fmt.Errorf("%w: archive table does not exist", storage.ErrOperational)

	// ErrNoDailySummaries means the archive exists but its daily summaries have not been created.
	ErrNoDailySummaries = fmt.Errorf("%w: daily summaries do not exist", storage.ErrOperational)
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options control how a manager is opened.
type Options struct {
	// Initialize creates the database, archive table and daily summaries when missing.
	Initialize bool
	Logger     *slog.Logger
}

// Manager is an open handle on one binding's database. Close it when done.
type Manager struct {
	db       *storage.DB
	table    string
	obsTypes []string
	loc      *time.Location
	logger   *slog.Logger
}

// Open resolves binding in cfg and opens its database.
func Open(ctx context.Context, cfg *config.Config, binding string, opts Options) (*Manager, error) {
	md, err := cfg.ManagerDict(binding)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return OpenWithDict(ctx, md, loc, opts)
}

// OpenWithDict opens the database described by md. Days are cut in loc.
func OpenWithDict(ctx context.Context, md config.ManagerDict, loc *time.Location, opts Options) (*Manager, error) {
	if err := validateIdentifiers(md); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := storage.Open(ctx, md.Database, opts.Initialize)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		db:     db,
		table:  md.TableName,
		loc:    loc,
		logger: logger.With("database", md.Database.DatabaseName, "binding", md.Binding),
	}

	if err := m.prepare(ctx, md.Observations, opts.Initialize); err != nil {
		db.Close()
		return nil, err
	}

	return m, nil
}

func validateIdentifiers(md config.ManagerDict) error {
	if !identPattern.MatchString(md.TableName) {
		return fmt.Errorf("%w: invalid table name '%s'", config.ErrConfig, md.TableName)
	}
	for _, obs := range md.Observations {
		if !identPattern.MatchString(obs) {
			return fmt.Errorf("%w: invalid observation type '%s'", config.ErrConfig, obs)
		}
	}
	return nil
}

func (m *Manager) prepare(ctx context.Context, observations []string, initialize bool) error {
	exists, err := m.db.TableExists(ctx, m.table)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrOperational, err)
	}
	if !exists {
		if !initialize {
			return fmt.Errorf("%w: '%s' in database '%s'", ErrNoArchive, m.table, m.db.Name())
		}
		if err := m.createArchive(ctx, observations); err != nil {
			return err
		}
		m.logger.Info("Created archive table", "table", m.table)
	}

	m.obsTypes, err = m.archiveObservations(ctx, observations)
	if err != nil {
		return err
	}

	exists, err = m.db.TableExists(ctx, m.metaTable())
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrOperational, err)
	}
	if !exists && !initialize {
		return fmt.Errorf("%w: database '%s'", ErrNoDailySummaries, m.db.Name())
	}
	if initialize {
		created, err := m.createDaily(ctx)
		if err != nil {
			return err
		}
		if created > 0 {
			m.logger.Info("Created daily summary tables", "count", created)
		}
	}

	return nil
}

// archiveObservations keeps the configured observation types that are columns of the archive.
func (m *Manager) archiveObservations(ctx context.Context, configured []string) ([]string, error) {
	rows, err := m.db.DB().QueryContext(ctx, "SELECT * FROM "+m.table+" WHERE 1 = 0")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read archive columns: %v", storage.ErrOperational, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read archive columns: %v", storage.ErrOperational, err)
	}

	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[strings.ToLower(c)] = true
	}

	var obs []string
	for _, o := range configured {
		if present[strings.ToLower(o)] {
			obs = append(obs, o)
		}
	}
	return obs, nil
}

// DatabaseName returns the configured name of the open database.
func (m *Manager) DatabaseName() string {
	return m.db.Name()
}

// TableName returns the archive table name.
func (m *Manager) TableName() string {
	return m.table
}

// Observations returns the observation types that get daily summaries.
func (m *Manager) Observations() []string {
	return append([]string(nil), m.obsTypes...)
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}

// DropDaily drops every daily summary table, metadata included.
func (m *Manager) DropDaily(ctx context.Context) error {
	tables, err := m.dayTables(ctx)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", storage.ErrOperational, err)
	}
	defer tx.Rollback()

	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+t); err != nil {
			return fmt.Errorf("%w: failed to drop table %s: %v", storage.ErrOperational, t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit drop: %v", storage.ErrOperational, err)
	}

	m.logger.Info("Dropped daily summary tables", "count", len(tables))
	return nil
}

func (m *Manager) dayTables(ctx context.Context) ([]string, error) {
	tables, err := m.db.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrOperational, err)
	}

	prefix := strings.ToLower(m.dayPrefix())
	var out []string
	for _, t := range tables {
		if strings.HasPrefix(strings.ToLower(t), prefix) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Manager) readMetadata(ctx context.Context, q queryer, name string) (string, bool, error) {
	var value sql.NullString
	err := q.QueryRowContext(ctx, m.db.Rebind("SELECT value FROM "+m.metaTable()+" WHERE name = ?"), name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to read metadata %s: %v", storage.ErrOperational, name, err)
	}
	return value.String, value.Valid, nil
}

func (m *Manager) writeMetadata(ctx context.Context, q queryer, name, value string) error {
	_, err := q.ExecContext(ctx, m.db.Rebind(`
		INSERT INTO `+m.metaTable()+` (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value
	`), name, value)
	if err != nil {
		return fmt.Errorf("%w: failed to write metadata %s: %v", storage.ErrOperational, name, err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
