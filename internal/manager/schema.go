package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeBiancalana/wxctl/internal/storage"
)

// Unit systems stored in the usUnits column.
const (
	US       = 1
	Metric   = 16
	MetricWX = 17
)

func (m *Manager) dayPrefix() string {
	return m.table + "_day_"
}

func (m *Manager) metaTable() string {
	return m.dayPrefix() + "_metadata"
}

func (m *Manager) dayTable(obs string) string {
	return m.dayPrefix() + obs
}

func (m *Manager) createArchive(ctx context.Context, observations []string) error {
	cols := []string{
		"dateTime " + m.db.IntType() + " NOT NULL PRIMARY KEY",
		"usUnits " + m.db.IntType() + " NOT NULL",
		`"interval" ` + m.db.IntType() + " NOT NULL",
	}
	for _, obs := range observations {
		cols = append(cols, obs+" "+m.db.FloatType())
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", m.table, strings.Join(cols, ",\n    "))
	if _, err := m.db.DB().ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%w: failed to create archive table: %v", storage.ErrOperational, err)
	}
	return nil
}

// createDaily creates any missing daily summary table and returns how many it created.
func (m *Manager) createDaily(ctx context.Context) (int, error) {
	existing, err := m.dayTables(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[strings.ToLower(t)] = true
	}

	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %v", storage.ErrOperational, err)
	}
	defer tx.Rollback()

	created := 0
	if !have[strings.ToLower(m.metaTable())] {
		stmt := fmt.Sprintf(`CREATE TABLE %s (
    name VARCHAR(20) NOT NULL PRIMARY KEY,
    value TEXT
)`, m.metaTable())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("%w: failed to create metadata table: %v", storage.ErrOperational, err)
		}
		if err := m.writeMetadata(ctx, tx, metaVersion, DaySummaryVersion); err != nil {
			return 0, err
		}
		created++
	}

	it, ft := m.db.IntType(), m.db.FloatType()
	for _, obs := range m.obsTypes {
		if have[strings.ToLower(m.dayTable(obs))] {
			continue
		}
		stmt := fmt.Sprintf(`CREATE TABLE %s (
    dateTime %s NOT NULL PRIMARY KEY,
    min %s,
    mintime %s,
    max %s,
    maxtime %s,
    sum %s,
    count %s,
    wsum %s,
    sumtime %s
)`, m.dayTable(obs), it, ft, it, ft, it, ft, it, ft, it)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("%w: failed to create daily summary for %s: %v", storage.ErrOperational, obs, err)
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit daily summary tables: %v", storage.ErrOperational, err)
	}
	return created, nil
}
