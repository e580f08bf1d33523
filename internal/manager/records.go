package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MikeBiancalana/wxctl/internal/storage"
)

// Record is one archive interval. Observations missing from Values are stored as NULL.
type Record struct {
	DateTime time.Time
	USUnits  int
	// Interval is the archive interval in minutes.
	Interval int
	Values   map[string]float64
}

// AddRecords inserts archive records in a single transaction. Daily summaries are
// not touched; run BackfillDaySummary to bring them up to date.
func (m *Manager) AddRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	cols := append([]string{"dateTime", "usUnits", `"interval"`}, m.obsTypes...)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := m.db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", m.table, strings.Join(cols, ", "), marks))

	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", storage.ErrOperational, err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if r.Interval <= 0 {
			return fmt.Errorf("record at %s has invalid interval %d", r.DateTime.Format(time.RFC3339), r.Interval)
		}
		args := make([]any, 0, len(cols))
		args = append(args, r.DateTime.Unix(), r.USUnits, r.Interval)
		for _, obs := range m.obsTypes {
			if v, ok := r.Values[obs]; ok {
				args = append(args, v)
			} else {
				args = append(args, nil)
			}
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("%w: failed to insert record at %s: %v", storage.ErrOperational, r.DateTime.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit records: %v", storage.ErrOperational, err)
	}
	return nil
}
