package manager

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MikeBiancalana/wxctl/internal/dates"
	"github.com/MikeBiancalana/wxctl/internal/perf"
	"github.com/MikeBiancalana/wxctl/internal/storage"
)

const (
	// progressEvery is how many records pass between progress callbacks.
	progressEvery = 1000

	slowBatch = 10 * time.Second
)

// ProgressFunc is called during a backfill with the running record count and
// the timestamp of the latest record processed.
type ProgressFunc func(records int, last time.Time)

// BackfillResult counts what a backfill processed.
type BackfillResult struct {
	Records int
	Days    int
}

// DaySummary is one day's aggregate for one observation type.
type DaySummary struct {
	Start   time.Time
	Min     sql.NullFloat64
	MinTime time.Time
	Max     sql.NullFloat64
	MaxTime time.Time
	Sum     float64
	Count   int
	WSum    float64
	SumTime int64
}

// Avg returns the time-weighted average for the day.
func (s DaySummary) Avg() (float64, bool) {
	if s.SumTime == 0 {
		return 0, false
	}
	return s.WSum / float64(s.SumTime), true
}

type accumulator struct {
	min, max         sql.NullFloat64
	minTime, maxTime int64
	sum, wsum        float64
	count            int
	sumTime          int64
}

func (a *accumulator) add(v float64, ts, weight int64) {
	if !a.min.Valid || v < a.min.Float64 {
		a.min = sql.NullFloat64{Float64: v, Valid: true}
		a.minTime = ts
	}
	if !a.max.Valid || v > a.max.Float64 {
		a.max = sql.NullFloat64{Float64: v, Valid: true}
		a.maxTime = ts
	}
	a.sum += v
	a.count++
	a.wsum += v * float64(weight)
	a.sumTime += weight
}

// BackfillDaySummary rebuilds daily summaries for the days from start through
// stop, inclusive, committing every transDays days. With both bounds nil it resumes
// after the last record already summarized. A nil stop runs through the last archive record.
func (m *Manager) BackfillDaySummary(ctx context.Context, start, stop *dates.Date, transDays int, progress ProgressFunc) (BackfillResult, error) {
	var result BackfillResult
	if transDays <= 0 {
		transDays = 1
	}

	lastUpdate, err := m.lastUpdate(ctx)
	if err != nil {
		return result, err
	}

	// An open-ended rebuild resumes after the last summarized record. A rebuild
	// bounded only by stop starts from the beginning of the archive.
	resumeFrom := lastUpdate
	if stop != nil {
		resumeFrom = 0
	}

	var first dates.Date
	if start != nil {
		first = *start
	} else {
		ts, ok, err := m.firstRecordAfter(ctx, resumeFrom)
		if err != nil {
			return result, err
		}
		if !ok {
			m.logger.Debug("No archive records to summarize", "last_update", lastUpdate)
			return result, nil
		}
		first = m.recordDay(ts)
	}

	var last dates.Date
	if stop != nil {
		last = *stop
	} else {
		ts, ok, err := m.lastRecord(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		last = m.recordDay(ts)
	}

	if first.After(last) {
		return result, nil
	}

	m.logger.Info("Backfilling daily summaries", "from", first.String(), "through", last.String(), "trans_days", transDays)

	batches := perf.NewThroughput("backfill_batch", m.logger, slowBatch)
	defer batches.Log(slog.LevelDebug)

	newest := lastUpdate
	for batchStart := first; !batchStart.After(last); batchStart = batchStart.AddDays(transDays) {
		batchEnd := batchStart.AddDays(transDays - 1)
		if batchEnd.After(last) {
			batchEnd = last
		}

		timer := perf.NewTimer("backfill_batch", m.logger, slowBatch)
		records, days := result.Records, result.Days
		batchNewest, err := m.backfillBatch(ctx, batchStart, batchEnd, newest, &result, progress)
		if err != nil {
			return result, err
		}
		batches.Add(timer.Stop(), result.Records-records, result.Days-days)
		newest = batchNewest

		m.logger.Debug("Committed daily summary batch", "from", batchStart.String(), "through", batchEnd.String(), "records", result.Records)
	}

	m.logger.Info("Backfill complete", "records", result.Records, "days", result.Days)
	return result, nil
}

// backfillBatch summarizes the days first through last in one transaction and
// returns the newest record timestamp seen, never older than newest.
func (m *Manager) backfillBatch(ctx context.Context, first, last dates.Date, newest int64, result *BackfillResult, progress ProgressFunc) (int64, error) {
	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return newest, fmt.Errorf("%w: failed to begin transaction: %v", storage.ErrOperational, err)
	}
	defer tx.Rollback()

	batchNewest := newest
	for day := first; !day.After(last); day = day.AddDays(1) {
		accs, nrecs, maxTs, err := m.summarizeDay(ctx, tx, day, result, progress)
		if err != nil {
			return newest, err
		}
		if nrecs == 0 {
			continue
		}

		dayStart := day.Start(m.loc).Unix()
		for i, obs := range m.obsTypes {
			if err := m.writeDaySummary(ctx, tx, obs, dayStart, accs[i]); err != nil {
				return newest, err
			}
		}

		result.Days++
		if maxTs > batchNewest {
			batchNewest = maxTs
		}
	}

	if batchNewest > newest {
		if err := m.writeMetadata(ctx, tx, metaLastUpdate, strconv.FormatInt(batchNewest, 10)); err != nil {
			return newest, err
		}
	}

	if err := tx.Commit(); err != nil {
		return newest, fmt.Errorf("%w: failed to commit daily summaries: %v", storage.ErrOperational, err)
	}
	return batchNewest, nil
}

// summarizeDay aggregates the archive records belonging to day. Records are
// stamped at the end of their interval, so a day owns (midnight, next midnight].
func (m *Manager) summarizeDay(ctx context.Context, tx *sql.Tx, day dates.Date, result *BackfillResult, progress ProgressFunc) ([]accumulator, int, int64, error) {
	dayStart := day.Start(m.loc).Unix()
	dayEnd := day.AddDays(1).Start(m.loc).Unix()

	cols := append([]string{"dateTime", `"interval"`}, m.obsTypes...)
	query := m.db.Rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE dateTime > ? AND dateTime <= ? ORDER BY dateTime",
		strings.Join(cols, ", "), m.table))

	rows, err := tx.QueryContext(ctx, query, dayStart, dayEnd)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: failed to read archive for %s: %v", storage.ErrOperational, day, err)
	}
	defer rows.Close()

	accs := make([]accumulator, len(m.obsTypes))
	values := make([]sql.NullFloat64, len(m.obsTypes))
	dest := make([]any, 0, len(cols))
	var ts, interval int64
	dest = append(dest, &ts, &interval)
	for i := range values {
		dest = append(dest, &values[i])
	}

	nrecs := 0
	var maxTs int64
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, 0, fmt.Errorf("%w: failed to scan archive record: %v", storage.ErrOperational, err)
		}

		weight := interval * 60
		for i, v := range values {
			if v.Valid {
				accs[i].add(v.Float64, ts, weight)
			}
		}

		nrecs++
		maxTs = ts
		result.Records++
		if progress != nil && result.Records%progressEvery == 0 {
			progress(result.Records, time.Unix(ts, 0).In(m.loc))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: failed to read archive for %s: %v", storage.ErrOperational, day, err)
	}

	return accs, nrecs, maxTs, nil
}

func (m *Manager) writeDaySummary(ctx context.Context, tx *sql.Tx, obs string, dayStart int64, acc accumulator) error {
	var minTime, maxTime sql.NullInt64
	if acc.min.Valid {
		minTime = sql.NullInt64{Int64: acc.minTime, Valid: true}
	}
	if acc.max.Valid {
		maxTime = sql.NullInt64{Int64: acc.maxTime, Valid: true}
	}

	_, err := tx.ExecContext(ctx, m.db.Rebind(`
		INSERT INTO `+m.dayTable(obs)+` (dateTime, min, mintime, max, maxtime, sum, count, wsum, sumtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dateTime) DO UPDATE SET
			min = excluded.min, mintime = excluded.mintime,
			max = excluded.max, maxtime = excluded.maxtime,
			sum = excluded.sum, count = excluded.count,
			wsum = excluded.wsum, sumtime = excluded.sumtime
	`), dayStart, acc.min, minTime, acc.max, maxTime, acc.sum, acc.count, acc.wsum, acc.sumTime)
	if err != nil {
		return fmt.Errorf("%w: failed to write %s summary: %v", storage.ErrOperational, obs, err)
	}
	return nil
}

// recordDay returns the day an archive record belongs to.
func (m *Manager) recordDay(ts int64) dates.Date {
	return dates.FromTime(time.Unix(ts-1, 0).In(m.loc))
}

func (m *Manager) lastUpdate(ctx context.Context) (int64, error) {
	value, ok, err := m.readMetadata(ctx, m.db.DB(), metaLastUpdate)
	if err != nil || !ok {
		return 0, err
	}
	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt lastUpdate metadata '%s'", storage.ErrOperational, value)
	}
	return ts, nil
}

// LastUpdate returns the timestamp of the newest record included in the daily summaries.
func (m *Manager) LastUpdate(ctx context.Context) (time.Time, bool, error) {
	ts, err := m.lastUpdate(ctx)
	if err != nil || ts == 0 {
		return time.Time{}, false, err
	}
	return time.Unix(ts, 0).In(m.loc), true, nil
}

func (m *Manager) firstRecordAfter(ctx context.Context, after int64) (int64, bool, error) {
	var ts sql.NullInt64
	err := m.db.DB().QueryRowContext(ctx,
		m.db.Rebind("SELECT MIN(dateTime) FROM "+m.table+" WHERE dateTime > ?"), after).Scan(&ts)
	if err != nil {
		return 0, false, fmt.Errorf("%w: failed to find first record: %v", storage.ErrOperational, err)
	}
	return ts.Int64, ts.Valid, nil
}

func (m *Manager) lastRecord(ctx context.Context) (int64, bool, error) {
	var ts sql.NullInt64
	err := m.db.DB().QueryRowContext(ctx, "SELECT MAX(dateTime) FROM "+m.table).Scan(&ts)
	if err != nil {
		return 0, false, fmt.Errorf("%w: failed to find last record: %v", storage.ErrOperational, err)
	}
	return ts.Int64, ts.Valid, nil
}

// DaySummary reads the stored summary of obs for day. ok is false when none exists.
func (m *Manager) DaySummary(ctx context.Context, obs string, day dates.Date) (DaySummary, bool, error) {
	if !identPattern.MatchString(obs) {
		return DaySummary{}, false, fmt.Errorf("invalid observation type '%s'", obs)
	}

	dayStart := day.Start(m.loc).Unix()
	var (
		s                DaySummary
		minTime, maxTime sql.NullInt64
		sum, wsum        sql.NullFloat64
		count, sumTime   sql.NullInt64
	)
	err := m.db.DB().QueryRowContext(ctx, m.db.Rebind(`
		SELECT min, mintime, max, maxtime, sum, count, wsum, sumtime
		FROM `+m.dayTable(obs)+` WHERE dateTime = ?
	`), dayStart).Scan(&s.Min, &minTime, &s.Max, &maxTime, &sum, &count, &wsum, &sumTime)
	if err == sql.ErrNoRows {
		return DaySummary{}, false, nil
	}
	if err != nil {
		return DaySummary{}, false, fmt.Errorf("failed to read %s summary: %w", obs, err)
	}

	s.Start = time.Unix(dayStart, 0).In(m.loc)
	if minTime.Valid {
		s.MinTime = time.Unix(minTime.Int64, 0).In(m.loc)
	}
	if maxTime.Valid {
		s.MaxTime = time.Unix(maxTime.Int64, 0).In(m.loc)
	}
	s.Sum = sum.Float64
	s.Count = int(count.Int64)
	s.WSum = wsum.Float64
	s.SumTime = sumTime.Int64
	return s, true, nil
}
