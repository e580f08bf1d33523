// Package perf times maintenance work and logs it through slog.
package perf

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Timer measures one operation's wall-clock time.
type Timer struct {
	name      string
	logger    *slog.Logger
	start     time.Time
	threshold time.Duration
}

// NewTimer starts a timer. A zero threshold never warns; a nil logger never logs.
func NewTimer(name string, logger *slog.Logger, threshold time.Duration) *Timer {
	return &Timer{
		name:      name,
		logger:    logger,
		start:     time.Now(),
		threshold: threshold,
	}
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop logs the elapsed time, warning when it exceeds the threshold, and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := t.Elapsed()
	if t.logger == nil {
		return elapsed
	}

	t.logger.Debug(t.name, "duration_ms", elapsed.Milliseconds())
	if t.threshold > 0 && elapsed > t.threshold {
		t.logger.Warn(t.name+"_slow", "duration_ms", elapsed.Milliseconds(), "threshold_ms", t.threshold.Milliseconds())
	}
	return elapsed
}

// Throughput accumulates the cost of committed batches of archive records.
type Throughput struct {
	name      string
	logger    *slog.Logger
	threshold time.Duration

	mu    sync.Mutex
	stats Stats
}

// Stats is a snapshot of a Throughput.
type Stats struct {
	Name        string
	Batches     int
	Records     int
	Days        int
	Total       time.Duration
	Slowest     time.Duration
	SlowBatches int
}

// RecordsPerSecond is zero until some time has been recorded.
func (s Stats) RecordsPerSecond() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Records) / s.Total.Seconds()
}

// NewThroughput returns an empty Throughput. Batches taking at least threshold count as slow.
func NewThroughput(name string, logger *slog.Logger, threshold time.Duration) *Throughput {
	return &Throughput{
		name:      name,
		logger:    logger,
		threshold: threshold,
		stats:     Stats{Name: name},
	}
}

// Add records one batch that processed records archive records into days daily summaries.
func (t *Throughput) Add(elapsed time.Duration, records, days int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Batches++
	t.stats.Records += records
	t.stats.Days += days
	t.stats.Total += elapsed
	if elapsed > t.stats.Slowest {
		t.stats.Slowest = elapsed
	}
	if t.threshold > 0 && elapsed >= t.threshold {
		t.stats.SlowBatches++
	}
}

func (t *Throughput) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Log writes a summary line at level. Nothing is logged before the first batch.
func (t *Throughput) Log(level slog.Level) {
	s := t.Stats()
	if s.Batches == 0 || t.logger == nil {
		return
	}
	t.logger.Log(context.Background(), level, s.Name+"_stats",
		"batches", s.Batches,
		"records", s.Records,
		"days", s.Days,
		"total_ms", s.Total.Milliseconds(),
		"slowest_ms", s.Slowest.Milliseconds(),
		"slow_batches", s.SlowBatches,
		"records_per_sec", int(s.RecordsPerSecond()),
	)
}
