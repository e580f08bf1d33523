package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeBiancalana/wxctl/internal/dates"
	"github.com/MikeBiancalana/wxctl/internal/perf"
)

// RebuildDailySummary backfills the daily summaries for the requested dates,
// or for every day not yet summarized when no dates are given.
func (r *Runner) RebuildDailySummary(ctx context.Context, req Request) error {
	cfg, log, err := r.begin(req, "rebuild-daily")
	if err != nil {
		return err
	}

	name, err := r.databaseName(cfg, req.binding())
	if err != nil {
		return err
	}

	rng, err := dates.Parse(req.Date, req.FromDate, req.ToDate)
	if err != nil {
		return err
	}

	msg := describeRange(rng)
	log.Info(msg)
	r.println(msg)

	ok, err := r.confirm(ctx, req, log, fmt.Sprintf("Rebuild the daily summaries in the database '%s'? (y/n) ", name))
	if err != nil {
		return err
	}
	if !ok {
		log.Info(nothingDone)
		r.println(nothingDone)
		return nil
	}

	msg = fmt.Sprintf("Rebuilding daily summaries in database '%s' ...", name)
	log.Info(msg)
	r.println(msg)

	if req.DryRun {
		r.println(dryRunEnd)
		return nil
	}

	timer := perf.NewTimer("rebuild_daily", log, 0)
	mgr, err := r.Opener.Open(ctx, cfg, req.binding(), true)
	if err != nil {
		return err
	}
	defer closeManager(log, mgr)

	result, err := mgr.BackfillDaySummary(ctx, rng.From, rng.To, TransDays, r.progress)
	if err != nil {
		return fmt.Errorf("failed to rebuild daily summaries: %w", err)
	}
	elapsed := timer.Stop()

	done := fmt.Sprintf("Rebuild of daily summaries in database '%s' complete.", name)
	log.Info(done, "records", result.Records, "days", result.Days, "elapsed", elapsed)

	if result.Records == 0 {
		r.printf("Daily summaries up to date in '%s'.\n", name)
		return nil
	}

	// The progress line ends without a newline.
	if result.Records >= 1000 {
		r.println()
	}
	r.printf("Processed %d records to rebuild %s in %.2f seconds.\n",
		result.Records, pluralize(result.Days, "daily summary", "daily summaries"), elapsed.Seconds())
	r.println(done)
	return nil
}

func (r *Runner) progress(records int, last time.Time) {
	r.printf("\rRecords processed: %d; last date: %s", records, last.Format("2006-01-02"))
}

// describeRange tells the operator which days a rebuild will touch.
func describeRange(rng dates.Range) string {
	switch {
	case rng.From == nil && rng.To == nil:
		return "All daily summaries will be rebuilt."
	case rng.To == nil:
		return fmt.Sprintf("Daily summaries starting with %s will be rebuilt.", rng.From)
	case rng.From == nil:
		return fmt.Sprintf("Daily summaries through %s will be rebuilt.", rng.To)
	case rng.From.Equal(*rng.To):
		return fmt.Sprintf("Daily summary for %s will be rebuilt.", rng.From)
	default:
		return fmt.Sprintf("Daily summaries from %s through %s, inclusive, will be rebuilt.", rng.From, rng.To)
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %s", n, plural)
}
