package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeBiancalana/wxctl/internal/config"
	"github.com/MikeBiancalana/wxctl/internal/perf"
	"github.com/MikeBiancalana/wxctl/internal/storage"
)

// DropDailySummary deletes every daily summary table from the binding's database
// after asking for confirmation.
func (r *Runner) DropDailySummary(ctx context.Context, req Request) error {
	cfg, log, err := r.begin(req, "drop-daily")
	if err != nil {
		return err
	}

	name, err := r.databaseName(cfg, req.binding())
	if err != nil {
		return err
	}

	r.printf("Proceeding will delete all your daily summaries from database '%s'\n", name)
	ok, err := r.confirm(ctx, req, log, "Are you sure you want to proceed (y/n)? ")
	if err != nil {
		return err
	}

	if ok {
		if err := r.dropDaily(ctx, req, cfg, name, log); err != nil {
			return err
		}
	} else {
		r.println(nothingDone)
	}

	if req.DryRun {
		r.println(dryRunEnd)
	}
	return nil
}

// dropDaily reports a missing daily summary and a failed drop as different
// outcomes. Neither is an error for the caller.
func (r *Runner) dropDaily(ctx context.Context, req Request, cfg *config.Config, name string, log *slog.Logger) error {
	timer := perf.NewTimer("drop_daily", log, 0)
	r.printf("Dropping daily summary tables from '%s' ... \n", name)

	mgr, err := r.Opener.Open(ctx, cfg, req.binding(), false)
	if err != nil {
		if errors.Is(err, storage.ErrOperational) {
			r.printf("No daily summaries found in database '%s'. Nothing done.\n", name)
			log.Info("No daily summaries to drop", "database", name, "reason", err)
			return nil
		}
		return err
	}
	defer closeManager(log, mgr)

	if !req.DryRun {
		if err := mgr.DropDaily(ctx); err != nil {
			if !errors.Is(err, storage.ErrOperational) {
				return err
			}
			fmt.Fprintf(r.Err, "Error '%s'\n", err)
			r.printf("Drop daily summary tables failed for database '%s'\n", name)
			log.Error("Drop daily summary tables failed", "database", name, "error", err)
			return nil
		}
	}

	elapsed := timer.Stop()
	r.printf("Daily summary tables dropped from database '%s' in %.2f seconds\n", name, elapsed.Seconds())
	log.Info("Dropped daily summary tables", "database", name, "dry_run", req.DryRun)
	return nil
}
