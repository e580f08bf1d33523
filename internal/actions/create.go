package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/MikeBiancalana/wxctl/internal/storage"
)

// CreateDatabase creates and initializes the database behind the binding
// unless it already exists.
func (r *Runner) CreateDatabase(ctx context.Context, req Request) error {
	cfg, log, err := r.begin(req, "create-database")
	if err != nil {
		return err
	}

	// A plain open only succeeds when the database exists and is initialized.
	mgr, err := r.Opener.Open(ctx, cfg, req.binding(), false)
	if err == nil {
		defer closeManager(log, mgr)
		r.printf("Database '%s' already exists. Nothing done.\n", mgr.DatabaseName())
		log.Info("Database already exists", "database", mgr.DatabaseName())
		return nil
	}
	if !errors.Is(err, storage.ErrOperational) {
		return err
	}

	log.Debug("Database not ready", "error", err)
	if req.DryRun {
		return nil
	}

	mgr, err = r.Opener.Open(ctx, cfg, req.binding(), true)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer closeManager(log, mgr)

	r.printf("Created database '%s'.\n", mgr.DatabaseName())
	log.Info("Created database", "database", mgr.DatabaseName())
	return nil
}
