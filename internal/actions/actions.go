// Package actions implements the interactive database maintenance actions:
// creating a database and dropping or rebuilding its daily summaries.
package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MikeBiancalana/wxctl/internal/config"
	"github.com/MikeBiancalana/wxctl/internal/dates"
	"github.com/MikeBiancalana/wxctl/internal/logger"
	"github.com/MikeBiancalana/wxctl/internal/manager"
	"github.com/MikeBiancalana/wxctl/internal/prompt"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/xid"
)

// TransDays is how many days of daily summaries a rebuild commits per transaction.
const TransDays = 20

const (
	dryRunStart = "This is a dry run. Nothing will actually be done."
	dryRunEnd   = "This was a dry run. Nothing was actually done."
	nothingDone = "Nothing done."
)

var bold = lipgloss.NewStyle().Bold(true)

// Request carries the options of one action invocation.
type Request struct {
	ConfigPath string
	Binding    string
	DryRun     bool
	// AssumeYes answers every confirmation with yes.
	AssumeYes bool

	// Date selects a single day. FromDate and ToDate select an inclusive range.
	Date     string
	FromDate string
	ToDate   string
}

func (r Request) binding() string {
	if r.Binding == "" {
		return config.DefaultBinding
	}
	return r.Binding
}

// Manager is the open database handle an action works through.
type Manager interface {
	DatabaseName() string
	DropDaily(ctx context.Context) error
	BackfillDaySummary(ctx context.Context, start, stop *dates.Date, transDays int, progress manager.ProgressFunc) (manager.BackfillResult, error)
	Close() error
}

// Opener opens the database behind a binding. With initialize set, missing
// database structures are created.
type Opener interface {
	Open(ctx context.Context, cfg *config.Config, binding string, initialize bool) (Manager, error)
}

// ManagerOpener opens real databases through the manager package.
// Logger is resolved at open time so settings from the config file apply.
type ManagerOpener struct {
	Logger *slog.Logger
}

// Open uses the process logger when Logger is nil.
func (o ManagerOpener) Open(ctx context.Context, cfg *config.Config, binding string, initialize bool) (Manager, error) {
	log := o.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	m, err := manager.Open(ctx, cfg, binding, manager.Options{Initialize: initialize, Logger: log})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Runner runs actions against its collaborators. The zero value is not usable; see NewRunner.
type Runner struct {
	Out      io.Writer
	Err      io.Writer
	Prompter prompt.Prompter
	Opener   Opener

	// Logger defaults to the process logger.
	Logger *slog.Logger

	// LoadConfig defaults to config.Read.
	LoadConfig func(path string) (string, *config.Config, error)

	// OnConfig, when set, is called once the configuration has been read.
	OnConfig func(cfg *config.Config)
}

// NewRunner returns a Runner that talks to the real database manager and writes to out.
func NewRunner(out, errOut io.Writer, p prompt.Prompter) *Runner {
	return &Runner{
		Out:        out,
		Err:        errOut,
		Prompter:   p,
		Opener:     ManagerOpener{},
		LoadConfig: config.Read,
	}
}

func (r *Runner) logger(op string) *slog.Logger {
	l := r.Logger
	if l == nil {
		l = logger.GetLogger()
	}
	return l.With("op", op, "op_id", xid.New().String())
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.Out, format, args...)
}

func (r *Runner) println(args ...any) {
	fmt.Fprintln(r.Out, args...)
}

// begin prints the dry-run banner and reads the configuration. The returned
// logger is built afterwards so it follows any logging settings from the file.
func (r *Runner) begin(req Request, op string) (*config.Config, *slog.Logger, error) {
	if req.DryRun {
		r.println(dryRunStart)
	}

	cfg, err := r.readConfig(req.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, r.logger(op), nil
}

func (r *Runner) readConfig(path string) (*config.Config, error) {
	load := r.LoadConfig
	if load == nil {
		load = config.Read
	}

	resolved, cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if r.OnConfig != nil {
		r.OnConfig(cfg)
	}

	r.printf("The configuration file %s will be used.\n", bold.Render(resolved))
	return cfg, nil
}

func (r *Runner) databaseName(cfg *config.Config, binding string) (string, error) {
	md, err := cfg.ManagerDict(binding)
	if err != nil {
		return "", err
	}
	return md.Database.DatabaseName, nil
}

func (r *Runner) confirm(ctx context.Context, req Request, log *slog.Logger, question string) (bool, error) {
	if req.AssumeYes {
		log.Debug("Confirmation assumed", "question", question)
		return true, nil
	}
	if r.Prompter == nil {
		return false, errors.New("no prompter configured")
	}
	ok, err := r.Prompter.YesNo(ctx, question)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// closeManager releases a scoped handle, logging rather than returning close errors.
func closeManager(log *slog.Logger, m Manager) {
	if err := m.Close(); err != nil {
		log.Warn("Failed to close database", "database", m.DatabaseName(), "error", err)
	}
}

// DefaultOutput returns a Runner wired to the process stdout, stderr and terminal.
func DefaultOutput() *Runner {
	return NewRunner(os.Stdout, os.Stderr, prompt.ForTerminal(os.Stdin, os.Stdout))
}
