package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/MikeBiancalana/wxctl/internal/actions"
	"github.com/MikeBiancalana/wxctl/internal/config"
	"github.com/MikeBiancalana/wxctl/internal/logger"
	"github.com/MikeBiancalana/wxctl/internal/prompt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseCommand_Subcommands(t *testing.T) {
	names := []string{}
	for _, c := range databaseCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"create", "drop-daily", "rebuild-daily"}, names)
}

func TestDatabaseCommand_Flags(t *testing.T) {
	pf := databaseCmd.PersistentFlags()
	require.NotNil(t, pf.Lookup("config"))
	require.NotNil(t, pf.Lookup("dry-run"))
	binding := pf.Lookup("binding")
	require.NotNil(t, binding)
	assert.Equal(t, config.DefaultBinding, binding.DefValue)

	assert.NotNil(t, databaseDropDailyCmd.Flags().ShorthandLookup("y"))
	assert.Nil(t, databaseCreateCmd.Flags().Lookup("yes"))

	for _, name := range []string{"date", "from", "to", "yes"} {
		assert.NotNil(t, databaseRebuildDailyCmd.Flags().Lookup(name), name)
	}
}

// runCLI executes the root command with args and a fixed prompt answer.
func runCLI(t *testing.T, answer bool, args ...string) (string, error) {
	t.Helper()

	orig := newRunner
	newRunner = func(cmd *cobra.Command) *actions.Runner {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		r := actions.NewRunner(cmd.OutOrStdout(), cmd.ErrOrStderr(), prompt.Always(answer))
		r.Logger = logger
		r.Opener = actions.ManagerOpener{Logger: logger}
		return r
	}
	t.Cleanup(func() { newRunner = orig })

	return executeCLI(t, args...)
}

// executeCLI executes the root command with args and returns what it printed.
func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configFlag, bindingFlag, dryRunFlag, yesFlag = "", config.DefaultBinding, false, false
	dateFlag, fromFlag, toFlag = "", "", ""
	reset := func(f *pflag.Flag) { f.Changed = false }
	databaseCmd.PersistentFlags().VisitAll(reset)
	for _, c := range databaseCmd.Commands() {
		c.Flags().VisitAll(reset)
	}

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})

	err := RootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	data := `
station:
  timezone: UTC
data_bindings:
  wx_binding:
    database: archive_sqlite
    observations: [outTemp]
databases:
  archive_sqlite:
    database_name: weewx.sdb
    driver: sqlite
    sqlite_root: .
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestDatabaseCreate(t *testing.T) {
	path := writeConfig(t)

	out, err := runCLI(t, true, "database", "create", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created database 'weewx.sdb'.")
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "weewx.sdb"))

	out, err = runCLI(t, true, "database", "create", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Database 'weewx.sdb' already exists. Nothing done.")
}

func TestDatabaseCreate_DryRun(t *testing.T) {
	path := writeConfig(t)

	out, err := runCLI(t, true, "database", "create", "--config", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "This is a dry run. Nothing will actually be done.")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(path), "weewx.sdb"))
}

func TestDatabaseDropDaily_Declined(t *testing.T) {
	path := writeConfig(t)

	out, err := runCLI(t, false, "database", "drop-daily", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Proceeding will delete all your daily summaries from database 'weewx.sdb'")
	assert.Contains(t, out, "Nothing done.")
}

func TestDatabaseRebuildDaily(t *testing.T) {
	path := writeConfig(t)

	_, err := runCLI(t, true, "database", "create", "--config", path)
	require.NoError(t, err)

	out, err := runCLI(t, false, "database", "rebuild-daily", "--config", path, "-y", "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Daily summaries from 2024-01-01 through 2024-01-31, inclusive, will be rebuilt.")
	assert.Contains(t, out, "Daily summaries up to date in 'weewx.sdb'.")
}

func TestDatabaseRebuildDaily_DateConflict(t *testing.T) {
	path := writeConfig(t)

	_, err := runCLI(t, true, "database", "rebuild-daily", "--config", path, "--date", "2024-01-01", "--from", "2024-01-01")
	assert.Error(t, err)
}

func TestDatabaseCreate_MissingConfig(t *testing.T) {
	_, err := runCLI(t, true, "database", "create", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestDatabaseCreate_LogsToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "wxctl.log")
	path := filepath.Join(dir, config.ConfigFileName)
	data := `
station:
  timezone: UTC
logging:
  level: debug
  format: json
  file: ` + logFile + `
data_bindings:
  wx_binding:
    database: archive_sqlite
databases:
  archive_sqlite:
    database_name: weewx.sdb
    driver: sqlite
    sqlite_root: .
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Cleanup(func() { logger.Close() })

	out, err := executeCLI(t, "database", "create", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created database 'weewx.sdb'.")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"Created database"`)
	assert.Contains(t, string(content), `"op":"create-database"`)
	assert.Contains(t, string(content), `"msg":"Created archive table"`)
}
