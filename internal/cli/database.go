package cli

import (
	"github.com/MikeBiancalana/wxctl/internal/actions"
	"github.com/MikeBiancalana/wxctl/internal/config"
	"github.com/spf13/cobra"
)

var (
	configFlag  string
	bindingFlag string
	dryRunFlag  bool
	yesFlag     bool
	dateFlag    string
	fromFlag    string
	toFlag      string
)

// databaseCmd groups the database maintenance actions
var databaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Manage the archive database",
	Long:  "Create the archive database, or drop and rebuild its daily summaries.",
}

var databaseCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new database",
	Long:  "Creates the database behind a binding and initializes its archive and daily summary tables. An existing database is left alone.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newRunner(cmd).CreateDatabase(cmd.Context(), request())
	},
}

var databaseDropDailyCmd = &cobra.Command{
	Use:   "drop-daily",
	Short: "Drop the daily summary tables",
	Long:  "Deletes every daily summary table from the database. The archive is not touched; use rebuild-daily to recreate the summaries.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newRunner(cmd).DropDailySummary(cmd.Context(), request())
	},
}

var databaseRebuildDailyCmd = &cobra.Command{
	Use:   "rebuild-daily",
	Short: "Rebuild the daily summaries",
	Long: `Rebuilds the daily summaries from the archive records.

Without dates, every day after the last summarized record is rebuilt.
--date rebuilds a single day. --from and --to bound an inclusive range and
may be given alone. Dates use the form YYYY-MM-DD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newRunner(cmd).RebuildDailySummary(cmd.Context(), request())
	},
}

func init() {
	pf := databaseCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "Path to the configuration file")
	pf.StringVar(&bindingFlag, "binding", config.DefaultBinding, "Data binding to use")
	pf.BoolVar(&dryRunFlag, "dry-run", false, "Print what would happen without changing anything")

	databaseDropDailyCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")
	databaseRebuildDailyCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")

	databaseRebuildDailyCmd.Flags().StringVar(&dateFlag, "date", "", "Rebuild a single day (YYYY-MM-DD)")
	databaseRebuildDailyCmd.Flags().StringVar(&fromFlag, "from", "", "First day to rebuild (YYYY-MM-DD)")
	databaseRebuildDailyCmd.Flags().StringVar(&toFlag, "to", "", "Last day to rebuild (YYYY-MM-DD)")
	databaseRebuildDailyCmd.MarkFlagsMutuallyExclusive("date", "from")
	databaseRebuildDailyCmd.MarkFlagsMutuallyExclusive("date", "to")

	databaseCmd.AddCommand(databaseCreateCmd)
	databaseCmd.AddCommand(databaseDropDailyCmd)
	databaseCmd.AddCommand(databaseRebuildDailyCmd)
}

func request() actions.Request {
	return actions.Request{
		ConfigPath: configFlag,
		Binding:    bindingFlag,
		DryRun:     dryRunFlag,
		AssumeYes:  yesFlag,
		Date:       dateFlag,
		FromDate:   fromFlag,
		ToDate:     toFlag,
	}
}
