package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlrun/sqlrun/internal/config"
	"github.com/sqlrun/sqlrun/internal/database"
	"github.com/sqlrun/sqlrun/internal/logging"
	"github.com/sqlrun/sqlrun/internal/orchestrate"
	"github.com/sqlrun/sqlrun/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute SQL scripts from a directory against a database",
	Long: `Execute every *.sql file under a directory, recursively and in
natural order, against the configured database.

Transaction modes:
  per-file              Commit after each script. On an error, roll back
                        that script and continue with the next one.
  all-or-nothing        One transaction for the whole batch. Commit only
                        if every script succeeds; any error rolls back
                        everything.
  per-file-until-error  Commit after each script, but halt the run and
                        roll back on the first error encountered.`,
	RunE: runRun,
}

var (
	runDir      string
	runMode     string
	runEnv      string
	runLogDir   string
	runLogLevel string
	runSuffix   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runDir, "sql-dir", "d", ".", "Directory containing '*.sql' files")
	runCmd.Flags().StringVarP(&runMode, "transaction-mode", "t", "", "Transaction behavior: per-file, all-or-nothing, per-file-until-error")
	runCmd.Flags().StringVar(&runEnv, "environment", "", "Database environment from sqlrun.toml")
	runCmd.Flags().StringVar(&runLogDir, "log-dir", "./logs", "Directory for run logs and report listings")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	runCmd.Flags().StringVar(&runSuffix, "suffix", ".sql", "Script file suffix")
	_ = runCmd.MarkFlagRequired("transaction-mode")
}

func runRun(cmd *cobra.Command, args []string) error {
	mode, err := runner.ParseMode(runMode)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	params, err := config.Resolve(cfg, runEnv)
	if err != nil {
		return err
	}

	runID := time.Now().Format("2006-01-02_150405")
	reportDir := filepath.Join(runLogDir, runID)

	// A report directory that cannot be created disables file logging
	// and listings but never aborts the run.
	var extraLogPaths []string
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: could not create log directory %q, file logging disabled: %v\n", reportDir, err)
		reportDir = ""
	} else {
		extraLogPaths = append(extraLogPaths, filepath.Join(reportDir, "sqlrun_"+runID+".log"))
	}

	sink, err := logging.New(runLogLevel, extraLogPaths...)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	connString := params.ConnString()
	driver := params.Driver
	if driver == "" {
		driver = database.DetectDriver(connString)
	}
	connector := database.NewRetryConnector(driver, connString, sink)

	rep, err := orchestrate.Run(cmd.Context(), orchestrate.Options{
		Dir:       runDir,
		Suffix:    runSuffix,
		Mode:      mode,
		Connector: connector,
		Sink:      sink,
		ReportDir: reportDir,
		RunID:     runID,
	})
	if err != nil {
		return err
	}
	if rep.FatalError {
		return fmt.Errorf("run finished with fatal errors, see %s", reportDir)
	}
	return nil
}
