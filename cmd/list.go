package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlrun/sqlrun/internal/logging"
	"github.com/sqlrun/sqlrun/internal/natsort"
	"github.com/sqlrun/sqlrun/internal/report"
	"github.com/sqlrun/sqlrun/internal/scan"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List SQL scripts in natural order without executing them",
	Long: `Recursively scan a directory for '*.sql' files, sort them the way
the run command would execute them, and write files_found/anomalies
listings. No database connection is made.`,
	RunE: runList,
}

var (
	listDir    string
	listLogDir string
	listSuffix string
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listDir, "sql-dir", "d", ".", "Directory containing '*.sql' files")
	listCmd.Flags().StringVar(&listLogDir, "log-dir", "./logs", "Directory for listings")
	listCmd.Flags().StringVar(&listSuffix, "suffix", ".sql", "Script file suffix")
}

func runList(cmd *cobra.Command, args []string) error {
	sink, err := logging.New("info")
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if info, err := os.Stat(listDir); err != nil || !info.IsDir() {
		return fmt.Errorf("script directory not found: %s", listDir)
	}

	res, err := scan.Scan(listDir, listSuffix, sink)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", listDir, err)
	}
	natsort.Sort(res.Files)
	natsort.Sort(res.Anomalies)

	for _, path := range res.Files {
		fmt.Println(path)
	}

	runID := time.Now().Format("2006-01-02__15-04-05")
	outDir := filepath.Join(listLogDir, runID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: could not create log directory %q, listings skipped: %v\n", outDir, err)
		return nil
	}
	if err := report.WriteScan(outDir, runID, res, sink); err != nil {
		return fmt.Errorf("failed to write listings: %w", err)
	}
	fmt.Printf("Found paths logged to %q\n", outDir)
	return nil
}
