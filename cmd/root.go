package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sqlrun",
	Short: "sqlrun applies a directory of SQL scripts to a database in natural order.",
	Long: `sqlrun applies a directory tree of SQL scripts to a database in
deterministic natural order (1, 2, 10) under a caller-selected
transaction mode, and writes a per-category accounting of every file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
