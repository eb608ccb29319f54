package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about the imported dataset: first and last
game, totals and the number of games per playlist.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ov, err := db.Overview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.TotalGames == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 's2stats import <corpus-dir>' to add some.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n")
	report.PrintOverview(os.Stdout, ov)
	return nil
}
