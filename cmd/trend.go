package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/rolling"
	"github.com/pable/s2-analytics/internal/storage"
)

var trendWeapons []string

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Rolling weapon usage share over calendar days",
	Long: `For each selected weapon, print its share of the selected weapons' usage
averaged over a trailing window of days. A date shows "-" until the window
holds enough days with data.

Defaults come from the trend section of the config file.

Example:
  s2stats trend --weapons Barrett,SteyrAUG --window 7`,
	Args: cobra.NoArgs,
	RunE: runTrend,
}

func init() {
	f := trendCmd.Flags()
	f.StringSliceVar(&trendWeapons, "weapons", nil, "weapons to chart (default: weapons.primary)")
	f.Int("window", 0, "trailing window in days")
	f.Float64("periods", 0, "number of windows to show")
	f.Float64("required", 0, "share of window days that need data (0..1)")
	bindFlag("trend.window_days", f.Lookup("window"))
	bindFlag("trend.periods_visible", f.Lookup("periods"))
	bindFlag("trend.required_ratio", f.Lookup("required"))
}

func runTrend(cmd *cobra.Command, args []string) error {
	weapons := trendWeapons
	if len(weapons) == 0 {
		weapons = settings.Weapons.Primary
	}

	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	totals, err := db.UsageTotals()
	if err != nil {
		return fmt.Errorf("read usage: %w", err)
	}
	if len(totals.Rounds) == 0 {
		fmt.Fprintln(os.Stdout, "No usage data stored. Run 's2stats import' first.")
		return nil
	}

	p := settings.Trend
	logger.Debugw("trend", "weapons", weapons, "window", p.WindowDays,
		"visible_days", p.TotalDaysVisible(), "min_days", p.MinDaysForAverage())
	series, err := rolling.Report(totals.Sums, totals.Rounds, weapons, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\n=== Usage share, %d-day window ===\n\n", p.WindowDays)
	report.PrintTrend(os.Stdout, series, weapons)
	return nil
}
