package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the database",
	Long: `Run an arbitrary SQL query against the database and print results as a table.

Schema overview:
  matches(id, date, playlist_code, red_round_wins, blue_round_wins, winner, match_quality)
  rounds(match_id, round_number, date, map_name, start_time, end_time,
    blue_caps, red_caps, winner)
  event_kills(match_id, round_number, timestamp, date, killer_id, killer_team,
    victim_id, victim_team, weapon)
  event_caps(match_id, round_number, map_name, timestamp, capping_team,
    player_id, millis_since_start)
  team_round_tags(match_id, round_number, team, tag)
  usage_rounds(round_id, date)
  round_usage(round_id, date, weapon, usage)
  import_sessions(id, corpus, started_at, finished_at, dispatched, filtered, ..., error)

Example:
  s2stats sql "SELECT tag, COUNT(1) FROM team_round_tags GROUP BY tag"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	report.PrintQueryResult(os.Stdout, cols, rows)
	return nil
}
