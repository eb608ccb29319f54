package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

var (
	roundsMap    string
	roundsWinner string
	roundsTies   bool
)

// roundsCmd is the cobra command for the round drill-down of one match.
var roundsCmd = &cobra.Command{
	Use:   "rounds <match-id>",
	Short: "Per-round drill-down for one match",
	Args:  cobra.ExactArgs(1),
	RunE:  runRounds,
}

func init() {
	roundsCmd.Flags().StringVar(&roundsMap, "map", "", "only rounds on this map")
	roundsCmd.Flags().StringVar(&roundsWinner, "winner", "", "only rounds won by this team: Red or Blue")
	roundsCmd.Flags().BoolVar(&roundsTies, "ties", false, "only tied rounds")
}

// filterRounds applies --map, --winner and --ties.
func filterRounds(rounds []model.Round, mapName, winner string, ties bool) []model.Round {
	mapName = strings.ToLower(mapName)
	var out []model.Round
	for _, r := range rounds {
		if mapName != "" && r.MapName != mapName {
			continue
		}
		if ties && !r.IsTie() {
			continue
		}
		if winner != "" {
			w, ok := r.Winner()
			if !ok || !strings.EqualFold(string(w), winner) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func runRounds(cmd *cobra.Command, args []string) error {
	id, err := parseMatchID(args[0])
	if err != nil {
		return err
	}

	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	rounds, err := db.MatchRounds(id)
	if err != nil {
		return fmt.Errorf("query rounds: %w", err)
	}
	if len(rounds) == 0 {
		fmt.Fprintf(os.Stderr, "No match found with id %d\n", id)
		return nil
	}

	rounds = filterRounds(rounds, roundsMap, roundsWinner, roundsTies)
	if len(rounds) == 0 {
		fmt.Fprintln(os.Stderr, "No rounds match the given filters.")
		return nil
	}
	report.PrintRounds(os.Stdout, rounds)
	return nil
}
