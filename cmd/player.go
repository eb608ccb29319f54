package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

// playerCmd is the cobra command for cross-match kill stats of one or more players.
var playerCmd = &cobra.Command{
	Use:   "player <player-id> [<player-id>...]",
	Short: "Cross-match kill and weapon stats for one or more players",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlayer,
}

func runPlayer(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	players, err := loadPlayers(db, args)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		return nil
	}
	fmt.Fprintln(os.Stdout)
	report.PrintPlayers(os.Stdout, players)
	return nil
}

// loadPlayers skips ids without any stored kill event.
func loadPlayers(db *storage.DB, ids []string) ([]*model.PlayerStats, error) {
	var out []*model.PlayerStats
	for _, id := range ids {
		p, err := db.PlayerStats(id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			fmt.Fprintf(os.Stderr, "No data found for player %s\n", id)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
