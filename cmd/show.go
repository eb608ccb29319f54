package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

var showWithOutcome bool

var showCmd = &cobra.Command{
	Use:   "show <match-id>",
	Short: "Show the rounds and team-round tags of a stored match",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showWithOutcome, "with-outcome", true, "include win/lose tags")
}

func parseMatchID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid match id %q: %w", arg, err)
	}
	return id, nil
}

func runShow(cmd *cobra.Command, args []string) error {
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

	q := storage.TagQuery{MatchID: id}
	if !showWithOutcome {
		q.Filter = storage.WithoutOutcome
	}
	rows, err := db.TagRows(q)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}

	fmt.Fprintf(os.Stdout, "\nMatch %d  |  Rounds: %d\n\n", id, len(rounds))
	report.PrintRounds(os.Stdout, rounds)
	fmt.Fprintln(os.Stdout)
	report.PrintTagRows(os.Stdout, rows)
	return nil
}
