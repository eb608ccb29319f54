package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/correlation"
	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()
	engine := correlation.NewEngine(db)

	cGreeting.Println("s2stats shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("s2stats")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "summary":
			shellSummary(db)
		case "list":
			shellList(db)
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <match-id>")
				continue
			}
			shellShow(db, args[0])
		case "correlate":
			mapName := ""
			if len(args) > 0 {
				mapName = strings.ToLower(args[0])
			}
			shellCorrelate(engine, mapName)
		case "tag":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: tag <tag> [<tag>...]")
				continue
			}
			shellTag(engine, args)
		case "tags":
			shellTags(db)
		case "player":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: player <player-id> [<player-id>...]")
				continue
			}
			shellPlayer(db, args)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
		}
	}
	return scanner.Err()
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"summary", "database overview"},
		{"list", "list stored matches"},
		{"show <match-id>", "show a match's rounds and tags"},
		{"correlate [map]", "tag/win correlation, all maps or one map"},
		{"tag <tag> [...]", "per-map correlation and samples for tags"},
		{"tags", "weapon tag counts"},
		{"player <player-id> [...]", "kills by weapon for one or more players"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-30s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellError(err error) {
	cError.Fprintf(os.Stderr, "error: %v\n", err)
}

func shellSummary(db *storage.DB) {
	ov, err := db.Overview()
	if err != nil {
		shellError(err)
		return
	}
	report.PrintOverview(os.Stdout, ov)
}

func shellList(db *storage.DB) {
	matches, err := db.ListMatches(0)
	if err != nil {
		shellError(err)
		return
	}
	if len(matches) == 0 {
		cMuted.Println("No matches stored yet.")
		return
	}
	cHeader.Fprintf(os.Stdout, "%-20s  %-10s  %-8s  %7s  %-6s  %s\n",
		"ID", "DATE", "PLAYLIST", "SCORE", "WINNER", "ROUNDS")
	cMuted.Fprintf(os.Stdout, "%-20s  %-10s  %-8s  %7s  %-6s  %s\n",
		"────────────────────", "──────────", "────────", "───────", "──────", "──────")
	for _, m := range matches {
		winner := m.Winner
		if winner == "" {
			winner = "tie"
		}
		score := fmt.Sprintf("%d-%d", m.RedRoundWins, m.BlueRoundWins)
		fmt.Fprintf(os.Stdout, "%-20d  %-10s  %-8s  %7s  %-6s  %d\n",
			m.ID, m.Date, m.PlaylistCode, score, winner, m.Rounds)
	}
}

func shellShow(db *storage.DB, arg string) {
	id, err := parseMatchID(arg)
	if err != nil {
		shellError(err)
		return
	}
	rounds, err := db.MatchRounds(id)
	if err != nil {
		shellError(err)
		return
	}
	if len(rounds) == 0 {
		cWarn.Fprintf(os.Stderr, "no match found with id %d\n", id)
		return
	}
	rows, err := db.TagRows(storage.TagQuery{MatchID: id})
	if err != nil {
		shellError(err)
		return
	}
	report.PrintRounds(os.Stdout, rounds)
	fmt.Println()
	report.PrintTagRows(os.Stdout, rows)
}

func shellCorrelate(engine *correlation.Engine, mapName string) {
	corr, err := engine.WinCorrelation(mapName)
	if err != nil {
		shellError(err)
		return
	}
	report.PrintCorrelations(os.Stdout, "", corr, 0)
}

func shellTag(engine *correlation.Engine, tags []string) {
	tcs, err := engine.ForTags(tags)
	if err != nil {
		shellError(err)
		return
	}
	report.PrintTagCorrelations(os.Stdout, tcs)
}

func shellTags(db *storage.DB) {
	counts, err := db.TagCounts(storage.TagQuery{Filter: storage.WithoutOutcome})
	if err != nil {
		shellError(err)
		return
	}
	report.PrintTagCounts(os.Stdout, "", counts)
}

func shellPlayer(db *storage.DB, ids []string) {
	players, err := loadPlayers(db, ids)
	if err != nil {
		shellError(err)
		return
	}
	if len(players) == 0 {
		return
	}
	fmt.Println()
	report.PrintPlayers(os.Stdout, players)
}
