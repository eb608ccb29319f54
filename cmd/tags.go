package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

var (
	tagsMap         string
	tagsPerMap      bool
	tagsWithOutcome bool
	tagsRows        bool
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Count stored team-round tags",
	Long: `Print how many team rounds carry each tag. The win/lose outcome tags are
hidden unless --with-outcome is set. --rows prints the raw (team round, tag)
rows instead of counts.`,
	Args: cobra.NoArgs,
	RunE: runTags,
}

func init() {
	tagsCmd.Flags().StringVar(&tagsMap, "map", "", "only count rounds on this map")
	tagsCmd.Flags().BoolVar(&tagsPerMap, "per-map", false, "print one table per map")
	tagsCmd.Flags().BoolVar(&tagsWithOutcome, "with-outcome", false, "include the win/lose tags")
	tagsCmd.Flags().BoolVar(&tagsRows, "rows", false, "print raw tag rows")
}

func runTags(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	var filter storage.TagFilter
	if !tagsWithOutcome {
		filter = storage.WithoutOutcome
	}
	q := storage.TagQuery{Map: strings.ToLower(tagsMap), Filter: filter}

	switch {
	case tagsRows:
		rows, err := db.TagRows(q)
		if err != nil {
			return fmt.Errorf("read tag rows: %w", err)
		}
		report.PrintTagRows(os.Stdout, rows)
	case tagsPerMap:
		perMap, err := db.TagCountsPerMap(filter)
		if err != nil {
			return fmt.Errorf("count tags: %w", err)
		}
		maps := make([]string, 0, len(perMap))
		for m := range perMap {
			maps = append(maps, m)
		}
		sort.Strings(maps)
		for _, m := range maps {
			report.PrintTagCounts(os.Stdout, "=== "+m+" ===", perMap[m])
		}
	default:
		counts, err := db.TagCounts(q)
		if err != nil {
			return fmt.Errorf("count tags: %w", err)
		}
		if len(counts) == 0 {
			fmt.Fprintln(os.Stdout, "No tags stored.")
			return nil
		}
		report.PrintTagCounts(os.Stdout, "", counts)
	}
	return nil
}
