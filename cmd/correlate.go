package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/correlation"
	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

var (
	correlateMap        string
	correlatePerMap     bool
	correlateTags       []string
	correlateWeaponTags bool
	correlateMinSamples int
	correlateTop        int
)

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate team-round tags with winning the round",
	Long: `Build the (team round x tag) table from the stored tags and print each
tag's Pearson correlation with the "win" tag.

Without flags every round is used. --map restricts to one map, --per-map prints
one table per map. --tag (repeatable) or --weapon-tags prints per-map
correlations with sample counts for the selected tags.

Example:
  s2stats correlate --map ctf_ash --top 10
  s2stats correlate --tag Barrett --tag SteyrAUG --min-samples 20`,
	Args: cobra.NoArgs,
	RunE: runCorrelate,
}

func init() {
	correlateCmd.Flags().StringVar(&correlateMap, "map", "", "only use rounds on this map")
	correlateCmd.Flags().BoolVar(&correlatePerMap, "per-map", false, "print one table per map")
	correlateCmd.Flags().StringSliceVar(&correlateTags, "tag", nil, "show per-map correlation for this tag (repeatable)")
	correlateCmd.Flags().BoolVar(&correlateWeaponTags, "weapon-tags", false, "show per-map correlation for every weapon tag")
	correlateCmd.Flags().IntVar(&correlateMinSamples, "min-samples", 0, "hide maps with fewer samples for a tag")
	correlateCmd.Flags().IntVar(&correlateTop, "top", 0, "print only the N strongest positive tags (0 = all)")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	engine := correlation.NewEngine(db)
	switch {
	case len(correlateTags) > 0 || correlateWeaponTags:
		return printTagCorrelations(engine)
	case correlatePerMap:
		perMap, err := engine.WinCorrelationPerMap()
		if err != nil {
			return err
		}
		maps := make([]string, 0, len(perMap))
		for m := range perMap {
			maps = append(maps, m)
		}
		sort.Strings(maps)
		for _, m := range maps {
			report.PrintCorrelations(os.Stdout, "=== "+m+" ===", perMap[m], correlateTop)
		}
		return nil
	default:
		mapName := strings.ToLower(correlateMap)
		corr, err := engine.WinCorrelation(mapName)
		if err != nil {
			return err
		}
		title := "=== All maps ==="
		if mapName != "" {
			title = "=== " + mapName + " ==="
		}
		report.PrintCorrelations(os.Stdout, title, corr, correlateTop)
		return nil
	}
}

func printTagCorrelations(engine *correlation.Engine) error {
	tags := correlateTags
	if correlateWeaponTags {
		all, err := engine.WeaponTags()
		if err != nil {
			return err
		}
		tags = all
	}
	if len(tags) == 0 {
		fmt.Fprintln(os.Stdout, "(no tagged rounds)")
		return nil
	}
	tcs, err := engine.ForTags(tags)
	if err != nil {
		return err
	}
	for i, tc := range tcs {
		tcs[i] = tc.Filter(correlateMinSamples)
	}
	fmt.Fprintln(os.Stdout)
	report.PrintTagCorrelations(os.Stdout, tcs)
	return nil
}
