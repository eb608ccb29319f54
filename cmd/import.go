package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/aggregator"
	"github.com/pable/s2-analytics/internal/dispatch"
	"github.com/pable/s2-analytics/internal/metrics"
	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/source"
	"github.com/pable/s2-analytics/internal/storage"
)

var (
	importSince       string
	importUntil       string
	importBalanced    bool
	importDecidedOnly bool
	importMinRounds   int
	importAppend      bool
	importMetricsFile string
)

var importCmd = &cobra.Command{
	Use:   "import <corpus-dir>",
	Short: "Import match logs into a fresh tag store",
	Long: `Load every game_<millis>.json (or .json.zst) file in the window, replay it
through the match, usage and tag collectors and store the results.

The database is recreated unless --append is given. With --append, matches
already stored are detected and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.Int("days", 0, "import matches from the last N days (default from config, 35)")
	f.String("playlist", "", "only matches whose playlist contains this code (default CTF)")
	f.Int("workers", 0, "files decoded in parallel")
	f.StringVar(&importSince, "since", "", "window start, YYYY-MM-DD (overrides --days)")
	f.StringVar(&importUntil, "until", "", "window end, YYYY-MM-DD (default tomorrow)")
	f.BoolVar(&importBalanced, "balanced", false, "only matches with win probabilities within 10% of even")
	f.BoolVar(&importDecidedOnly, "decided-only", false, "skip matches that ended in a tie")
	f.IntVar(&importMinRounds, "min-rounds", 0, "skip matches with fewer decided (non-tied) rounds")
	f.BoolVar(&importAppend, "append", false, "keep the existing database and add to it")
	f.StringVar(&importMetricsFile, "metrics-file", "", "write import metrics in node-exporter textfile format")
	bindFlag("import.days", f.Lookup("days"))
	bindFlag("import.playlist", f.Lookup("playlist"))
	bindFlag("import.workers", f.Lookup("workers"))
}

func importWindow(now time.Time) (source.Window, error) {
	w := source.DefaultWindow(now, settings.Import.Days)
	if importSince != "" {
		t, err := time.Parse("2006-01-02", importSince)
		if err != nil {
			return w, fmt.Errorf("invalid --since: %w", err)
		}
		w.Start = t
	}
	if importUntil != "" {
		t, err := time.Parse("2006-01-02", importUntil)
		if err != nil {
			return w, fmt.Errorf("invalid --until: %w", err)
		}
		// the whole day is included
		w.End = t.Add(24*time.Hour - time.Millisecond)
	}
	if w.End.Before(w.Start) {
		return w, fmt.Errorf("window ends before it starts: %s > %s", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
	}
	return w, nil
}

func matchFilters() []dispatch.MatchFilter {
	var filters []dispatch.MatchFilter
	if settings.Import.Playlist != "" {
		filters = append(filters, dispatch.PlaylistContains(settings.Import.Playlist))
	}
	if importBalanced {
		filters = append(filters, dispatch.Balanced)
	}
	if importDecidedOnly {
		filters = append(filters, dispatch.DecidedMatch)
	}
	if importMinRounds > 0 {
		filters = append(filters, dispatch.MinRounds(importMinRounds))
	}
	return filters
}

func runImport(cmd *cobra.Command, args []string) error {
	corpus := args[0]
	started := time.Now()

	w, err := importWindow(started)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath()), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	open := storage.OpenFresh
	if importAppend {
		open = storage.Open
	}
	db, err := open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	session, err := db.BeginSession(corpus, started)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		if ferr := db.FailSession(session, time.Now(), err); ferr != nil {
			logger.Warnw("mark session failed", "session", session.ID, "error", ferr)
		}
		return err
	}

	logger.Infow("loading corpus", "dir", corpus, "start", w.Start, "end", w.End)
	records, stats, err := source.Load(cmd.Context(), corpus, w, source.Options{Workers: settings.Import.Workers})
	if err != nil {
		return fail(err)
	}

	collector, err := storage.NewCollector(db, uint(len(records)))
	if err != nil {
		return fail(err)
	}
	collector.Logger = logger
	groups := settings.Groups()
	usage := aggregator.NewUsageCollector(db, groups)
	tags := aggregator.NewTagCollector(db, nil, aggregator.NewRoundTagger(groups))

	// Unseen goes last so only matches passing every other filter are marked seen.
	filters := append(matchFilters(), collector.Unseen)
	pipeline := dispatch.New([]any{collector, usage, tags}, filters...)
	pipeline.Logger = logger

	res, err := pipeline.Run(records)
	if err != nil {
		return fail(fmt.Errorf("import %s: %w", corpus, err))
	}

	session.Dispatched = res.Dispatched
	session.Filtered = res.Filtered - collector.Duplicates
	session.SkippedTeams = res.SkippedTeams
	session.BadNames = stats.BadName
	session.Duplicates = collector.Duplicates
	if err := db.FinishSession(session, time.Now()); err != nil {
		return err
	}

	if importMetricsFile != "" {
		m := metrics.New()
		m.ObserveImport(metrics.Import{
			Loaded:      stats.Loaded,
			BadName:     stats.BadName,
			OutOfWindow: stats.OutOfWindow,
			Dispatched:  res.Dispatched,
			Filtered:    session.Filtered,
			Skipped:     res.SkippedTeams,
			Duplicates:  collector.Duplicates,
			TeamRounds:  tags.TeamRounds,
			UsageRows:   usage.Rounds,
			Duration:    time.Since(started),
			Finished:    time.Now(),
		})
		if err := m.WriteTextfile(importMetricsFile); err != nil {
			return err
		}
	}

	logger.Infow("import finished",
		"session", session.ID,
		"dispatched", res.Dispatched,
		"filtered", session.Filtered,
		"skipped_teams", res.SkippedTeams,
		"duplicates", collector.Duplicates,
		"bad_names", stats.BadName,
		"duration", time.Since(started),
	)
	report.PrintImportSummary(os.Stdout, report.Import{
		Corpus:       corpus,
		Entries:      stats.Entries,
		BadName:      stats.BadName,
		OutOfWindow:  stats.OutOfWindow,
		Loaded:       stats.Loaded,
		Dispatched:   res.Dispatched,
		Filtered:     session.Filtered,
		SkippedTeams: res.SkippedTeams,
		Duplicates:   collector.Duplicates,
		TeamRounds:   tags.TeamRounds,
		UsageRounds:  usage.Rounds,
	})
	return nil
}
