package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/gameserver"
)

var (
	fetchSince    string
	fetchPrune    bool
	fetchCompress bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <corpus-dir>",
	Short: "Download missing match logs from the game server",
	Long: `List every match the game server stores and download the ones missing
from corpus-dir as game_<millis>.json. With --prune, local logs the server no
longer lists are deleted.

Example:
  s2stats fetch ./games --since 2023-01-01 --compress`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringVar(&fetchSince, "since", "", "skip matches started before this date, YYYY-MM-DD")
	f.BoolVar(&fetchPrune, "prune", false, "delete local logs unknown to the server")
	f.BoolVar(&fetchCompress, "compress", false, "store new logs as .json.zst")
	f.String("url", "", "game server base URL (default fetch.base_url)")
	f.Float64("rate-limit", 0, "max requests per second (default fetch.rate_limit)")
	f.Int("workers", 0, "parallel downloads (default fetch.workers)")
	bindFlag("fetch.base_url", f.Lookup("url"))
	bindFlag("fetch.rate_limit", f.Lookup("rate-limit"))
	bindFlag("fetch.workers", f.Lookup("workers"))
}

func runFetch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("target directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target is not a directory: %s", dir)
	}

	opts := gameserver.SyncOptions{
		Prune:    fetchPrune,
		Compress: fetchCompress,
		Workers:  settings.Fetch.Workers,
		Logger:   logger,
	}
	if fetchSince != "" {
		t, err := time.Parse("2006-01-02", fetchSince)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		opts.Since = t.UnixMilli()
	}

	client := gameserver.NewClient(settings.Fetch.BaseURL, settings.Fetch.RateLimit)
	logger.Infow("fetching games", "server", settings.Fetch.BaseURL, "dir", dir)
	started := time.Now()
	res, err := gameserver.Sync(cmd.Context(), client, dir, opts)
	fmt.Fprintf(os.Stdout, "Server: %d games  |  Local: %d  |  Downloaded: %d  |  Pruned: %d\n",
		res.Remote, res.Local, res.Downloaded, res.Pruned)
	if err != nil {
		return err
	}
	logger.Infow("fetch finished", "downloaded", res.Downloaded, "pruned", res.Pruned, "duration", time.Since(started))
	return nil
}
