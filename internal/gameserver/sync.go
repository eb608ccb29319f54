package gameserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pable/s2-analytics/internal/source"
)

// Source is the API surface Sync downloads from.
type Source interface {
	StartTimes(ctx context.Context) ([]int64, error)
	Game(ctx context.Context, startTime int64) ([]byte, error)
}

type SyncOptions struct {
	// Since skips remote matches that started before it, in epoch millis.
	Since int64
	// Prune deletes local logs the server no longer lists.
	Prune bool
	// Compress stores new logs as .json.zst.
	Compress bool
	Workers  int
	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

type SyncResult struct {
	Remote     int
	Local      int
	Downloaded int
	Pruned     int
}

// Sync brings dir up to date with the server: matches missing locally are
// downloaded and, with Prune, local matches unknown to the server are removed.
// A failed download aborts the sync; files already written are kept.
func Sync(ctx context.Context, src Source, dir string, opts SyncOptions) (SyncResult, error) {
	var res SyncResult
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	remote, err := src.StartTimes(ctx)
	if err != nil {
		return res, fmt.Errorf("list remote games: %w", err)
	}
	local, err := source.LocalGames(dir)
	if err != nil {
		return res, err
	}
	res.Remote, res.Local = len(remote), len(local)

	onServer := make(map[int64]bool, len(remote))
	var missing []int64
	for _, t := range remote {
		onServer[t] = true
		if t < opts.Since {
			continue
		}
		if _, ok := local[t]; !ok {
			missing = append(missing, t)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	if opts.Prune {
		for t, name := range local {
			if onServer[t] {
				continue
			}
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return res, fmt.Errorf("prune %s: %w", name, err)
			}
			logger.Infow("removed game", "file", name)
			res.Pruned++
		}
	}

	logger.Infow("games to download", "count", len(missing))
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	done := make(chan struct{}, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range missing {
		g.Go(func() error {
			data, err := src.Game(gctx, t)
			if err != nil {
				return fmt.Errorf("download game %d: %w", t, err)
			}
			name := source.FileName(t, opts.Compress)
			if err := save(dir, name, data, opts.Compress); err != nil {
				return err
			}
			logger.Debugw("downloaded game", "file", name, "bytes", len(data))
			done <- struct{}{}
			return nil
		})
	}
	err = g.Wait()
	res.Downloaded = len(done)
	if err != nil {
		return res, err
	}
	return res, nil
}

// save writes through a dot-prefixed temporary file; an interrupted download
// never leaves a file matching the corpus name pattern.
func save(dir, name string, data []byte, compress bool) error {
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if compress {
		enc, err := zstd.NewWriter(tmp, zstd.WithEncoderConcurrency(1))
		if err != nil {
			tmp.Close()
			return fmt.Errorf("zstd: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := enc.Close(); err != nil {
			tmp.Close()
			return fmt.Errorf("zstd: %w", err)
		}
	} else if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
