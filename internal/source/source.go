// Package source enumerates match log files in a corpus directory and loads
// the ones inside a time window.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/parser"
)

var fileNameRE = regexp.MustCompile(`^game_([0-9]{13})\.json(\.zst)?$`)

// Window is an inclusive [Start, End] range of match start times.
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow covers the last periodDays days up to one day past now.
func DefaultWindow(now time.Time, periodDays int) Window {
	now = now.UTC()
	return Window{
		Start: now.AddDate(0, 0, -periodDays),
		End:   now.AddDate(0, 0, 1),
	}
}

// Contains reports whether t lies inside the window, both ends included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Record is one loaded match log.
type Record struct {
	Name      string
	StartTime time.Time
	Raw       *model.RawMatch
}

// Stats counts what happened to each directory entry.
type Stats struct {
	Entries     int
	BadName     int
	OutOfWindow int
	Loaded      int
}

// Options tunes Load. The zero value uses one worker per CPU.
type Options struct {
	Workers int
}

type candidate struct {
	name  string
	path  string
	start time.Time
	zst   bool
}

// Load reads every match log in dir whose filename timestamp falls inside w.
// Records come back sorted by filename. A file that cannot be read or decoded
// aborts the whole load.
func Load(ctx context.Context, dir string, w Window, opts Options) ([]Record, Stats, error) {
	var stats Stats
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, stats, fmt.Errorf("read corpus dir: %w", err)
	}

	var todo []candidate
	for _, e := range entries {
		stats.Entries++
		c, ok := matchName(e.Name())
		if !ok || e.IsDir() {
			stats.BadName++
			continue
		}
		if !w.Contains(c.start) {
			stats.OutOfWindow++
			continue
		}
		c.path = filepath.Join(dir, e.Name())
		todo = append(todo, c)
	}
	sort.Slice(todo, func(i, j int) bool { return todo[i].name < todo[j].name })

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	records := make([]Record, len(todo))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range todo {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := loadFile(c)
			if err != nil {
				return fmt.Errorf("load %s: %w", c.name, err)
			}
			records[i] = Record{Name: c.name, StartTime: c.start, Raw: raw}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	stats.Loaded = len(records)
	return records, stats, nil
}

// FileName is the corpus file name of the match started at startMillis.
func FileName(startMillis int64, compressed bool) string {
	name := fmt.Sprintf("game_%d.json", startMillis)
	if compressed {
		name += ".zst"
	}
	return name
}

// LocalGames maps the start time of every match log in dir to its file name.
func LocalGames(dir string) (map[int64]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}
	out := make(map[int64]string)
	for _, e := range entries {
		c, ok := matchName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		out[model.TimeToMillis(c.start)] = c.name
	}
	return out, nil
}

func matchName(name string) (candidate, bool) {
	m := fileNameRE.FindStringSubmatch(name)
	if m == nil {
		return candidate{}, false
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return candidate{}, false
	}
	return candidate{
		name:  name,
		start: model.MillisToTime(ms),
		zst:   strings.HasSuffix(name, ".zst"),
	}, true
}

func loadFile(c candidate) (*model.RawMatch, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if c.zst {
		// Files are already decoded in parallel; keep each decoder synchronous.
		dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return parser.ParseRecord(data)
}
