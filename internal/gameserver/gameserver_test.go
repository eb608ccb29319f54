package gameserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/source"
)

type fakeServer struct {
	games    map[int64]model.RawMatch
	requests atomic.Int32
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	if r.URL.Path == "/api/v1/game/start_times" {
		ids := make([]int64, 0, len(f.games))
		for id := range f.games {
			ids = append(ids, id)
		}
		json.NewEncoder(w).Encode(ids)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/game/")
	id, err := strconv.ParseInt(raw, 10, 64)
	g, ok := f.games[id]
	if err != nil || !ok || r.URL.Query().Get("withEvents") != "true" {
		http.NotFound(w, r)
		return
	}
	json.NewEncoder(w).Encode(g)
}

func newFakeServer(t *testing.T, ids ...int64) (*fakeServer, *Client) {
	t.Helper()
	f := &fakeServer{games: make(map[int64]model.RawMatch)}
	for _, id := range ids {
		f.games[id] = model.RawMatch{
			StartTime:     id,
			PlaylistCode:  "CTF-Standard",
			TeamRoundWins: map[string]int{"Red": 1, "Blue": 0},
		}
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewClient(srv.URL+"/", 0)
}

func TestClientStartTimesAndGame(t *testing.T) {
	_, c := newFakeServer(t, 1674907200000)
	ctx := context.Background()

	ids, err := c.StartTimes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1674907200000}, ids)

	body, err := c.Game(ctx, 1674907200000)
	require.NoError(t, err)
	assert.Contains(t, string(body), "CTF-Standard")

	_, err = c.Game(ctx, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestSyncDownloadsMissing(t *testing.T) {
	dir := t.TempDir()
	f, c := newFakeServer(t, 1674907200000, 1674907300000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, source.FileName(1674907200000, false)), []byte(`{}`), 0o644))

	res, err := Sync(context.Background(), c, dir, SyncOptions{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Remote: 2, Local: 1, Downloaded: 1}, res)
	assert.EqualValues(t, 2, f.requests.Load())

	local, err := source.LocalGames(dir)
	require.NoError(t, err)
	assert.Len(t, local, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestSyncCompressedIsLoadable(t *testing.T) {
	dir := t.TempDir()
	_, c := newFakeServer(t, 1674907200000)

	_, err := Sync(context.Background(), c, dir, SyncOptions{Compress: true})
	require.NoError(t, err)

	start := model.MillisToTime(1674907200000)
	records, stats, err := source.Load(context.Background(), dir,
		source.Window{Start: start.Add(-time.Hour), End: start.Add(time.Hour)}, source.Options{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, "game_1674907200000.json.zst", records[0].Name)
	assert.Equal(t, "CTF-Standard", records[0].Raw.PlaylistCode)
}

func TestSyncPruneAndSince(t *testing.T) {
	dir := t.TempDir()
	_, c := newFakeServer(t, 1674907200000, 1674907300000)
	stale := source.FileName(1600000000000, false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, stale), []byte(`{}`), 0o644))

	res, err := Sync(context.Background(), c, dir, SyncOptions{Prune: true, Since: 1674907250000})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, 1, res.Downloaded)
	assert.NoFileExists(t, filepath.Join(dir, stale))
	assert.FileExists(t, filepath.Join(dir, source.FileName(1674907300000, false)))
	assert.NoFileExists(t, filepath.Join(dir, source.FileName(1674907200000, false)))
}

func TestSyncKeepsUnknownWithoutPrune(t *testing.T) {
	dir := t.TempDir()
	_, c := newFakeServer(t)
	stale := source.FileName(1600000000000, false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, stale), []byte(`{}`), 0o644))

	res, err := Sync(context.Background(), c, dir, SyncOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Pruned)
	assert.FileExists(t, filepath.Join(dir, stale))
}

type failingSource struct{}

func (failingSource) StartTimes(context.Context) ([]int64, error) { return []int64{1, 2}, nil }
func (failingSource) Game(_ context.Context, t int64) ([]byte, error) {
	return nil, fmt.Errorf("boom %d", t)
}

func TestSyncDownloadErrorAborts(t *testing.T) {
	_, err := Sync(context.Background(), failingSource{}, t.TempDir(), SyncOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download game")
}

func TestClientRespectsContext(t *testing.T) {
	_, c := newFakeServer(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.StartTimes(ctx)
	require.Error(t, err)
}
