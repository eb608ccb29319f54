package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pable/s2-analytics/internal/aggregator"
	"github.com/pable/s2-analytics/internal/dispatch"
	"github.com/pable/s2-analytics/internal/fixture"
	"github.com/pable/s2-analytics/internal/metrics"
	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/rolling"
	"github.com/pable/s2-analytics/internal/storage"
)

var groups = [][]string{
	{"Deagles", "MP5", "SteyrAUG", "Barrett"},
	{"Knife", "RPG"},
}

func seededStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := fixture.NewFactory(fixture.Teams([]string{"A"}, []string{"B"}),
		fixture.NewFakeClock(fixture.DefaultStartMillis, time.Second))
	f.AddMatch(0).
		Round("ctf_x").Kill("A", "B", "SteyrAUG").Kill("B", "A", "Deagles").Cap("A").
		Round("ctf_ash").Kill("A", "B", "SteyrAUG").Kill("B", "A", "Deagles").Cap("B").
		Done()

	c, err := storage.NewCollector(db, 0)
	require.NoError(t, err)
	processors := []any{
		c,
		aggregator.NewUsageCollector(db, groups),
		aggregator.NewTagCollector(db, nil, aggregator.NewRoundTagger(groups)),
	}
	_, err = dispatch.New(processors, c.Unseen).Run(f.Records())
	require.NoError(t, err)
	return db
}

func newServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = seededStore(t)
	}
	cfg.Logger = zap.NewNop().Sugar()
	cfg.Trend = rolling.Period{WindowDays: 10, PeriodsVisible: 3, RequiredRatio: 0.1}
	ts := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newServer(t, Config{})
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestSummary(t *testing.T) {
	ts := newServer(t, Config{})
	var body overviewResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/summary", &body))
	assert.Equal(t, 1, body.TotalGames)
	assert.Equal(t, 2, body.TotalRounds)
	assert.Equal(t, 4, body.TaggedTeamRounds)
	assert.Equal(t, map[string]int{"CTF-Standard-6": 1}, body.GamesByPlaylist)
}

func TestMatches(t *testing.T) {
	ts := newServer(t, Config{})
	var body []matchResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/matches?limit=5", &body))
	require.Len(t, body, 1)
	assert.Equal(t, int64(1000), body[0].ID)
	assert.Equal(t, 2, body[0].Rounds)
	assert.Empty(t, body[0].Winner)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/matches?limit=-1", nil))
}

func TestCorrelations(t *testing.T) {
	ts := newServer(t, Config{})

	var onMap map[string]float64
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/correlations?map=CTF_X", &onMap))
	assert.Equal(t, 1.0, onMap["SteyrAUG_x1"])
	assert.Equal(t, -1.0, onMap["Deagles_x1"])

	var perMap map[string]map[string]float64
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/correlations/maps", &perMap))
	assert.Equal(t, -1.0, perMap["ctf_ash"]["SteyrAUG_x1"])
}

func TestTagCorrelations(t *testing.T) {
	ts := newServer(t, Config{})

	var body tagCorrelationResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/correlations/tags/SteyrAUG_x1", &body))
	assert.Equal(t, "SteyrAUG_x1", body.Tag)
	assert.Equal(t, 2, body.TotalSamples)
	assert.Equal(t, mapSample{Correlation: 1, Samples: 1}, body.Maps["ctf_x"])

	body = tagCorrelationResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/correlations/tags/SteyrAUG_x1?min_samples=2", &body))
	assert.Empty(t, body.Maps)
	assert.Equal(t, 0, body.TotalSamples)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/correlations/tags/SteyrAUG_x1?min_samples=x", nil))
}

func TestTagCounts(t *testing.T) {
	ts := newServer(t, Config{})

	var counts map[string]int
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/tags/counts", &counts))
	assert.Equal(t, map[string]int{"SteyrAUG_x1": 2, "Deagles_x1": 2}, counts)

	counts = nil
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/tags/counts?map=ctf_x&outcome=true", &counts))
	assert.Equal(t, map[string]int{"SteyrAUG_x1": 1, "Deagles_x1": 1, model.TagWin: 1, model.TagLose: 1}, counts)
}

func TestUsage(t *testing.T) {
	ts := newServer(t, Config{Weapons: []string{"SteyrAUG", "Deagles"}})

	var body map[string][]point
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/usage", &body))
	require.Len(t, body["SteyrAUG"], 1)
	require.NotNil(t, body["SteyrAUG"][0].Value)
	assert.InDelta(t, 50.0, *body["SteyrAUG"][0].Value, 1e-9)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/usage?window=0", nil))
}

func TestUsageNoWeapons(t *testing.T) {
	ts := newServer(t, Config{})
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/usage", nil))
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	ts := newServer(t, Config{Metrics: m})
	getJSON(t, ts.URL+"/health", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	ts := newServer(t, Config{RateLimit: 0.001, Burst: 1})
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, getJSON(t, ts.URL+"/health", nil))
}
