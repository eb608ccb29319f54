package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/s2-analytics/internal/aggregator"
	"github.com/pable/s2-analytics/internal/dispatch"
	"github.com/pable/s2-analytics/internal/fixture"
	"github.com/pable/s2-analytics/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var groups = [][]string{
	{"Deagles", "MP5", "SteyrAUG", "Barrett"},
	{"Knife", "RPG"},
}

func newFactory(red, blue []string) *fixture.Factory {
	return fixture.NewFactory(fixture.Teams(red, blue), fixture.NewFakeClock(fixture.DefaultStartMillis, 2*time.Second))
}

// importInto runs the collectors an import uses over the factory's matches.
func importInto(t *testing.T, db *DB, f *fixture.Factory) (*Collector, dispatch.Result) {
	t.Helper()
	c, err := NewCollector(db, 0)
	require.NoError(t, err)
	tags := aggregator.NewTagCollector(db, nil, aggregator.NewRoundTagger(groups))
	usage := aggregator.NewUsageCollector(db, groups)
	res, err := dispatch.New([]any{c, usage, tags}, c.Unseen).Run(f.Records())
	require.NoError(t, err)
	return c, res
}

func TestCapOnlyRoundTags(t *testing.T) {
	db := openMemDB(t)
	f := newFactory([]string{"B"}, []string{"A"})
	f.AddMatch(0).Round("ctf_ash").Cap("A").Done()
	importInto(t, db, f)

	rows, err := db.TagRows(TagQuery{})
	require.NoError(t, err)
	assert.Equal(t, []TagRow{
		{MatchID: 1000, RoundNumber: 1, Team: model.TeamRed, Tag: "lose", MapName: "ctf_ash"},
		{MatchID: 1000, RoundNumber: 1, Team: model.TeamBlue, Tag: "win", MapName: "ctf_ash"},
	}, rows)
}

func TestWeaponTagsWithOutcome(t *testing.T) {
	db := openMemDB(t)
	f := newFactory([]string{"1", "2", "3"}, []string{"A", "B", "C"})
	f.AddMatch(0).Round("ctf_ash").
		Kill("1", "A", "Barrett").
		Kill("2", "B", "Barrett").
		Kill("3", "C", "SteyrAUG").
		Kill("A", "1", "Deagles").
		Kill("B", "2", "Deagles").
		Kill("C", "3", "Deagles").
		Cap("A").
		Done()
	importInto(t, db, f)

	rows, err := db.TagRows(TagQuery{})
	require.NoError(t, err)
	byTeam := map[model.Team][]string{}
	for _, r := range rows {
		byTeam[r.Team] = append(byTeam[r.Team], r.Tag)
	}
	assert.Equal(t, []string{"Barrett_x2", "SteyrAUG_x1", "lose"}, byTeam[model.TeamRed])
	assert.Equal(t, []string{"Deagles_x3", "win"}, byTeam[model.TeamBlue])

	noOutcome, err := db.TagRows(TagQuery{Filter: WithoutOutcome})
	require.NoError(t, err)
	assert.Len(t, noOutcome, 3)
	assert.Equal(t, model.TeamRed, noOutcome[0].Team)
}

func TestAddTeamRoundTagsIntegrity(t *testing.T) {
	db := openMemDB(t)
	round := &model.Round{MatchID: 1000, Number: 1, MapName: "ctf_ash", CapsRed: 1}

	err := db.AddTeamRoundTags(round, model.TeamRed, []string{"win"})
	assert.True(t, errors.Is(err, ErrDuplicateTag), "got %v", err)

	err = db.AddTeamRoundTags(round, model.TeamRed, []string{"MP5_x1", "MP5_x1"})
	assert.True(t, errors.Is(err, ErrDuplicateTag), "got %v", err)

	tied := &model.Round{MatchID: 1000, Number: 2, MapName: "ctf_ash"}
	err = db.AddTeamRoundTags(tied, model.TeamBlue, nil)
	assert.True(t, errors.Is(err, ErrTiedRound), "got %v", err)

	rows, err := db.TagRows(TagQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows, "rejected sets are not stored")

	require.NoError(t, db.AddTeamRoundTags(round, model.TeamRed, nil))
	require.NoError(t, db.AddTeamRoundTags(round, model.TeamBlue, []string{}))
	rows, err = db.TagRows(TagQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "win", rows[0].Tag)
	assert.Equal(t, "lose", rows[1].Tag)
}

func TestOverlappingTaggersRejected(t *testing.T) {
	db := openMemDB(t)
	f := newFactory([]string{"1"}, []string{"A"})
	f.AddMatch(0).Round("ctf_ash").Kill("1", "A", "MP5").Cap("1").Done()

	tags := aggregator.NewTagCollector(db, nil,
		aggregator.NewRoundTagger(groups),
		aggregator.NewRoundTagger(groups[:1]),
	)
	_, err := dispatch.New([]any{tags}).Run(f.Records())
	assert.True(t, errors.Is(err, ErrDuplicateTag), "got %v", err)

	rows, err := db.TagRows(TagQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTagCountsPerMap(t *testing.T) {
	db := openMemDB(t)
	f := newFactory([]string{"1"}, []string{"A"})
	f.AddMatch(0).
		Round("ctf_x").Kill("1", "A", "SteyrAUG").Kill("A", "1", "Deagles").Cap("1").
		Round("ctf_ash").Kill("1", "A", "SteyrAUG").Cap("A").
		Done()
	importInto(t, db, f)

	perMap, err := db.TagCountsPerMap(WithoutOutcome)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{
		"ctf_x":   {"SteyrAUG_x1": 1, "Deagles_x1": 1},
		"ctf_ash": {"SteyrAUG_x1": 1},
	}, perMap)

	all, err := db.TagCounts(TagQuery{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"SteyrAUG_x1": 2, "Deagles_x1": 1, "win": 2, "lose": 2}, all)

	ash, err := db.TagCounts(TagQuery{Map: "ctf_ash", Filter: WithoutOutcome})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"SteyrAUG_x1": 1}, ash)

	maps, err := db.TaggedMaps()
	require.NoError(t, err)
	assert.Equal(t, []string{"ctf_ash", "ctf_x"}, maps)
}

func TestCollectorWritesTables(t *testing.T) {
	db := openMemDB(t)
	f := newFactory([]string{"1"}, []string{"A"})
	f.AddMatch(0).
		Round("ctf_x").Kill("1", "A", "SteyrAUG").Cap("1").
		Round("ctf_x").
		Done().
		AddMatch(0).Playlist("CTF-Classic").RoundWon("ctf_ash", model.TeamBlue).Done()
	c, res := importInto(t, db, f)

	assert.Equal(t, 2, res.Dispatched)
	assert.Equal(t, 2, c.Matches)
	assert.Equal(t, 3, c.Rounds)
	assert.Equal(t, 1, c.Kills)
	assert.Equal(t, 1, c.Caps)

	_, rows, err := db.QueryRaw("SELECT match_id, round_number, map_name, millis_since_start FROM event_caps")
	require.NoError(t, err)
	// The round starts at one tick and the kill takes the next, so the cap lands 4s in.
	assert.Equal(t, [][]string{{"1000", "1", "ctf_x", "4000"}}, rows)

	o, err := db.Overview()
	require.NoError(t, err)
	assert.Equal(t, 2, o.TotalGames)
	assert.Equal(t, 3, o.TotalRounds)
	assert.Equal(t, 4, o.TaggedTeamRounds)
	assert.Equal(t, int64(1000), model.TimeToMillis(o.FirstGame))
	assert.Equal(t, int64(2000), model.TimeToMillis(o.LastGame))
	assert.Equal(t, []model.PlaylistCount{{Playlist: "CTF-Classic", Games: 1}, {Playlist: "CTF-Standard-6", Games: 1}}, o.GamesByPlaylist)

	list, err := db.ListMatches(0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2000), list[0].ID)
	assert.Equal(t, "Blue", list[0].Winner)
	assert.Equal(t, 2, list[1].Rounds)

	rounds, err := db.MatchRounds(1000)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.True(t, rounds[1].IsTie())
}

func TestCollectorSkipsDuplicates(t *testing.T) {
	db := openMemDB(t)
	clock := fixture.NewFakeClock(fixture.DefaultStartMillis, time.Second)
	raw := fixture.NewMatch(5000, fixture.Teams([]string{"1"}, []string{"A"}), clock).
		Round("ctf_x").Kill("1", "A", "MP5").Cap("1").
		Raw()

	c, err := NewCollector(db, 10)
	require.NoError(t, err)
	tags := aggregator.NewTagCollector(db, nil, aggregator.NewRoundTagger(groups))
	p := dispatch.New([]any{c, tags}, c.Unseen)

	res, err := p.Run(fixture.Records(raw, raw))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dispatched)
	assert.Equal(t, 1, res.Filtered)
	assert.Equal(t, 1, c.Duplicates)

	// A second collector over the same store sees the stored match.
	c2, err := NewCollector(db, 10)
	require.NoError(t, err)
	res, err = dispatch.New([]any{c2}, c2.Unseen).Run(fixture.Records(raw))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Dispatched)
	assert.Equal(t, 1, c2.Duplicates)
}

func TestUsageTotals(t *testing.T) {
	db := openMemDB(t)
	day1 := &model.Round{MatchID: 1, Number: 1, StartTime: time.Date(2023, 1, 28, 10, 0, 0, 0, time.UTC)}
	day1b := &model.Round{MatchID: 1, Number: 2, StartTime: time.Date(2023, 1, 28, 11, 0, 0, 0, time.UTC)}
	day2 := &model.Round{MatchID: 2, Number: 1, StartTime: time.Date(2023, 1, 29, 10, 0, 0, 0, time.UTC)}

	require.NoError(t, db.AddRoundUsage(day1, map[string]float64{"MP5": 1, "Knife": 0.5}))
	require.NoError(t, db.AddRoundUsage(day1b, map[string]float64{"MP5": 0.5}))
	require.NoError(t, db.AddRoundUsage(day2, map[string]float64{"Barrett": 2}))

	totals, err := db.UsageTotals()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2023-01-28": 2, "2023-01-29": 1}, totals.Rounds)
	assert.Equal(t, 1.5, totals.Sums["2023-01-28"]["MP5"])
	assert.Equal(t, 2.0, totals.Sums["2023-01-29"]["Barrett"])
	assert.Equal(t, []string{"2023-01-28", "2023-01-29"}, totals.Dates())
}

func TestSessions(t *testing.T) {
	db := openMemDB(t)
	t0 := time.Date(2023, 1, 28, 10, 0, 0, 0, time.UTC)
	s, err := db.BeginSession("/logs", t0)
	require.NoError(t, err)
	assert.Len(t, s.ID, 36)

	s.Dispatched, s.Filtered, s.BadNames = 10, 2, 1
	require.NoError(t, db.FinishSession(s, t0.Add(time.Minute)))

	list, err := db.ListSessions()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s.ID, list[0].ID)
	assert.Equal(t, 10, list[0].Dispatched)
	assert.Equal(t, 1, list[0].BadNames)
	assert.True(t, t0.Add(time.Minute).Equal(list[0].FinishedAt))
}

func TestFailSession(t *testing.T) {
	db := openMemDB(t)
	t0 := time.Date(2023, 1, 28, 10, 0, 0, 0, time.UTC)
	ok, err := db.BeginSession("/logs", t0)
	require.NoError(t, err)
	require.NoError(t, db.FinishSession(ok, t0.Add(time.Minute)))

	bad, err := db.BeginSession("/broken", t0.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, db.FailSession(bad, t0.Add(2*time.Hour), errors.New("read corpus: permission denied")))

	list, err := db.ListSessions()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, bad.ID, list[0].ID)
	assert.True(t, list[0].Failed())
	assert.Equal(t, "read corpus: permission denied", list[0].Error)
	assert.False(t, list[0].FinishedAt.IsZero())
	assert.False(t, list[1].Failed())
}

func TestOpenFreshRemovesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s2.db")
	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.BeginSession("/logs", time.Now())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	list, err := db.ListSessions()
	require.NoError(t, err)
	assert.Len(t, list, 1)
	require.NoError(t, db.Close())

	db, err = OpenFresh(path)
	require.NoError(t, err)
	defer db.Close()
	list, err = db.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestQueryRawError(t *testing.T) {
	db := openMemDB(t)
	_, _, err := db.QueryRaw("SELECT * FROM nope")
	assert.Error(t, err)
}

func TestPlayerStats(t *testing.T) {
	db := openMemDB(t)
	f := newFactory([]string{"1", "2"}, []string{"A", "B"})
	f.AddMatch(0).
		Round("ctf_ash").Kill("1", "A", "Barrett").Kill("1", "B", "Barrett").Kill("A", "1", "Deagles").Cap("A").
		Round("ctf_x").Kill("1", "A", "RPG").Cap("1").
		Done()
	importInto(t, db, f)

	p, err := db.PlayerStats("1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Matches)
	assert.Equal(t, 2, p.Rounds)
	assert.Equal(t, 3, p.Kills)
	assert.Equal(t, 1, p.Deaths)
	assert.Equal(t, 3.0, p.KDRatio())
	assert.Equal(t, []model.WeaponKills{{Weapon: "Barrett", Kills: 2}, {Weapon: "RPG", Kills: 1}}, p.Weapons)

	p, err = db.PlayerStats("2")
	require.NoError(t, err)
	assert.Nil(t, p)
}
