// Package fixture builds synthetic matches for tests.
package fixture

import (
	"fmt"
	"time"

	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/parser"
	"github.com/pable/s2-analytics/internal/source"
)

// DefaultStartMillis is the first timestamp handed out by a fresh FakeClock.
const DefaultStartMillis int64 = 1674928452000

// Clock hands out event timestamps in epoch millis.
type Clock interface {
	Millis() int64
}

// FakeClock returns its current time and then advances by step.
type FakeClock struct {
	now  int64
	step int64
}

func NewFakeClock(startMillis int64, step time.Duration) *FakeClock {
	return &FakeClock{now: startMillis, step: step.Milliseconds()}
}

func (c *FakeClock) Millis() int64 {
	t := c.now
	c.now += c.step
	return t
}

// Advance moves the clock forward without handing out a timestamp.
func (c *FakeClock) Advance(d time.Duration) {
	c.now += d.Milliseconds()
}

// Teams builds a roster from players listed per team.
func Teams(red, blue []string) map[model.Team][]string {
	return map[model.Team][]string{model.TeamRed: red, model.TeamBlue: blue}
}

type roundInProgress struct {
	round  model.Round
	events []model.Event
}

// MatchBuilder assembles one match round by round.
type MatchBuilder struct {
	details model.MatchDetails
	teamOf  map[string]model.Team
	clock   Clock
	factory *Factory

	rounds []model.Round
	events [][]model.Event
	cur    *roundInProgress
}

// NewMatch starts a match with the given id, which doubles as its start time.
func NewMatch(id int64, teams map[model.Team][]string, clock Clock) *MatchBuilder {
	b := &MatchBuilder{
		details: model.MatchDetails{
			ID:           id,
			StartTime:    model.MillisToTime(id),
			PlaylistCode: "CTF-Standard-6",
			Teams:        teams,
			MatchQuality: 0.8,
			WinProbabilities: map[model.Team]float64{
				model.TeamRed:  0.5,
				model.TeamBlue: 0.5,
			},
		},
		teamOf: make(map[string]model.Team),
		clock:  clock,
	}
	for team, players := range teams {
		for _, p := range players {
			b.teamOf[p] = team
		}
	}
	return b
}

func (b *MatchBuilder) Playlist(code string) *MatchBuilder {
	b.details.PlaylistCode = code
	return b
}

func (b *MatchBuilder) WinProbabilities(red, blue float64) *MatchBuilder {
	b.details.WinProbabilities = map[model.Team]float64{model.TeamRed: red, model.TeamBlue: blue}
	return b
}

// Round starts a new round on mapName. Caps are counted from Cap calls.
func (b *MatchBuilder) Round(mapName string) *MatchBuilder {
	b.finishRound()
	start := b.clock.Millis()
	b.cur = &roundInProgress{round: model.Round{
		MatchID:   b.details.ID,
		Number:    len(b.rounds) + 1,
		MapName:   mapName,
		StartTime: model.MillisToTime(start),
	}}
	return b
}

// RoundWon starts a round that winner has already capped once.
func (b *MatchBuilder) RoundWon(mapName string, winner model.Team) *MatchBuilder {
	b.Round(mapName)
	b.addCaps(winner, 1)
	return b
}

// Kill records a kill in the current round. Killers outside the roster get
// an empty team.
func (b *MatchBuilder) Kill(killer, victim, weapon string) *MatchBuilder {
	b.mustRound()
	b.cur.events = append(b.cur.events, model.Kill{
		MatchID:     b.details.ID,
		RoundNumber: b.cur.round.Number,
		Timestamp:   model.MillisToTime(b.clock.Millis()),
		KillerID:    killer,
		KillerTeam:  b.teamOf[killer],
		VictimID:    victim,
		VictimTeam:  b.teamOf[victim],
		Weapon:      weapon,
	})
	return b
}

// Cap records a flag capture by player and credits their team.
func (b *MatchBuilder) Cap(player string) *MatchBuilder {
	b.mustRound()
	team := b.teamOf[player]
	b.cur.events = append(b.cur.events, model.FlagCapture{
		MatchID:     b.details.ID,
		RoundNumber: b.cur.round.Number,
		Timestamp:   model.MillisToTime(b.clock.Millis()),
		PlayerID:    player,
		Team:        team,
	})
	b.addCaps(team, 1)
	return b
}

func (b *MatchBuilder) addCaps(team model.Team, n int) {
	switch team {
	case model.TeamRed:
		b.cur.round.CapsRed += n
	case model.TeamBlue:
		b.cur.round.CapsBlue += n
	}
}

func (b *MatchBuilder) mustRound() {
	if b.cur == nil {
		panic("fixture: no round started")
	}
}

func (b *MatchBuilder) finishRound() {
	if b.cur == nil {
		return
	}
	b.cur.round.EndTime = model.MillisToTime(b.clock.Millis())
	b.rounds = append(b.rounds, b.cur.round)
	b.events = append(b.events, b.cur.events)
	b.cur = nil
}

// Build closes the current round and returns the match. Round wins are
// derived from round caps.
func (b *MatchBuilder) Build() *model.Match {
	b.finishRound()
	d := b.details
	d.ScoreRed, d.ScoreBlue = 0, 0
	for i := range b.rounds {
		switch w, _ := b.rounds[i].Winner(); w {
		case model.TeamRed:
			d.ScoreRed++
		case model.TeamBlue:
			d.ScoreBlue++
		}
	}
	return &model.Match{Details: d, Rounds: b.rounds, Events: b.events}
}

// Raw builds the match and encodes it as a log record.
func (b *MatchBuilder) Raw() *model.RawMatch {
	return parser.Encode(b.Build())
}

// Done builds the match into the factory that created this builder.
func (b *MatchBuilder) Done() *Factory {
	if b.factory == nil {
		panic("fixture: builder has no factory")
	}
	b.factory.matches = append(b.factory.matches, b.Build())
	return b.factory
}

// Factory builds a series of matches sharing a roster and a clock. Match ids
// start at 1000 and grow by 1000.
type Factory struct {
	teams   map[model.Team][]string
	clock   Clock
	nextID  int64
	matches []*model.Match
}

func NewFactory(teams map[model.Team][]string, clock Clock) *Factory {
	return &Factory{teams: teams, clock: clock}
}

// AddMatch starts the next match. Pass startID > 0 to move the id sequence.
func (f *Factory) AddMatch(startID int64) *MatchBuilder {
	if startID > 0 {
		f.nextID = startID
	}
	f.nextID += 1000
	b := NewMatch(f.nextID, f.teams, f.clock)
	b.factory = f
	return b
}

func (f *Factory) Matches() []*model.Match {
	return f.matches
}

// Raw returns every built match encoded as a log record.
func (f *Factory) Raw() []*model.RawMatch {
	out := make([]*model.RawMatch, len(f.matches))
	for i, m := range f.matches {
		out[i] = parser.Encode(m)
	}
	return out
}

// Records wraps every built match as a loaded source record.
func (f *Factory) Records() []source.Record {
	return Records(f.Raw()...)
}

// Records wraps raw matches as source records named like corpus files.
func Records(raws ...*model.RawMatch) []source.Record {
	out := make([]source.Record, len(raws))
	for i, raw := range raws {
		out[i] = source.Record{
			Name:      fmt.Sprintf("game_%013d.json", raw.StartTime),
			StartTime: model.MillisToTime(raw.StartTime),
			Raw:       raw,
		}
	}
	return out
}
