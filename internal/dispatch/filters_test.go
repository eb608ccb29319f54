package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pable/s2-analytics/internal/fixture"
	"github.com/pable/s2-analytics/internal/model"
)

func details(playlist string, red, blue int, pRed float64) *model.MatchDetails {
	return &model.MatchDetails{
		PlaylistCode:     playlist,
		ScoreRed:         red,
		ScoreBlue:        blue,
		Teams:            map[model.Team][]string{model.TeamRed: {"a"}, model.TeamBlue: {"b"}},
		WinProbabilities: map[model.Team]float64{model.TeamRed: pRed, model.TeamBlue: 1 - pRed},
	}
}

func TestPlaylistCTF(t *testing.T) {
	assert.True(t, PlaylistCTF(details("CTF-Standard-6", 1, 0, 0.5)))
	assert.False(t, PlaylistCTF(details("TDM", 1, 0, 0.5)))
}

func TestBalanced(t *testing.T) {
	assert.True(t, Balanced(details("CTF", 1, 0, 0.52)))
	assert.True(t, Balanced(details("CTF", 1, 0, 0.48)))
	assert.False(t, Balanced(details("CTF", 1, 0, 0.6)))
	assert.False(t, Balanced(details("CTF", 1, 0, 0.4)))
	assert.True(t, MaxImbalance(0.5)(details("CTF", 1, 0, 0.7)))
}

func TestBalancedNoRoster(t *testing.T) {
	d := details("CTF", 1, 0, 0.5)
	d.Teams = nil
	assert.False(t, Balanced(d))
}

func TestDecidedMatch(t *testing.T) {
	assert.True(t, DecidedMatch(details("CTF", 2, 1, 0.5)))
	assert.False(t, DecidedMatch(details("CTF", 1, 1, 0.5)))
}

func TestMinRounds(t *testing.T) {
	assert.True(t, MinRounds(3)(details("CTF", 2, 1, 0.5)))
	assert.False(t, MinRounds(4)(details("CTF", 2, 1, 0.5)))
}

func TestMinRoundsIgnoresTiedRounds(t *testing.T) {
	clock := fixture.NewFakeClock(fixture.DefaultStartMillis, time.Second)
	m := fixture.NewMatch(1000, fixture.Teams([]string{"B"}, []string{"A"}), clock).
		RoundWon("ctf_ash", model.TeamRed).
		Round("ctf_ash").
		Build()
	assert.Len(t, m.Rounds, 2)
	assert.True(t, MinRounds(1)(&m.Details))
	assert.False(t, MinRounds(2)(&m.Details))
}
