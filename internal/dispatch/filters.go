package dispatch

import (
	"math"
	"strings"

	"github.com/pable/s2-analytics/internal/model"
)

// PlaylistContains keeps matches whose playlist code contains sub.
func PlaylistContains(sub string) MatchFilter {
	return func(m *model.MatchDetails) bool {
		return strings.Contains(m.PlaylistCode, sub)
	}
}

// PlaylistCTF keeps capture-the-flag playlists.
var PlaylistCTF = PlaylistContains("CTF")

// MaxImbalance keeps matches whose predicted win probability for the first
// rostered team is within maxDiff/2 of an even split.
func MaxImbalance(maxDiff float64) MatchFilter {
	return func(m *model.MatchDetails) bool {
		teams := m.RosterTeams()
		if len(teams) == 0 {
			return false
		}
		p := m.WinProbabilities[teams[0]]
		return math.Abs(0.5-p) <= maxDiff/2
	}
}

// Balanced keeps matches predicted to be at most a 55/45 split.
var Balanced = MaxImbalance(0.10)

// DecidedMatch drops matches that ended with equal round wins.
func DecidedMatch(m *model.MatchDetails) bool {
	_, ok := m.Winner()
	return ok
}

// MinRounds keeps matches with at least n decided rounds. Tied rounds are not
// counted.
func MinRounds(n int) MatchFilter {
	return func(m *model.MatchDetails) bool {
		return m.ScoreRed+m.ScoreBlue >= n
	}
}
