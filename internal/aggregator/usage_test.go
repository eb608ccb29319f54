package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	player1 = "fri"
	player2 = "vndl"
	player3 = "thewall"
)

func sum(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}

func TestUsageOnlyConfiguredWeapons(t *testing.T) {
	a := NewUsageAnalyzer([][]string{{"knife"}})
	a.RecordKill(player1, "knife")
	a.RecordKill(player1, "rpg")
	a.RecordKill(player1, "rpg")
	assert.Equal(t, map[string]float64{"knife": 1}, a.Report())

	a = NewUsageAnalyzer([][]string{{"rpg"}})
	a.RecordKill(player1, "knife")
	a.RecordKill(player1, "rpg")
	a.RecordKill(player1, "rpg")
	assert.Equal(t, map[string]float64{"rpg": 1}, a.Report())
}

func TestUsageExactRatio(t *testing.T) {
	a := NewUsageAnalyzer([][]string{{"mp5", "ak"}})
	a.RecordKill(player1, "ak")
	a.RecordKill(player1, "mp5")
	a.RecordKill(player1, "mp5")
	a.RecordKill(player1, "knife")

	r := a.Report()
	assert.Len(t, r, 2)
	assert.InDelta(t, 1.0/3, r["ak"], 1e-9)
	assert.InDelta(t, 2.0/3, r["mp5"], 1e-9)
}

func TestUsageWithoutData(t *testing.T) {
	assert.Empty(t, NewUsageAnalyzer([][]string{{}}).Report())
	a := NewUsageAnalyzer([][]string{{"mp5"}})
	assert.True(t, a.Empty())
	assert.Empty(t, a.Report())
}

func TestUsagePerKiller(t *testing.T) {
	a := NewUsageAnalyzer([][]string{{"mp5", "ak", "minigun"}})
	a.RecordKill(player1, "ak")
	a.RecordKill(player2, "minigun")
	a.RecordKill(player2, "mp5")

	r := a.Report()
	assert.Equal(t, 1.0, r["ak"])
	assert.Equal(t, 0.5, r["minigun"])
	assert.Equal(t, 0.5, r["mp5"])
}

func TestUsageGroupsIndependent(t *testing.T) {
	a := NewUsageAnalyzer([][]string{{"mp5", "ak", "minigun"}, {"knife", "rpg"}})
	a.RecordKill(player1, "ak")
	a.RecordKill(player1, "knife")
	a.RecordKill(player2, "minigun")
	a.RecordKill(player2, "mp5")
	a.RecordKill(player1, "knife")
	a.RecordKill(player2, "knife")

	assert.Equal(t, map[string]float64{"ak": 1, "knife": 2, "mp5": 0.5, "minigun": 0.5, "rpg": 0}, a.Report())
}

func TestUsageSumsToKillerCount(t *testing.T) {
	a := NewUsageAnalyzer([][]string{{"mp5", "ak", "minigun"}})
	a.RecordKill(player1, "ak")
	a.RecordKill(player2, "minigun")
	a.RecordKill(player2, "minigun")
	a.RecordKill(player3, "minigun")
	assert.InDelta(t, 3.0, sum(a.Report()), 1e-9)

	b := NewUsageAnalyzer([][]string{{"mp5", "ak", "minigun"}, {"knife", "rpg"}})
	b.RecordKill(player1, "ak")
	b.RecordKill(player1, "knife")
	b.RecordKill(player2, "mp5")
	b.RecordKill(player2, "knife")
	assert.InDelta(t, 4.0, sum(b.Report()), 1e-9)
}

func TestUsageReset(t *testing.T) {
	a := NewUsageAnalyzer([][]string{{"mp5"}})
	a.RecordKill(player1, "mp5")
	a.Reset()
	assert.True(t, a.Empty())
	assert.Empty(t, a.Report())
}
