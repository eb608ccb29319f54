package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pable/s2-analytics/internal/model"
)

func TestMainWeaponOnlyConfiguredGuns(t *testing.T) {
	a := NewMainWeaponAnalyzer([][]string{{"knife"}}, map[model.Team][]string{"blue": {player1}})
	a.RecordKill(player1, "knife")
	a.RecordKill(player1, "rpg")
	a.RecordKill(player1, "rpg")
	assert.Equal(t, map[model.Team]map[string]int{"blue": {"knife": 1}}, a.Report())
}

func TestMainWeaponMostUsed(t *testing.T) {
	a := NewMainWeaponAnalyzer([][]string{{"mp5", "ak"}}, map[model.Team][]string{"blue": {player1}})
	a.RecordKill(player1, "ak")
	a.RecordKill(player1, "mp5")
	a.RecordKill(player1, "mp5")
	a.RecordKill(player1, "knife")
	assert.Equal(t, map[model.Team]map[string]int{"blue": {"mp5": 1}}, a.Report())
}

func TestMainWeaponWithoutData(t *testing.T) {
	a := NewMainWeaponAnalyzer([][]string{{}}, map[model.Team][]string{})
	assert.Empty(t, a.Report())
}

func TestMainWeaponPerPlayer(t *testing.T) {
	a := NewMainWeaponAnalyzer([][]string{{"mp5", "ak", "minigun"}}, map[model.Team][]string{"A": {player1, player2}})
	a.RecordKill(player1, "ak")
	a.RecordKill(player2, "minigun")
	a.RecordKill(player2, "mp5")
	a.RecordKill(player2, "mp5")
	assert.Equal(t, map[string]int{"ak": 1, "mp5": 1}, a.Report()["A"])
}

func TestMainWeaponCountsPerTeam(t *testing.T) {
	a := NewMainWeaponAnalyzer([][]string{{"mp5", "ak", "minigun"}},
		map[model.Team][]string{"A": {player1, player2}, "B": {player3}})
	a.RecordKill(player1, "mp5")
	a.RecordKill(player2, "mp5")
	a.RecordKill(player3, "mp5")
	assert.Equal(t, map[model.Team]map[string]int{"A": {"mp5": 2}, "B": {"mp5": 1}}, a.Report())
}

func TestMainWeaponNeedsMajority(t *testing.T) {
	a := NewMainWeaponAnalyzer([][]string{{"mp5", "ak", "minigun"}}, map[model.Team][]string{"A": {player1}})
	a.RecordKill(player1, "ak")
	a.RecordKill(player1, "ak")
	a.RecordKill(player1, "mp5")
	a.RecordKill(player1, "mp5")
	assert.Empty(t, a.Report()["A"])

	a.RecordKill(player1, "mp5")
	assert.Equal(t, map[string]int{"mp5": 1}, a.Report()["A"])
}

func TestMainWeaponPerGroup(t *testing.T) {
	a := NewMainWeaponAnalyzer([][]string{{"mp5", "ak", "minigun"}, {"knife", "rpg"}},
		map[model.Team][]string{"teamA": {player1}})
	for _, w := range []string{"ak", "ak", "mp5", "knife", "rpg", "knife", "knife"} {
		a.RecordKill(player1, w)
	}
	assert.Equal(t, map[string]int{"knife": 1, "ak": 1}, a.Report()["teamA"])
}

func TestMainWeaponIgnoresUnknownKillers(t *testing.T) {
	a := NewMainWeaponAnalyzer([][]string{{"mp5"}}, map[model.Team][]string{model.TeamRed: {player1}, model.TeamBlue: {player2}})
	a.RecordKill(player3, "mp5")
	assert.Equal(t, map[model.Team]map[string]int{model.TeamRed: {}, model.TeamBlue: {}}, a.Report())
}

func TestTeamTagsSorted(t *testing.T) {
	tags := TeamTags(map[model.Team]map[string]int{
		model.TeamRed:  {"SteyrAUG": 1, "Barrett": 2},
		model.TeamBlue: {},
	})
	assert.Equal(t, []string{"Barrett_x2", "SteyrAUG_x1"}, tags[model.TeamRed])
	assert.Empty(t, tags[model.TeamBlue])
}
