package aggregator

import (
	"sort"

	"github.com/pable/s2-analytics/internal/model"
)

// mainWeaponThreshold is the share of a player's group kills a weapon needs
// to count as that player's main weapon.
const mainWeaponThreshold = 0.5

// MainWeaponAnalyzer judges main weapons per player and rolls them up per team.
type MainWeaponAnalyzer struct {
	groups   [][]string
	teams    []model.Team
	teamOf   map[string]model.Team
	players  []string
	byPlayer map[string]*UsageAnalyzer
}

// NewMainWeaponAnalyzer scopes the analyzer to the given rosters.
func NewMainWeaponAnalyzer(groups [][]string, rosters map[model.Team][]string) *MainWeaponAnalyzer {
	a := &MainWeaponAnalyzer{
		groups:   groups,
		teamOf:   make(map[string]model.Team),
		byPlayer: make(map[string]*UsageAnalyzer),
	}
	for team := range rosters {
		a.teams = append(a.teams, team)
	}
	sort.Slice(a.teams, func(i, j int) bool { return teamLess(a.teams[i], a.teams[j]) })
	for _, team := range a.teams {
		for _, p := range rosters[team] {
			if _, dup := a.teamOf[p]; dup {
				continue
			}
			a.teamOf[p] = team
			a.players = append(a.players, p)
		}
	}
	return a
}

// RecordKill counts a kill for a rostered killer. Other killers are ignored.
func (a *MainWeaponAnalyzer) RecordKill(killerID, weapon string) {
	if _, ok := a.teamOf[killerID]; !ok {
		return
	}
	u, ok := a.byPlayer[killerID]
	if !ok {
		u = NewUsageAnalyzer(a.groups)
		a.byPlayer[killerID] = u
	}
	u.RecordKill(killerID, weapon)
}

// Report counts, per team, how many players have each weapon as a main
// weapon. Every rostered team is present, possibly with an empty map.
func (a *MainWeaponAnalyzer) Report() map[model.Team]map[string]int {
	out := make(map[model.Team]map[string]int, len(a.teams))
	for _, team := range a.teams {
		out[team] = make(map[string]int)
	}
	for _, p := range a.players {
		u, ok := a.byPlayer[p]
		if !ok {
			continue
		}
		team := a.teamOf[p]
		for weapon, ratio := range u.Report() {
			if ratio > mainWeaponThreshold {
				out[team][weapon]++
			}
		}
	}
	return out
}

// TeamTags converts a main weapon report into sorted "{weapon}_x{count}" tags.
func TeamTags(report map[model.Team]map[string]int) map[model.Team][]string {
	out := make(map[model.Team][]string, len(report))
	for team, weapons := range report {
		tags := make([]string, 0, len(weapons))
		for w, n := range weapons {
			tags = append(tags, model.WeaponTag(w, n))
		}
		sort.Strings(tags)
		out[team] = tags
	}
	return out
}

// teamLess orders Red before Blue, then any other team by name.
func teamLess(a, b model.Team) bool {
	ra, rb := teamRank(a), teamRank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

func teamRank(t model.Team) int {
	for i, c := range model.Teams {
		if t == c {
			return i
		}
	}
	return len(model.Teams)
}
