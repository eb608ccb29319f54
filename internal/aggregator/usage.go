package aggregator

// UsageAnalyzer tallies kills per weapon group, per killer, per weapon.
// It is scoped to one round; callers Reset it at round boundaries.
type UsageAnalyzer struct {
	groups [][]string
	// groupOf maps a weapon to the indices of the groups containing it.
	groupOf map[string][]int
	// kills[group][killer][weapon]
	kills []map[string]map[string]int
}

// NewUsageAnalyzer builds an analyzer for the given weapon groups.
func NewUsageAnalyzer(groups [][]string) *UsageAnalyzer {
	a := &UsageAnalyzer{
		groups:  groups,
		groupOf: make(map[string][]int),
	}
	for i, g := range groups {
		for _, w := range g {
			a.groupOf[w] = append(a.groupOf[w], i)
		}
	}
	a.Reset()
	return a
}

// Reset drops all recorded kills.
func (a *UsageAnalyzer) Reset() {
	a.kills = make([]map[string]map[string]int, len(a.groups))
	for i := range a.kills {
		a.kills[i] = make(map[string]map[string]int)
	}
}

// RecordKill counts one kill. Weapons outside every group are ignored.
func (a *UsageAnalyzer) RecordKill(killerID, weapon string) {
	for _, g := range a.groupOf[weapon] {
		byWeapon, ok := a.kills[g][killerID]
		if !ok {
			byWeapon = make(map[string]int)
			a.kills[g][killerID] = byWeapon
		}
		byWeapon[weapon]++
	}
}

// Empty reports whether no kill has been recorded in any group.
func (a *UsageAnalyzer) Empty() bool {
	for _, killers := range a.kills {
		if len(killers) > 0 {
			return false
		}
	}
	return true
}

// Report returns, per weapon, the sum over killers of that killer's share of
// kills with the weapon inside its group. Every weapon of a group with at
// least one killer is present, so a group's ratios add up to its number of
// distinct killers.
func (a *UsageAnalyzer) Report() map[string]float64 {
	out := make(map[string]float64)
	for g, weapons := range a.groups {
		killers := a.kills[g]
		if len(killers) == 0 {
			continue
		}
		for _, w := range weapons {
			total := out[w]
			for _, byWeapon := range killers {
				sum := 0
				for _, n := range byWeapon {
					sum += n
				}
				total += float64(byWeapon[w]) / float64(sum)
			}
			out[w] = total
		}
	}
	return out
}
