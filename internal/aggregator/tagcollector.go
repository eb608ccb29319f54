package aggregator

import (
	"fmt"
	"sort"

	"github.com/pable/s2-analytics/internal/model"
)

// TagStore persists the tags of one team for one round.
type TagStore interface {
	AddTeamRoundTags(round *model.Round, team model.Team, tags []string) error
}

// RoundFilter decides whether a round is tagged.
type RoundFilter func(round *model.Round) bool

// TagCollector forwards events and round boundaries to its taggers and
// stores whatever tags they produce.
type TagCollector struct {
	taggers []Tagger
	store   TagStore
	filter  RoundFilter

	// TeamRounds counts stored team-round tag sets.
	TeamRounds int
}

// NewTagCollector builds a collector. A nil filter accepts every round.
func NewTagCollector(store TagStore, filter RoundFilter, taggers ...Tagger) *TagCollector {
	if filter == nil {
		filter = func(*model.Round) bool { return true }
	}
	return &TagCollector{taggers: taggers, store: store, filter: filter}
}

func (c *TagCollector) ProcessEvent(ev model.Event, round *model.Round, match *model.MatchDetails) error {
	if !c.filter(round) {
		return nil
	}
	for _, t := range c.taggers {
		if err := t.ProcessEvent(ev, round, match); err != nil {
			return err
		}
	}
	return nil
}

// ProcessRound finalizes every tagger and stores one tag set per team, the
// union of what the taggers produced for it.
func (c *TagCollector) ProcessRound(round *model.Round, match *model.MatchDetails) error {
	if !c.filter(round) {
		return nil
	}
	merged := make(map[model.Team][]string)
	for _, t := range c.taggers {
		if err := t.ProcessRound(round, match); err != nil {
			return err
		}
		tags, ok := t.TakeTeamRoundTags()
		if !ok {
			continue
		}
		for team, ts := range tags {
			if _, seen := merged[team]; !seen {
				merged[team] = make([]string, 0, len(ts))
			}
			merged[team] = append(merged[team], ts...)
		}
	}

	teams := make([]model.Team, 0, len(merged))
	for team := range merged {
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool { return teamLess(teams[i], teams[j]) })
	for _, team := range teams {
		if err := c.store.AddTeamRoundTags(round, team, merged[team]); err != nil {
			return fmt.Errorf("store %s tags: %w", team, err)
		}
		c.TeamRounds++
	}
	return nil
}

// MapIs keeps rounds played on mapName.
func MapIs(mapName string) RoundFilter {
	return func(r *model.Round) bool { return r.MapName == mapName }
}
