package aggregator

import (
	"errors"

	"github.com/pable/s2-analytics/internal/model"
)

// ErrTagsPending is returned when a round boundary or event arrives before the
// previous round's tags were taken.
var ErrTagsPending = errors.New("team round tags not taken")

// Tagger produces tags for every team of a round.
type Tagger interface {
	ProcessEvent(ev model.Event, round *model.Round, match *model.MatchDetails) error
	ProcessRound(round *model.Round, match *model.MatchDetails) error
	// TakeTeamRoundTags returns the finalized tags once; later calls return false.
	TakeTeamRoundTags() (map[model.Team][]string, bool)
}

// TaggerState is the lifecycle of a RoundTagger.
type TaggerState int

const (
	TaggerIdle TaggerState = iota
	TaggerAccumulating
	TaggerFinalized
)

func (s TaggerState) String() string {
	switch s {
	case TaggerIdle:
		return "idle"
	case TaggerAccumulating:
		return "accumulating"
	case TaggerFinalized:
		return "finalized"
	}
	return "unknown"
}

// RoundTagger tags each team of a decided round with its main weapons.
type RoundTagger struct {
	groups   [][]string
	state    TaggerState
	analyzer *MainWeaponAnalyzer
	pending  map[model.Team][]string
}

func NewRoundTagger(groups [][]string) *RoundTagger {
	return &RoundTagger{groups: groups}
}

func (t *RoundTagger) State() TaggerState { return t.state }

func (t *RoundTagger) ProcessEvent(ev model.Event, round *model.Round, match *model.MatchDetails) error {
	switch t.state {
	case TaggerFinalized:
		return ErrTagsPending
	case TaggerIdle:
		t.analyzer = NewMainWeaponAnalyzer(t.groups, match.Teams)
		t.state = TaggerAccumulating
	}
	if k, ok := ev.(model.Kill); ok {
		t.analyzer.RecordKill(k.KillerID, k.Weapon)
	}
	return nil
}

// ProcessRound closes the round. Tied rounds are dropped without tags; a
// decided round with no events still yields (empty) tags for every team.
func (t *RoundTagger) ProcessRound(round *model.Round, match *model.MatchDetails) error {
	if t.state == TaggerFinalized {
		return ErrTagsPending
	}
	analyzer := t.analyzer
	t.analyzer = nil
	if round.IsTie() {
		t.state = TaggerIdle
		return nil
	}
	if analyzer == nil {
		analyzer = NewMainWeaponAnalyzer(t.groups, match.Teams)
	}
	t.pending = TeamTags(analyzer.Report())
	t.state = TaggerFinalized
	return nil
}

func (t *RoundTagger) TakeTeamRoundTags() (map[model.Team][]string, bool) {
	if t.state != TaggerFinalized {
		return nil, false
	}
	tags := t.pending
	t.pending = nil
	t.state = TaggerIdle
	return tags, true
}
