package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pable/s2-analytics/internal/model"
)

// ErrUnsupportedTeams is returned for matches whose teams are not named Red and Blue.
// Callers skip such matches; it is not a fatal condition.
var ErrUnsupportedTeams = errors.New("unsupported team names")

// ParseRecord decodes one JSON match record.
func ParseRecord(data []byte) (*model.RawMatch, error) {
	var raw model.RawMatch
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode match json: %w", err)
	}
	return &raw, nil
}

// DecodeDetails builds the match level record.
func DecodeDetails(raw *model.RawMatch) (*model.MatchDetails, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil RawMatch")
	}
	if err := checkTeamNames(raw.TeamRoundWins); err != nil {
		return nil, err
	}

	teams := make(map[model.Team][]string)
	for _, p := range raw.Players {
		t := model.Team(p.Team)
		teams[t] = append(teams[t], p.PlayfabID)
	}
	probs := make(map[model.Team]float64, len(raw.TeamWinProbabilities))
	for name, p := range raw.TeamWinProbabilities {
		probs[model.Team(name)] = p
	}

	return &model.MatchDetails{
		ID:               raw.StartTime,
		StartTime:        model.MillisToTime(raw.StartTime),
		PlaylistCode:     raw.PlaylistCode,
		ScoreRed:         raw.TeamRoundWins[string(model.TeamRed)],
		ScoreBlue:        raw.TeamRoundWins[string(model.TeamBlue)],
		Teams:            teams,
		MatchQuality:     raw.MatchQuality,
		WinProbabilities: probs,
	}, nil
}

func checkTeamNames(wins map[string]int) error {
	_, red := wins[string(model.TeamRed)]
	_, blue := wins[string(model.TeamBlue)]
	if red && blue && len(wins) == 2 {
		return nil
	}
	names := make([]string, 0, len(wins))
	for name := range wins {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("%w: %s", ErrUnsupportedTeams, strings.Join(names, ", "))
}

// DecodeRound builds the round record for the 1-based round number.
func DecodeRound(number int, raw *model.RawRound, match *model.MatchDetails) model.Round {
	return model.Round{
		MatchID:   match.ID,
		Number:    number,
		MapName:   strings.ToLower(raw.MapName),
		StartTime: model.MillisToTime(raw.StartTime),
		EndTime:   model.MillisToTime(raw.EndTime),
		CapsBlue:  raw.BlueCaps,
		CapsRed:   raw.RedCaps,
	}
}

// DecodeEvent converts a raw event. ok is false for event types we do not track.
func DecodeEvent(raw *model.RawEvent, round *model.Round) (ev model.Event, ok bool) {
	switch raw.Type {
	case model.EventTypeKill:
		return model.Kill{
			MatchID:     round.MatchID,
			RoundNumber: round.Number,
			Timestamp:   model.MillisToTime(raw.Timestamp),
			KillerID:    raw.KillerPlayfabID,
			KillerTeam:  model.Team(raw.KillerTeam),
			VictimID:    raw.VictimPlayfabID,
			VictimTeam:  model.Team(raw.VictimTeam),
			Weapon:      raw.WeaponName,
		}, true
	case model.EventTypeFlagCap:
		return model.FlagCapture{
			MatchID:     round.MatchID,
			RoundNumber: round.Number,
			Timestamp:   model.MillisToTime(raw.Timestamp),
			PlayerID:    raw.PlayfabID,
			Team:        model.Team(raw.CappingTeam),
		}, true
	default:
		return nil, false
	}
}

// Decode builds the whole match hierarchy in one pass.
func Decode(raw *model.RawMatch) (*model.Match, error) {
	details, err := DecodeDetails(raw)
	if err != nil {
		return nil, err
	}
	m := &model.Match{Details: *details}
	for i := range raw.Rounds {
		round := DecodeRound(i+1, &raw.Rounds[i], details)
		var events []model.Event
		for j := range raw.Rounds[i].Events {
			if ev, ok := DecodeEvent(&raw.Rounds[i].Events[j], &round); ok {
				events = append(events, ev)
			}
		}
		m.Rounds = append(m.Rounds, round)
		m.Events = append(m.Events, events)
	}
	return m, nil
}

// Encode converts a decoded match back into its raw form.
func Encode(m *model.Match) *model.RawMatch {
	d := &m.Details
	raw := &model.RawMatch{
		StartTime:    d.ID,
		PlaylistCode: d.PlaylistCode,
		TeamRoundWins: map[string]int{
			string(model.TeamRed):  d.ScoreRed,
			string(model.TeamBlue): d.ScoreBlue,
		},
		MatchQuality:         d.MatchQuality,
		TeamWinProbabilities: make(map[string]float64, len(d.WinProbabilities)),
	}
	for team, p := range d.WinProbabilities {
		raw.TeamWinProbabilities[string(team)] = p
	}
	for _, team := range d.RosterTeams() {
		for _, id := range d.Teams[team] {
			raw.Players = append(raw.Players, model.RawPlayer{PlayfabID: id, DisplayName: id, Team: string(team)})
		}
	}
	for i, r := range m.Rounds {
		rr := model.RawRound{
			MapName:   r.MapName,
			StartTime: model.TimeToMillis(r.StartTime),
			EndTime:   model.TimeToMillis(r.EndTime),
			BlueCaps:  r.CapsBlue,
			RedCaps:   r.CapsRed,
			Events:    []model.RawEvent{},
		}
		if i < len(m.Events) {
			for _, ev := range m.Events[i] {
				rr.Events = append(rr.Events, encodeEvent(ev))
			}
		}
		raw.Rounds = append(raw.Rounds, rr)
	}
	return raw
}

func encodeEvent(ev model.Event) model.RawEvent {
	switch e := ev.(type) {
	case model.Kill:
		return model.RawEvent{
			Type:            model.EventTypeKill,
			Timestamp:       model.TimeToMillis(e.Timestamp),
			KillerPlayfabID: e.KillerID,
			KillerTeam:      string(e.KillerTeam),
			VictimPlayfabID: e.VictimID,
			VictimTeam:      string(e.VictimTeam),
			WeaponName:      e.Weapon,
		}
	case model.FlagCapture:
		return model.RawEvent{
			Type:        model.EventTypeFlagCap,
			Timestamp:   model.TimeToMillis(e.Timestamp),
			PlayfabID:   e.PlayerID,
			CappingTeam: string(e.Team),
		}
	}
	return model.RawEvent{}
}
