package model

import (
	"fmt"
	"time"
)

// Team is the side a player is on. Only the two default team names are supported.
type Team string

const (
	TeamRed  Team = "Red"
	TeamBlue Team = "Blue"
)

// Teams is the canonical team order used for reports and tag rows.
var Teams = []Team{TeamRed, TeamBlue}

func (t Team) String() string { return string(t) }

// Reserved outcome tags.
const (
	TagWin  = "win"
	TagLose = "lose"
)

// IsOutcomeTag reports whether tag is one of the reserved win/lose tags.
func IsOutcomeTag(tag string) bool {
	return tag == TagWin || tag == TagLose
}

// WeaponTag builds a main weapon tag such as "Barrett_x2".
func WeaponTag(weapon string, count int) string {
	return fmt.Sprintf("%s_x%d", weapon, count)
}

// ---- Raw records as stored in the log corpus ----

type RawMatch struct {
	StartTime            int64              `json:"startTime"`
	PlaylistCode         string             `json:"playlistCode"`
	TeamRoundWins        map[string]int     `json:"teamRoundWins"`
	Players              []RawPlayer        `json:"players"`
	MatchQuality         float64            `json:"matchQuality"`
	TeamWinProbabilities map[string]float64 `json:"teamWinProbabilities"`
	Rounds               []RawRound         `json:"rounds"`
}

type RawPlayer struct {
	PlayfabID   string `json:"playfabId"`
	DisplayName string `json:"displayName,omitempty"`
	Team        string `json:"team"`
}

type RawRound struct {
	MapName   string     `json:"mapName"`
	StartTime int64      `json:"startTime"`
	EndTime   int64      `json:"endTime"`
	BlueCaps  int        `json:"blueCaps"`
	RedCaps   int        `json:"redCaps"`
	Events    []RawEvent `json:"events"`
}

// RawEvent is the union of every event type; unused fields stay empty.
type RawEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	// PLAYER_KILL
	KillerPlayfabID string `json:"killerPlayfabId,omitempty"`
	KillerTeam      string `json:"killerTeam,omitempty"`
	VictimPlayfabID string `json:"victimPlayfabId,omitempty"`
	VictimTeam      string `json:"victimTeam,omitempty"`
	WeaponName      string `json:"weaponName,omitempty"`

	// FLAG_CAP
	PlayfabID   string `json:"playfabId,omitempty"`
	CappingTeam string `json:"cappingTeam,omitempty"`
}

const (
	EventTypeKill    = "PLAYER_KILL"
	EventTypeFlagCap = "FLAG_CAP"
)

// ---- Decoded hierarchy ----

// MatchDetails is the match level record. ID is the start time in epoch millis.
type MatchDetails struct {
	ID               int64
	StartTime        time.Time
	PlaylistCode     string
	ScoreRed         int
	ScoreBlue        int
	Teams            map[Team][]string
	MatchQuality     float64
	WinProbabilities map[Team]float64
}

// Winner returns the team with strictly more round wins.
func (m *MatchDetails) Winner() (Team, bool) {
	return winner(m.ScoreRed, m.ScoreBlue)
}

func (m *MatchDetails) DateISO() string {
	return m.StartTime.Format("2006-01-02")
}

// TeamOf returns the roster team of player.
func (m *MatchDetails) TeamOf(player string) (Team, bool) {
	for team, players := range m.Teams {
		for _, p := range players {
			if p == player {
				return team, true
			}
		}
	}
	return "", false
}

// RosterTeams returns the teams present in the roster in canonical order.
func (m *MatchDetails) RosterTeams() []Team {
	var out []Team
	for _, t := range Teams {
		if _, ok := m.Teams[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

type Round struct {
	MatchID   int64
	Number    int // 1-based
	MapName   string
	StartTime time.Time
	EndTime   time.Time
	CapsBlue  int
	CapsRed   int
}

// Winner returns the team with more flag captures in this round.
func (r *Round) Winner() (Team, bool) {
	return winner(r.CapsRed, r.CapsBlue)
}

func (r *Round) IsTie() bool { return r.CapsRed == r.CapsBlue }

// ID is the composite round id "{match_id}-{round_number}".
func (r *Round) ID() string {
	return fmt.Sprintf("%d-%d", r.MatchID, r.Number)
}

func (r *Round) DateISO() string {
	return r.StartTime.Format("2006-01-02")
}

func winner(red, blue int) (Team, bool) {
	switch {
	case red > blue:
		return TeamRed, true
	case blue > red:
		return TeamBlue, true
	default:
		return "", false
	}
}

// Event is either a Kill or a FlagCapture.
type Event interface {
	EventTime() time.Time
	isEvent()
}

type Kill struct {
	MatchID     int64
	RoundNumber int
	Timestamp   time.Time
	KillerID    string
	KillerTeam  Team
	VictimID    string
	VictimTeam  Team
	Weapon      string
}

func (k Kill) EventTime() time.Time { return k.Timestamp }
func (Kill) isEvent()               {}

type FlagCapture struct {
	MatchID     int64
	RoundNumber int
	Timestamp   time.Time
	PlayerID    string
	Team        Team
}

func (c FlagCapture) EventTime() time.Time { return c.Timestamp }
func (FlagCapture) isEvent()               {}

// Match is a fully decoded match. Events[i] holds the events of Rounds[i].
type Match struct {
	Details MatchDetails
	Rounds  []Round
	Events  [][]Event
}

// MillisToTime converts epoch milliseconds to a UTC time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// TimeToMillis converts a time to epoch milliseconds.
func TimeToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// ---- Summaries ----

// MatchSummary is a lightweight record for list/show commands.
type MatchSummary struct {
	ID            int64
	Date          string
	PlaylistCode  string
	RedRoundWins  int
	BlueRoundWins int
	Winner        string // empty for a tie
	Rounds        int
}

// Overview describes a stored dataset.
type Overview struct {
	FirstGame        time.Time
	LastGame         time.Time
	TotalGames       int
	TotalRounds      int
	TaggedTeamRounds int
	GamesByPlaylist  []PlaylistCount
}

type PlaylistCount struct {
	Playlist string
	Games    int
}

// WeaponKills is a kill count for one weapon.
type WeaponKills struct {
	Weapon string
	Kills  int
}

// PlayerStats aggregates a player's stored kill events.
type PlayerStats struct {
	ID      string
	Matches int
	Rounds  int
	Kills   int
	Deaths  int
	Weapons []WeaponKills // most kills first
}

// KDRatio returns kills / deaths, or kills when the player never died.
func (p PlayerStats) KDRatio() float64 {
	if p.Deaths == 0 {
		return float64(p.Kills)
	}
	return float64(p.Kills) / float64(p.Deaths)
}
