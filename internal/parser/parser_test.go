package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/s2-analytics/internal/model"
)

const sampleJSON = `{
  "startTime": 1674928452000,
  "playlistCode": "CTF-Standard",
  "teamRoundWins": {"Red": 1, "Blue": 0},
  "matchQuality": 0.8,
  "teamWinProbabilities": {"Red": 0.52, "Blue": 0.48},
  "players": [
    {"playfabId": "A", "displayName": "alpha", "team": "Red"},
    {"playfabId": "B", "displayName": "bravo", "team": "Blue"}
  ],
  "rounds": [{
    "mapName": "CTF_Ash",
    "startTime": 1674928452000,
    "endTime": 1674928752000,
    "blueCaps": 0,
    "redCaps": 1,
    "events": [
      {"type": "PLAYER_KILL", "timestamp": 1674928460000, "killerPlayfabId": "A", "killerTeam": "Red",
       "victimPlayfabId": "B", "victimTeam": "Blue", "weaponName": "Barrett"},
      {"type": "PLAYER_CHAT", "timestamp": 1674928461000},
      {"type": "FLAG_CAP", "timestamp": 1674928470000, "playfabId": "A", "cappingTeam": "Red"}
    ]
  }]
}`

func TestDecodeSample(t *testing.T) {
	raw, err := ParseRecord([]byte(sampleJSON))
	require.NoError(t, err)

	m, err := Decode(raw)
	require.NoError(t, err)

	d := m.Details
	assert.Equal(t, int64(1674928452000), d.ID)
	assert.Equal(t, "2023-01-28", d.DateISO())
	assert.Equal(t, []string{"A"}, d.Teams[model.TeamRed])
	assert.Equal(t, []string{"B"}, d.Teams[model.TeamBlue])
	assert.InDelta(t, 0.52, d.WinProbabilities[model.TeamRed], 1e-9)

	winner, ok := d.Winner()
	require.True(t, ok)
	assert.Equal(t, model.TeamRed, winner)

	require.Len(t, m.Rounds, 1)
	r := m.Rounds[0]
	assert.Equal(t, 1, r.Number)
	assert.Equal(t, "ctf_ash", r.MapName, "map names are lowercased")
	assert.Equal(t, "1674928452000-1", r.ID())

	// The chat event has no tracked type and is dropped.
	require.Len(t, m.Events[0], 2)
	kill, ok := m.Events[0][0].(model.Kill)
	require.True(t, ok)
	assert.Equal(t, "Barrett", kill.Weapon)
	assert.Equal(t, 1, kill.RoundNumber)
	capture, ok := m.Events[0][1].(model.FlagCapture)
	require.True(t, ok)
	assert.Equal(t, model.TeamRed, capture.Team)
}

func TestDecodeUnsupportedTeams(t *testing.T) {
	cases := []map[string]int{
		{"Bears": 2, "Blue": 1},
		{"Blue": 1},
		{"Red": 1, "Blue": 1, "Green": 0},
	}
	for _, wins := range cases {
		_, err := Decode(&model.RawMatch{StartTime: 1, TeamRoundWins: wins})
		if !errors.Is(err, ErrUnsupportedTeams) {
			t.Errorf("teams %v: expected ErrUnsupportedTeams, got %v", wins, err)
		}
	}
}

func TestParseRecordInvalidJSON(t *testing.T) {
	_, err := ParseRecord([]byte(`{"startTime": `))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedTeams))
}

func TestEncodeRoundTrip(t *testing.T) {
	raw, err := ParseRecord([]byte(sampleJSON))
	require.NoError(t, err)
	m, err := Decode(raw)
	require.NoError(t, err)

	again, err := Decode(Encode(m))
	require.NoError(t, err)
	assert.Equal(t, m.Details.ID, again.Details.ID)
	assert.Equal(t, m.Rounds, again.Rounds)
	assert.Equal(t, m.Events, again.Events)
}
