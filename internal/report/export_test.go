package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/s2-analytics/internal/correlation"
	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/storage"
)

func pivotFixture() *correlation.Table {
	return correlation.TableFromRows([]storage.TagRow{
		{MatchID: 7, RoundNumber: 1, Team: model.TeamRed, Tag: model.TagWin},
		{MatchID: 7, RoundNumber: 1, Team: model.TeamRed, Tag: "SteyrAUG_x1"},
		{MatchID: 7, RoundNumber: 1, Team: model.TeamBlue, Tag: model.TagLose},
		{MatchID: 7, RoundNumber: 1, Team: model.TeamBlue, Tag: "Deagles_x1"},
	})
}

func TestWritePivotCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePivotCSV(&buf, pivotFixture()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "match_id,round,team,Deagles_x1,SteyrAUG_x1,lose,win", lines[0])
	assert.Equal(t, "7,1,Red,0,1,0,1", lines[1])
	assert.Equal(t, "7,1,Blue,1,0,1,0", lines[2])
}

func TestWritePivotJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePivotJSON(&buf, pivotFixture()))

	var got []pivotRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, pivotRecord{MatchID: 7, Round: 1, Team: "Red", Tags: []string{"SteyrAUG_x1", "win"}}, got[0])
	assert.Equal(t, []string{"Deagles_x1", "lose"}, got[1].Tags)
}

func TestWritePivotJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePivotJSON(&buf, correlation.NewTable()))
	assert.Equal(t, "[]\n", buf.String())
}
