package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pable/s2-analytics/internal/correlation"
)

// WritePivotCSV writes one row per team round with a 0/1 column per tag.
func WritePivotCSV(w io.Writer, t *correlation.Table) error {
	tags := t.Columns()
	cols := make([][]float64, len(tags))
	for i, tag := range tags {
		cols[i] = t.Column(tag)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"match_id", "round", "team"}, tags...)); err != nil {
		return err
	}
	for i, k := range t.TeamRounds() {
		rec := make([]string, 0, 3+len(tags))
		rec = append(rec, strconv.FormatInt(k.MatchID, 10), strconv.Itoa(k.Round), string(k.Team))
		for c := range tags {
			rec = append(rec, strconv.Itoa(int(cols[c][i])))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type pivotRecord struct {
	MatchID int64    `json:"match_id"`
	Round   int      `json:"round"`
	Team    string   `json:"team"`
	Tags    []string `json:"tags"`
}

// WritePivotJSON writes the team rounds as a JSON array, each with its
// sorted tags.
func WritePivotJSON(w io.Writer, t *correlation.Table) error {
	tags := t.Columns()
	cols := make([][]float64, len(tags))
	for i, tag := range tags {
		cols[i] = t.Column(tag)
	}

	keys := t.TeamRounds()
	out := make([]pivotRecord, 0, len(keys))
	for i, k := range keys {
		rec := pivotRecord{MatchID: k.MatchID, Round: k.Round, Team: string(k.Team), Tags: []string{}}
		for c, tag := range tags {
			if cols[c][i] == 1 {
				rec.Tags = append(rec.Tags, tag)
			}
		}
		out = append(out, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
