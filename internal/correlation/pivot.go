package correlation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/storage"
)

// TeamRound identifies one sample of a Table.
type TeamRound struct {
	MatchID int64
	Round   int
	Team    model.Team
}

// Table pivots tag rows into one sample per team round with a one-hot column
// per tag. A tag missing from a sample counts as 0.
type Table struct {
	index  map[TeamRound]int
	keys   []TeamRound
	tags   []map[string]bool
	counts map[string]int
}

func NewTable() *Table {
	return &Table{index: make(map[TeamRound]int), counts: make(map[string]int)}
}

// TableFromRows builds a table from tag rows.
func TableFromRows(rows []storage.TagRow) *Table {
	t := NewTable()
	for _, r := range rows {
		t.Add(r)
	}
	return t
}

// Add sets the row's tag on its team round sample.
func (t *Table) Add(r storage.TagRow) {
	k := TeamRound{r.MatchID, r.RoundNumber, r.Team}
	i, ok := t.index[k]
	if !ok {
		i = len(t.tags)
		t.index[k] = i
		t.keys = append(t.keys, k)
		t.tags = append(t.tags, make(map[string]bool))
	}
	if !t.tags[i][r.Tag] {
		t.tags[i][r.Tag] = true
		t.counts[r.Tag]++
	}
}

// Len is the number of team round samples.
func (t *Table) Len() int { return len(t.tags) }

// TeamRounds returns the samples in the order they were first added.
// Column values line up with it.
func (t *Table) TeamRounds() []TeamRound {
	return append([]TeamRound(nil), t.keys...)
}

// Count is the number of samples carrying tag.
func (t *Table) Count(tag string) int { return t.counts[tag] }

// Columns returns every tag seen, sorted.
func (t *Table) Columns() []string {
	out := make([]string, 0, len(t.counts))
	for tag := range t.counts {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Column returns the one-hot column of tag.
func (t *Table) Column(tag string) []float64 {
	col := make([]float64, len(t.tags))
	for i, set := range t.tags {
		if set[tag] {
			col[i] = 1
		}
	}
	return col
}

// Correlate returns the Pearson correlation of every other column with target.
func (t *Table) Correlate(target string) map[string]float64 {
	out := make(map[string]float64)
	if t.Len() == 0 {
		return out
	}
	y := t.Column(target)
	for _, tag := range t.Columns() {
		if tag == target {
			continue
		}
		out[tag] = pearson(t.Column(tag), y)
	}
	return out
}

// pearson rounds to two decimals and maps undefined results (a constant
// column) to 0.
func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	r = math.Round(r*100) / 100
	return math.Max(-1, math.Min(1, r))
}
