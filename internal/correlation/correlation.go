// Package correlation relates team-round tags to the round outcome.
package correlation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/storage"
)

// ErrOutOfRange is returned for a correlation outside [-1, 1] or a negative
// sample count.
var ErrOutOfRange = errors.New("correlation value out of range")

// TagSource is the store surface the engine reads.
type TagSource interface {
	TagRows(q storage.TagQuery) ([]storage.TagRow, error)
	TaggedMaps() ([]string, error)
}

type Engine struct {
	src TagSource
}

func NewEngine(src TagSource) *Engine {
	return &Engine{src: src}
}

// WinCorrelation correlates every tag on mapName with winning. An empty map
// name uses every round.
func (e *Engine) WinCorrelation(mapName string) (map[string]float64, error) {
	rows, err := e.src.TagRows(storage.TagQuery{Map: mapName})
	if err != nil {
		return nil, fmt.Errorf("read tag rows: %w", err)
	}
	return winCorrelation(TableFromRows(rows)), nil
}

func winCorrelation(t *Table) map[string]float64 {
	out := t.Correlate(model.TagWin)
	delete(out, model.TagLose)
	return out
}

// WinCorrelationPerMap runs WinCorrelation for every tagged map.
func (e *Engine) WinCorrelationPerMap() (map[string]map[string]float64, error) {
	tables, _, err := e.tablesPerMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]float64, len(tables))
	for m, t := range tables {
		out[m] = winCorrelation(t)
	}
	return out, nil
}

// ForTag returns the tag's win correlation and sample count on every tagged map.
func (e *Engine) ForTag(tag string) (*TagCorrelations, error) {
	all, err := e.ForTags([]string{tag})
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// ForTags is ForTag for several tags over a single read of the store.
func (e *Engine) ForTags(tags []string) ([]*TagCorrelations, error) {
	tables, maps, err := e.tablesPerMap()
	if err != nil {
		return nil, err
	}
	corr := make(map[string]map[string]float64, len(tables))
	for m, t := range tables {
		corr[m] = winCorrelation(t)
	}

	out := make([]*TagCorrelations, 0, len(tags))
	for _, tag := range tags {
		byMap := make(map[string]Sample, len(maps))
		for _, m := range maps {
			byMap[m] = Sample{Correlation: corr[m][tag], Count: tables[m].Count(tag)}
		}
		tc, err := NewTagCorrelations(tag, byMap)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, nil
}

// WeaponTags returns every non-outcome tag, most samples first.
func (e *Engine) WeaponTags() ([]string, error) {
	rows, err := e.src.TagRows(storage.TagQuery{Filter: storage.WithoutOutcome})
	if err != nil {
		return nil, fmt.Errorf("read tag rows: %w", err)
	}
	t := TableFromRows(rows)
	tags := t.Columns()
	sort.SliceStable(tags, func(i, j int) bool {
		return t.Count(tags[i]) > t.Count(tags[j])
	})
	return tags, nil
}

func (e *Engine) tablesPerMap() (map[string]*Table, []string, error) {
	maps, err := e.src.TaggedMaps()
	if err != nil {
		return nil, nil, fmt.Errorf("read tagged maps: %w", err)
	}
	rows, err := e.src.TagRows(storage.TagQuery{})
	if err != nil {
		return nil, nil, fmt.Errorf("read tag rows: %w", err)
	}
	tables := make(map[string]*Table, len(maps))
	for _, m := range maps {
		tables[m] = NewTable()
	}
	for _, r := range rows {
		t, ok := tables[r.MapName]
		if !ok {
			t = NewTable()
			tables[r.MapName] = t
			maps = append(maps, r.MapName)
		}
		t.Add(r)
	}
	sort.Strings(maps)
	return tables, maps, nil
}

// Sample is the correlation of one tag on one map and how many team rounds
// carried it.
type Sample struct {
	Correlation float64
	Count       int
}

// TagCorrelations holds one tag's per-map results. It is immutable.
type TagCorrelations struct {
	tag   string
	byMap map[string]Sample
	total int
}

func NewTagCorrelations(tag string, byMap map[string]Sample) (*TagCorrelations, error) {
	tc := &TagCorrelations{tag: tag, byMap: make(map[string]Sample, len(byMap))}
	for m, s := range byMap {
		if math.IsNaN(s.Correlation) || s.Correlation < -1 || s.Correlation > 1 {
			return nil, fmt.Errorf("tag %s map %s correlation %v: %w", tag, m, s.Correlation, ErrOutOfRange)
		}
		if s.Count < 0 {
			return nil, fmt.Errorf("tag %s map %s samples %d: %w", tag, m, s.Count, ErrOutOfRange)
		}
		tc.byMap[m] = s
		tc.total += s.Count
	}
	return tc, nil
}

func (tc *TagCorrelations) Tag() string { return tc.tag }

// Maps returns the covered maps, sorted.
func (tc *TagCorrelations) Maps() []string {
	out := make([]string, 0, len(tc.byMap))
	for m := range tc.byMap {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Correlation is 0 for a map without data.
func (tc *TagCorrelations) Correlation(mapName string) float64 {
	return tc.byMap[mapName].Correlation
}

func (tc *TagCorrelations) SampleCount(mapName string) int {
	return tc.byMap[mapName].Count
}

func (tc *TagCorrelations) TotalSamples() int { return tc.total }

// Filter returns a copy keeping only maps with at least minSamples samples.
func (tc *TagCorrelations) Filter(minSamples int) *TagCorrelations {
	out := &TagCorrelations{tag: tc.tag, byMap: make(map[string]Sample)}
	for m, s := range tc.byMap {
		if s.Count >= minSamples {
			out.byMap[m] = s
			out.total += s.Count
		}
	}
	return out
}
