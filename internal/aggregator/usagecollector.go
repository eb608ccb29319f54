package aggregator

import (
	"fmt"

	"github.com/pable/s2-analytics/internal/model"
)

// UsageStore persists the usage report of one round.
type UsageStore interface {
	AddRoundUsage(round *model.Round, usage map[string]float64) error
}

// UsageCollector stores one weapon usage report per round that has at least
// one kill inside the configured groups.
type UsageCollector struct {
	analyzer *UsageAnalyzer
	store    UsageStore

	Rounds int
}

func NewUsageCollector(store UsageStore, groups [][]string) *UsageCollector {
	return &UsageCollector{analyzer: NewUsageAnalyzer(groups), store: store}
}

func (c *UsageCollector) ProcessEvent(ev model.Event, _ *model.Round, _ *model.MatchDetails) error {
	if k, ok := ev.(model.Kill); ok {
		c.analyzer.RecordKill(k.KillerID, k.Weapon)
	}
	return nil
}

func (c *UsageCollector) ProcessRound(round *model.Round, _ *model.MatchDetails) error {
	defer c.analyzer.Reset()
	if c.analyzer.Empty() {
		return nil
	}
	if err := c.store.AddRoundUsage(round, c.analyzer.Report()); err != nil {
		return fmt.Errorf("store round usage: %w", err)
	}
	c.Rounds++
	return nil
}
