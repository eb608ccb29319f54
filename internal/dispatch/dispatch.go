// Package dispatch replays decoded matches to processors in strict order.
package dispatch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/parser"
	"github.com/pable/s2-analytics/internal/source"
)

// MatchProcessor receives each accepted match after all of its rounds.
type MatchProcessor interface {
	ProcessMatch(match *model.MatchDetails) error
}

// RoundProcessor receives each round after all of its events.
type RoundProcessor interface {
	ProcessRound(round *model.Round, match *model.MatchDetails) error
}

// EventProcessor receives each tracked event in log order.
type EventProcessor interface {
	ProcessEvent(ev model.Event, round *model.Round, match *model.MatchDetails) error
}

// MatchFilter decides whether a match is dispatched.
type MatchFilter func(match *model.MatchDetails) bool

// Outcome is what happened to a single record.
type Outcome int

const (
	OutcomeDispatched Outcome = iota
	OutcomeFiltered
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeSkipped:
		return "skipped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result counts record outcomes over a batch.
type Result struct {
	Dispatched   int
	Filtered     int
	SkippedTeams int
}

// Pipeline holds processors partitioned by capability.
type Pipeline struct {
	matchProcs []MatchProcessor
	roundProcs []RoundProcessor
	eventProcs []EventProcessor
	filters    []MatchFilter

	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// New partitions processors by the interfaces they implement. A processor
// implementing none of them is accepted and never called.
func New(processors []any, filters ...MatchFilter) *Pipeline {
	p := &Pipeline{filters: filters, Logger: zap.NewNop().Sugar()}
	for _, proc := range processors {
		if mp, ok := proc.(MatchProcessor); ok {
			p.matchProcs = append(p.matchProcs, mp)
		}
		if rp, ok := proc.(RoundProcessor); ok {
			p.roundProcs = append(p.roundProcs, rp)
		}
		if ep, ok := proc.(EventProcessor); ok {
			p.eventProcs = append(p.eventProcs, ep)
		}
	}
	return p
}

// Capabilities returns the number of match, round and event processors.
func (p *Pipeline) Capabilities() (matches, rounds, events int) {
	return len(p.matchProcs), len(p.roundProcs), len(p.eventProcs)
}

// Deserialize decodes one raw record and replays it. Unsupported team naming
// is reported as OutcomeSkipped with a nil error.
func (p *Pipeline) Deserialize(raw *model.RawMatch) (Outcome, error) {
	details, err := parser.DecodeDetails(raw)
	if errors.Is(err, parser.ErrUnsupportedTeams) {
		p.Logger.Debugw("skipping match", "start_time", raw.StartTime, "reason", err)
		return OutcomeSkipped, nil
	}
	if err != nil {
		return OutcomeSkipped, err
	}

	for _, f := range p.filters {
		if !f(details) {
			return OutcomeFiltered, nil
		}
	}

	for i := range raw.Rounds {
		rawRound := &raw.Rounds[i]
		round := parser.DecodeRound(i+1, rawRound, details)
		if len(p.eventProcs) > 0 {
			for j := range rawRound.Events {
				ev, ok := parser.DecodeEvent(&rawRound.Events[j], &round)
				if !ok {
					continue
				}
				for _, ep := range p.eventProcs {
					if err := ep.ProcessEvent(ev, &round, details); err != nil {
						return OutcomeDispatched, fmt.Errorf("match %d round %d: process event: %w", details.ID, round.Number, err)
					}
				}
			}
		}
		for _, rp := range p.roundProcs {
			if err := rp.ProcessRound(&round, details); err != nil {
				return OutcomeDispatched, fmt.Errorf("match %d round %d: process round: %w", details.ID, round.Number, err)
			}
		}
	}

	for _, mp := range p.matchProcs {
		if err := mp.ProcessMatch(details); err != nil {
			return OutcomeDispatched, fmt.Errorf("match %d: process match: %w", details.ID, err)
		}
	}
	return OutcomeDispatched, nil
}

// Run replays every record in order. The first processor error stops the batch.
func (p *Pipeline) Run(records []source.Record) (Result, error) {
	var res Result
	for _, rec := range records {
		outcome, err := p.Deserialize(rec.Raw)
		if err != nil {
			return res, fmt.Errorf("%s: %w", rec.Name, err)
		}
		switch outcome {
		case OutcomeDispatched:
			res.Dispatched++
		case OutcomeFiltered:
			res.Filtered++
		case OutcomeSkipped:
			res.SkippedTeams++
		}
	}
	p.Logger.Infow("dispatch finished",
		"dispatched", res.Dispatched,
		"filtered", res.Filtered,
		"skipped_teams", res.SkippedTeams,
	)
	return res, nil
}
