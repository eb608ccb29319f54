// Package rolling turns per-round weapon usage into trailing averages over
// calendar days.
package rolling

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const dateLayout = "2006-01-02"

// Period describes a rolling average chart.
type Period struct {
	WindowDays int `mapstructure:"window_days" validate:"gte=1"`
	// PeriodsVisible of 1.0 covers WindowDays days.
	PeriodsVisible float64 `mapstructure:"periods_visible" validate:"gt=0"`
	// RequiredRatio of 1.0 needs a value on every day of the window.
	RequiredRatio float64 `mapstructure:"required_ratio" validate:"gte=0,lte=1"`
}

func (p Period) DaysOfDataNeeded() int {
	return p.TotalDaysVisible() + p.MinDaysForAverage()
}

func (p Period) TotalDaysVisible() int {
	return int(math.Ceil(float64(p.WindowDays) * p.PeriodsVisible))
}

func (p Period) MinDaysForAverage() int {
	return int(math.Ceil(float64(p.WindowDays) * p.RequiredRatio))
}

// Point is one date of a weapon's rolling series. Valid is false when the
// window held too few observations.
type Point struct {
	Date  time.Time
	Value float64
	Valid bool
}

// DailyUsage returns date -> weapon -> mean round usage. sums holds the summed
// round ratios per date and weapon, rounds the number of rounds per date.
// Every date in rounds gets every weapon, missing sums count as 0.
func DailyUsage(sums map[string]map[string]float64, rounds map[string]int, weapons []string) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(rounds))
	for date, n := range rounds {
		if n <= 0 {
			continue
		}
		day := make(map[string]float64, len(weapons))
		for _, w := range weapons {
			day[w] = sums[date][w] / float64(n)
		}
		out[date] = day
	}
	return out
}

// Percentages rescales each date to the percent share of weapons. Dates where
// the weapons have no usage at all are dropped.
func Percentages(daily map[string]map[string]float64, weapons []string) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(daily))
	for date, usage := range daily {
		var total float64
		for _, w := range weapons {
			total += usage[w]
		}
		if total == 0 {
			continue
		}
		day := make(map[string]float64, len(weapons))
		for _, w := range weapons {
			day[w] = 100 * usage[w] / total
		}
		out[date] = day
	}
	return out
}

type observation struct {
	date  time.Time
	value float64
}

// Rolling keeps the dates within totalDays of the latest date and averages
// each weapon over the trailing window (d - windowDays, d].
func Rolling(series map[string]map[string]float64, weapons []string, windowDays, minDays, totalDays int) (map[string][]Point, error) {
	dates := make([]time.Time, 0, len(series))
	byDate := make(map[time.Time]map[string]float64, len(series))
	for raw, values := range series {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("parse usage date %q: %w", raw, err)
		}
		dates = append(dates, d)
		byDate[d] = values
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make(map[string][]Point, len(weapons))
	if len(dates) == 0 {
		return out, nil
	}
	cutoff := dates[len(dates)-1].AddDate(0, 0, -totalDays)
	visible := dates[:0:0]
	for _, d := range dates {
		if d.After(cutoff) {
			visible = append(visible, d)
		}
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	for _, w := range weapons {
		obs := make([]observation, 0, len(visible))
		for _, d := range visible {
			if v, ok := byDate[d][w]; ok {
				obs = append(obs, observation{d, v})
			}
		}
		points := make([]Point, 0, len(obs))
		for i, o := range obs {
			var vals []float64
			for j := i; j >= 0 && obs[j].date.After(o.date.Add(-window)); j-- {
				vals = append(vals, obs[j].value)
			}
			p := Point{Date: o.date}
			if len(vals) >= minDays && len(vals) > 0 {
				p.Value, p.Valid = stat.Mean(vals, nil), true
			}
			points = append(points, p)
		}
		out[w] = points
	}
	return out, nil
}

// Report runs DailyUsage, Percentages and Rolling with the period's sizes.
func Report(sums map[string]map[string]float64, rounds map[string]int, weapons []string, p Period) (map[string][]Point, error) {
	pct := Percentages(DailyUsage(sums, rounds, weapons), weapons)
	return Rolling(pct, weapons, p.WindowDays, p.MinDaysForAverage(), p.TotalDaysVisible())
}
