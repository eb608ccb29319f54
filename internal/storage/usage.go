package storage

import (
	"fmt"

	"github.com/pable/s2-analytics/internal/model"
)

// AddRoundUsage stores a round's weapon usage report.
func (db *DB) AddRoundUsage(round *model.Round, usage map[string]float64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	date := round.DateISO()
	if _, err := tx.Exec(`INSERT INTO usage_rounds(round_id, date) VALUES (?, ?)`, round.ID(), date); err != nil {
		return fmt.Errorf("insert usage_rounds: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO round_usage(round_id, date, weapon, usage) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for weapon, u := range usage {
		if _, err := stmt.Exec(round.ID(), date, weapon, u); err != nil {
			return fmt.Errorf("insert round_usage: %w", err)
		}
	}
	return tx.Commit()
}

// UsageTotals holds summed round usage per date.
type UsageTotals struct {
	// Sums[date][weapon] is the sum of the weapon's round ratios on date.
	Sums map[string]map[string]float64
	// Rounds[date] is the number of rounds with a usage report on date.
	Rounds map[string]int
}

// Dates returns every date with at least one usage round.
func (u *UsageTotals) Dates() []string {
	out := make([]string, 0, len(u.Rounds))
	for d := range u.Rounds {
		out = append(out, d)
	}
	return sortedStrings(out)
}

// UsageTotals reads summed usage grouped by date and weapon.
func (db *DB) UsageTotals() (*UsageTotals, error) {
	out := &UsageTotals{
		Sums:   make(map[string]map[string]float64),
		Rounds: make(map[string]int),
	}

	rows, err := db.conn.Query(`SELECT date, COUNT(1) FROM usage_rounds GROUP BY date`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var date string
		var n int
		if err := rows.Scan(&date, &n); err != nil {
			rows.Close()
			return nil, err
		}
		out.Rounds[date] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = db.conn.Query(`SELECT date, weapon, SUM(usage) FROM round_usage GROUP BY date, weapon`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var date, weapon string
		var sum float64
		if err := rows.Scan(&date, &weapon, &sum); err != nil {
			return nil, err
		}
		if out.Sums[date] == nil {
			out.Sums[date] = make(map[string]float64)
		}
		out.Sums[date][weapon] = sum
	}
	return out, rows.Err()
}
