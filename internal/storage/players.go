package storage

import (
	"fmt"

	"github.com/pable/s2-analytics/internal/model"
)

// PlayerStats aggregates the stored kill events a player took part in. It
// returns nil when the player never killed or died.
func (db *DB) PlayerStats(playerID string) (*model.PlayerStats, error) {
	p := &model.PlayerStats{ID: playerID}
	err := db.conn.QueryRow(`
		SELECT
			COUNT(DISTINCT match_id),
			COUNT(DISTINCT match_id || '-' || round_number),
			COALESCE(SUM(killer_id = ?), 0),
			COALESCE(SUM(victim_id = ?), 0)
		FROM event_kills
		WHERE killer_id = ? OR victim_id = ?`,
		playerID, playerID, playerID, playerID).
		Scan(&p.Matches, &p.Rounds, &p.Kills, &p.Deaths)
	if err != nil {
		return nil, fmt.Errorf("query player %s: %w", playerID, err)
	}
	if p.Kills == 0 && p.Deaths == 0 {
		return nil, nil
	}

	rows, err := db.conn.Query(`
		SELECT weapon, COUNT(1) AS kills
		FROM event_kills
		WHERE killer_id = ?
		GROUP BY weapon
		ORDER BY kills DESC, weapon`, playerID)
	if err != nil {
		return nil, fmt.Errorf("query player weapons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var wk model.WeaponKills
		if err := rows.Scan(&wk.Weapon, &wk.Kills); err != nil {
			return nil, err
		}
		p.Weapons = append(p.Weapons, wk)
	}
	return p, rows.Err()
}
