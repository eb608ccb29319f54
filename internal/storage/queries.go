package storage

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/pable/s2-analytics/internal/model"
)

// Overview summarises the stored dataset.
func (db *DB) Overview() (*model.Overview, error) {
	var first, last sql.NullInt64
	var o model.Overview
	err := db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(1) FROM matches),
			(SELECT COUNT(1) FROM rounds),
			(SELECT COUNT(1) FROM (SELECT DISTINCT match_id, round_number, team FROM team_round_tags)),
			(SELECT MIN(id) FROM matches),
			(SELECT MAX(id) FROM matches)`).
		Scan(&o.TotalGames, &o.TotalRounds, &o.TaggedTeamRounds, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("query overview: %w", err)
	}
	if first.Valid {
		o.FirstGame = model.MillisToTime(first.Int64)
	}
	if last.Valid {
		o.LastGame = model.MillisToTime(last.Int64)
	}

	rows, err := db.conn.Query(`
		SELECT playlist_code, COUNT(1)
		FROM matches
		GROUP BY playlist_code
		ORDER BY playlist_code`)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pc model.PlaylistCount
		if err := rows.Scan(&pc.Playlist, &pc.Games); err != nil {
			return nil, err
		}
		o.GamesByPlaylist = append(o.GamesByPlaylist, pc)
	}
	return &o, rows.Err()
}

// ListMatches returns stored matches, newest first. limit <= 0 returns all.
func (db *DB) ListMatches(limit int) ([]model.MatchSummary, error) {
	query := `
		SELECT m.id, m.date, m.playlist_code, m.red_round_wins, m.blue_round_wins, m.winner,
		       (SELECT COUNT(1) FROM rounds r WHERE r.match_id = m.id)
		FROM matches m
		ORDER BY m.id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		var s model.MatchSummary
		if err := rows.Scan(&s.ID, &s.Date, &s.PlaylistCode, &s.RedRoundWins, &s.BlueRoundWins, &s.Winner, &s.Rounds); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MatchRounds returns the stored rounds of a match in order.
func (db *DB) MatchRounds(matchID int64) ([]model.Round, error) {
	rows, err := db.conn.Query(`
		SELECT round_number, map_name, start_time, end_time, blue_caps, red_caps
		FROM rounds WHERE match_id = ?
		ORDER BY round_number`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Round
	for rows.Next() {
		r := model.Round{MatchID: matchID}
		var start, end int64
		if err := rows.Scan(&r.Number, &r.MapName, &start, &end, &r.CapsBlue, &r.CapsRed); err != nil {
			return nil, err
		}
		r.StartTime = model.MillisToTime(start)
		r.EndTime = model.MillisToTime(end)
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns every value as a string.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case float64:
		return fmt.Sprintf("%.4g", x)
	default:
		return fmt.Sprint(x)
	}
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
