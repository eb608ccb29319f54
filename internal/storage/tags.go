package storage

import (
	"errors"
	"fmt"

	"github.com/pable/s2-analytics/internal/model"
)

// Integrity errors. Any of them aborts an import.
var (
	ErrDuplicateTag = errors.New("duplicate tag in team round")
	ErrTiedRound    = errors.New("tied round has no outcome")
)

// TagRow is one (team round, tag) pair.
type TagRow struct {
	MatchID     int64
	RoundNumber int
	Team        model.Team
	Tag         string
	MapName     string
}

// TagFilter selects tags. A nil filter keeps every tag.
type TagFilter func(tag string) bool

// WithoutOutcome drops the win/lose tags.
func WithoutOutcome(tag string) bool { return !model.IsOutcomeTag(tag) }

// TagQuery scopes tag reads. Zero values mean no restriction.
type TagQuery struct {
	Map     string
	MatchID int64
	Filter  TagFilter
}

func (q TagQuery) keep(tag string) bool {
	return q.Filter == nil || q.Filter(tag)
}

func (q TagQuery) where() (string, []any) {
	clause := " WHERE 1=1"
	var args []any
	if q.Map != "" {
		clause += " AND r.map_name = ?"
		args = append(args, q.Map)
	}
	if q.MatchID != 0 {
		clause += " AND t.match_id = ?"
		args = append(args, q.MatchID)
	}
	return clause, args
}

// AddTeamRoundTags stores the tags of team for round plus "win" or "lose", so
// a stored set is never empty. Tied rounds and duplicate tags are rejected.
func (db *DB) AddTeamRoundTags(round *model.Round, team model.Team, tags []string) error {
	winner, ok := round.Winner()
	if !ok {
		return fmt.Errorf("round %s: %w", round.ID(), ErrTiedRound)
	}
	outcome := model.TagLose
	if winner == team {
		outcome = model.TagWin
	}

	set := make([]string, 0, len(tags)+1)
	set = append(set, tags...)
	set = append(set, outcome)
	seen := make(map[string]bool, len(set))
	for _, tag := range set {
		if seen[tag] {
			return fmt.Errorf("round %s team %s tag %q: %w", round.ID(), team, tag, ErrDuplicateTag)
		}
		seen[tag] = true
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertRound(tx, round); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO team_round_tags(match_id, round_number, team, tag) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, tag := range set {
		if _, err := stmt.Exec(round.MatchID, round.Number, string(team), tag); err != nil {
			return fmt.Errorf("insert team_round_tags: %w", err)
		}
	}
	return tx.Commit()
}

// TagRows returns tag rows in insertion order.
func (db *DB) TagRows(q TagQuery) ([]TagRow, error) {
	where, args := q.where()
	rows, err := db.conn.Query(`
		SELECT t.match_id, t.round_number, t.team, t.tag, r.map_name
		FROM team_round_tags t
		JOIN rounds r ON r.match_id = t.match_id AND r.round_number = t.round_number`+where+`
		ORDER BY t.rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TagRow
	for rows.Next() {
		var r TagRow
		var team string
		if err := rows.Scan(&r.MatchID, &r.RoundNumber, &team, &r.Tag, &r.MapName); err != nil {
			return nil, err
		}
		if !q.keep(r.Tag) {
			continue
		}
		r.Team = model.Team(team)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TagCounts returns the number of team rounds carrying each tag.
func (db *DB) TagCounts(q TagQuery) (map[string]int, error) {
	where, args := q.where()
	rows, err := db.conn.Query(`
		SELECT t.tag, COUNT(1)
		FROM team_round_tags t
		JOIN rounds r ON r.match_id = t.match_id AND r.round_number = t.round_number`+where+`
		GROUP BY t.tag`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, err
		}
		if q.keep(tag) {
			out[tag] = n
		}
	}
	return out, rows.Err()
}

// TagCountsPerMap returns TagCounts for every tagged map.
func (db *DB) TagCountsPerMap(filter TagFilter) (map[string]map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT r.map_name, t.tag, COUNT(1)
		FROM team_round_tags t
		JOIN rounds r ON r.match_id = t.match_id AND r.round_number = t.round_number
		GROUP BY r.map_name, t.tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var mapName, tag string
		var n int
		if err := rows.Scan(&mapName, &tag, &n); err != nil {
			return nil, err
		}
		if filter != nil && !filter(tag) {
			continue
		}
		if out[mapName] == nil {
			out[mapName] = make(map[string]int)
		}
		out[mapName][tag] = n
	}
	return out, rows.Err()
}

// TaggedMaps returns the sorted names of maps with at least one tag row.
func (db *DB) TaggedMaps() ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT r.map_name
		FROM team_round_tags t
		JOIN rounds r ON r.match_id = t.match_id AND r.round_number = t.round_number
		ORDER BY r.map_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
