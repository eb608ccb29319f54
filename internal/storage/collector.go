package storage

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"github.com/pable/s2-analytics/internal/model"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertRound(e execer, r *model.Round) error {
	winner, _ := r.Winner()
	_, err := e.Exec(`
		INSERT OR IGNORE INTO rounds(match_id, round_number, date, map_name, start_time, end_time, blue_caps, red_caps, winner)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MatchID, r.Number, r.DateISO(), r.MapName,
		model.TimeToMillis(r.StartTime), model.TimeToMillis(r.EndTime),
		r.CapsBlue, r.CapsRed, string(winner),
	)
	if err != nil {
		return fmt.Errorf("insert round %s: %w", r.ID(), err)
	}
	return nil
}

// MatchExists reports whether a match with id is stored.
func (db *DB) MatchExists(id int64) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM matches WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Collector is a match, round and event processor that writes the lookup
// tables. Use Unseen as a match filter in the same pipeline to drop matches
// that are already stored.
type Collector struct {
	db   *DB
	seen *bloom.BloomFilter

	current int64

	Matches    int
	Rounds     int
	Kills      int
	Caps       int
	Duplicates int

	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// NewCollector sizes its duplicate filter for about expected matches and
// seeds it with the matches already stored.
func NewCollector(db *DB, expected uint) (*Collector, error) {
	ids, err := db.matchIDs()
	if err != nil {
		return nil, fmt.Errorf("read stored matches: %w", err)
	}
	n := expected + uint(len(ids))
	if n < 1024 {
		n = 1024
	}
	c := &Collector{
		db:     db,
		seen:   bloom.NewWithEstimates(n, 0.001),
		Logger: zap.NewNop().Sugar(),
	}
	for _, id := range ids {
		c.seen.AddString(strconv.FormatInt(id, 10))
	}
	return c, nil
}

func (db *DB) matchIDs() ([]int64, error) {
	rows, err := db.conn.Query(`SELECT id FROM matches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Unseen reports whether match has not been stored yet. The bloom filter
// answers most lookups; only possible hits are probed in the database.
func (c *Collector) Unseen(m *model.MatchDetails) bool {
	key := strconv.FormatInt(m.ID, 10)
	if c.seen.TestString(key) {
		exists, err := c.db.MatchExists(m.ID)
		if err != nil {
			c.Logger.Warnw("duplicate probe failed", "match_id", m.ID, "error", err)
		}
		if exists {
			c.Duplicates++
			c.Logger.Warnw("duplicate match skipped", "match_id", m.ID)
			return false
		}
	}
	c.seen.AddString(key)
	return true
}

// begin writes the match row on the first callback of each match.
func (c *Collector) begin(m *model.MatchDetails) error {
	if c.current == m.ID {
		return nil
	}
	c.current = m.ID

	winner, _ := m.Winner()
	_, err := c.db.conn.Exec(`
		INSERT INTO matches(id, date, playlist_code, red_round_wins, blue_round_wins, winner, match_quality)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.DateISO(), m.PlaylistCode, m.ScoreRed, m.ScoreBlue, string(winner), m.MatchQuality)
	if err != nil {
		return fmt.Errorf("insert match %d: %w", m.ID, err)
	}
	c.Matches++
	return nil
}

func (c *Collector) ProcessEvent(ev model.Event, round *model.Round, match *model.MatchDetails) error {
	if err := c.begin(match); err != nil {
		return err
	}
	switch e := ev.(type) {
	case model.Kill:
		_, err := c.db.conn.Exec(`
			INSERT INTO event_kills(match_id, round_number, timestamp, date, killer_id, killer_team, victim_id, victim_team, weapon)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.MatchID, e.RoundNumber, model.TimeToMillis(e.Timestamp), e.Timestamp.Format("2006-01-02"),
			e.KillerID, string(e.KillerTeam), e.VictimID, string(e.VictimTeam), e.Weapon)
		if err != nil {
			return fmt.Errorf("insert event_kills: %w", err)
		}
		c.Kills++
	case model.FlagCapture:
		sinceStart := e.Timestamp.Sub(round.StartTime).Milliseconds()
		_, err := c.db.conn.Exec(`
			INSERT INTO event_caps(match_id, round_number, map_name, timestamp, capping_team, player_id, millis_since_start)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.MatchID, e.RoundNumber, round.MapName, model.TimeToMillis(e.Timestamp),
			string(e.Team), e.PlayerID, sinceStart)
		if err != nil {
			return fmt.Errorf("insert event_caps: %w", err)
		}
		c.Caps++
	}
	return nil
}

func (c *Collector) ProcessRound(round *model.Round, match *model.MatchDetails) error {
	if err := c.begin(match); err != nil {
		return err
	}
	if err := insertRound(c.db.conn, round); err != nil {
		return err
	}
	c.Rounds++
	return nil
}

func (c *Collector) ProcessMatch(match *model.MatchDetails) error {
	err := c.begin(match)
	c.current = 0
	return err
}
