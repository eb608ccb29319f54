package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/s2-analytics/internal/correlation"
	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/rolling"
	"github.com/pable/s2-analytics/internal/storage"
)

const dateFormat = "2006-01-02 15:04"

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// Import is what an import run printed at the end.
type Import struct {
	Corpus       string
	Entries      int
	BadName      int
	OutOfWindow  int
	Loaded       int
	Dispatched   int
	Filtered     int
	SkippedTeams int
	Duplicates   int
	TeamRounds   int
	UsageRounds  int
}

// PrintImportSummary prints the counters of an import run.
func PrintImportSummary(w io.Writer, s Import) {
	fmt.Fprintf(w, "\nImported %s\n\n", s.Corpus)
	table := newTable(w)
	table.Header("STAGE", "COUNT")
	table.Append("entries", strconv.Itoa(s.Entries))
	table.Append("skipped (bad name)", strconv.Itoa(s.BadName))
	table.Append("skipped (out of window)", strconv.Itoa(s.OutOfWindow))
	table.Append("loaded", strconv.Itoa(s.Loaded))
	table.Append("skipped (unsupported teams)", strconv.Itoa(s.SkippedTeams))
	table.Append("filtered", strconv.Itoa(s.Filtered))
	table.Append("duplicates", strconv.Itoa(s.Duplicates))
	table.Append("dispatched", strconv.Itoa(s.Dispatched))
	table.Append("team rounds tagged", strconv.Itoa(s.TeamRounds))
	table.Append("usage rounds", strconv.Itoa(s.UsageRounds))
	table.Render()
}

// PrintOverview prints the dataset overview.
func PrintOverview(w io.Writer, o *model.Overview) {
	if o.TotalGames == 0 {
		fmt.Fprintln(w, "No matches stored.")
		return
	}
	fmt.Fprintf(w, "\nFirst game: %s  |  Last game: %s\n\n",
		o.FirstGame.Format(dateFormat), o.LastGame.Format(dateFormat))

	table := newTable(w)
	table.Header("GAMES", "ROUNDS", "TAGGED_TEAM_ROUNDS")
	table.Append(strconv.Itoa(o.TotalGames), strconv.Itoa(o.TotalRounds), strconv.Itoa(o.TaggedTeamRounds))
	table.Render()

	fmt.Fprintln(w)
	byPlaylist := newTable(w)
	byPlaylist.Header("PLAYLIST", "GAMES")
	for _, pc := range o.GamesByPlaylist {
		byPlaylist.Append(pc.Playlist, strconv.Itoa(pc.Games))
	}
	byPlaylist.Render()
}

// PrintMatchList prints stored matches.
func PrintMatchList(w io.Writer, matches []model.MatchSummary) {
	table := newTable(w)
	table.Header("ID", "DATE", "PLAYLIST", "RED", "BLUE", "WINNER", "ROUNDS")
	for _, m := range matches {
		winner := m.Winner
		if winner == "" {
			winner = "tie"
		}
		table.Append(
			strconv.FormatInt(m.ID, 10),
			m.Date,
			m.PlaylistCode,
			strconv.Itoa(m.RedRoundWins),
			strconv.Itoa(m.BlueRoundWins),
			winner,
			strconv.Itoa(m.Rounds),
		)
	}
	table.Render()
}

// PrintRounds prints the rounds of one match.
func PrintRounds(w io.Writer, rounds []model.Round) {
	table := newTable(w)
	table.Header("ROUND", "MAP", "START", "SECONDS", "RED_CAPS", "BLUE_CAPS", "WINNER")
	for _, r := range rounds {
		winner := "tie"
		if team, ok := r.Winner(); ok {
			winner = string(team)
		}
		table.Append(
			strconv.Itoa(r.Number),
			r.MapName,
			r.StartTime.Format(dateFormat),
			fmt.Sprintf("%.0f", r.EndTime.Sub(r.StartTime).Seconds()),
			strconv.Itoa(r.CapsRed),
			strconv.Itoa(r.CapsBlue),
			winner,
		)
	}
	table.Render()
}

// PrintCorrelations prints tag correlations with winning, strongest positive
// first. top <= 0 prints every tag.
func PrintCorrelations(w io.Writer, title string, corr map[string]float64, top int) {
	if title != "" {
		fmt.Fprintf(w, "\n%s\n\n", title)
	}
	if len(corr) == 0 {
		fmt.Fprintln(w, "(no tagged rounds)")
		return
	}
	tags := make([]string, 0, len(corr))
	for tag := range corr {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if corr[tags[i]] != corr[tags[j]] {
			return corr[tags[i]] > corr[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if top > 0 && len(tags) > top {
		tags = tags[:top]
	}

	table := newTable(w)
	table.Header("TAG", "WIN_CORR")
	for _, tag := range tags {
		table.Append(tag, fmt.Sprintf("%+.2f", corr[tag]))
	}
	table.Render()
}

// PrintTagCorrelations prints one row per tag with the correlation and
// sample count on each map.
func PrintTagCorrelations(w io.Writer, tcs []*correlation.TagCorrelations) {
	mapSet := make(map[string]bool)
	for _, tc := range tcs {
		for _, m := range tc.Maps() {
			mapSet[m] = true
		}
	}
	maps := make([]string, 0, len(mapSet))
	for m := range mapSet {
		maps = append(maps, m)
	}
	sort.Strings(maps)

	header := []any{"TAG", "SAMPLES", "FLAG"}
	for _, m := range maps {
		header = append(header, strings.ToUpper(m))
	}
	table := newTable(w)
	table.Header(header...)
	for _, tc := range tcs {
		row := []any{tc.Tag(), strconv.Itoa(tc.TotalSamples()), sampleFlag(tc.TotalSamples())}
		covered := make(map[string]bool)
		for _, m := range tc.Maps() {
			covered[m] = true
		}
		for _, m := range maps {
			if !covered[m] {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%+.2f (%d)", tc.Correlation(m), tc.SampleCount(m)))
		}
		table.Append(row...)
	}
	table.Render()
}

func sampleFlag(n int) string {
	switch {
	case n >= 50:
		return "OK"
	case n >= 20:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

// PrintTagCounts prints tag counts, most frequent first.
func PrintTagCounts(w io.Writer, title string, counts map[string]int) {
	if title != "" {
		fmt.Fprintf(w, "\n%s\n\n", title)
	}
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	table := newTable(w)
	table.Header("TAG", "TEAM_ROUNDS")
	for _, tag := range tags {
		table.Append(tag, strconv.Itoa(counts[tag]))
	}
	table.Render()
}

// PrintTagRows prints raw (team round, tag) rows.
func PrintTagRows(w io.Writer, rows []storage.TagRow) {
	table := newTable(w)
	table.Header("MATCH", "ROUND", "MAP", "TEAM", "TAG")
	for _, r := range rows {
		table.Append(strconv.FormatInt(r.MatchID, 10), strconv.Itoa(r.RoundNumber), r.MapName, string(r.Team), r.Tag)
	}
	table.Render()
}

// PrintTrend prints one row per date and one column per weapon. Dates where
// the window is not filled yet show "-".
func PrintTrend(w io.Writer, series map[string][]rolling.Point, weapons []string) {
	dates := make(map[string]bool)
	values := make(map[string]map[string]rolling.Point, len(weapons))
	for _, weapon := range weapons {
		values[weapon] = make(map[string]rolling.Point)
		for _, p := range series[weapon] {
			d := p.Date.Format("2006-01-02")
			dates[d] = true
			values[weapon][d] = p
		}
	}
	if len(dates) == 0 {
		fmt.Fprintln(w, "(no usage data in range)")
		return
	}
	sorted := make([]string, 0, len(dates))
	for d := range dates {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	header := []any{"DATE"}
	for _, weapon := range weapons {
		header = append(header, weapon)
	}
	table := newTable(w)
	table.Header(header...)
	for _, d := range sorted {
		row := []any{d}
		for _, weapon := range weapons {
			p, ok := values[weapon][d]
			if !ok || !p.Valid {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%.1f%%", p.Value))
		}
		table.Append(row...)
	}
	table.Render()
}

// PrintSessions prints import sessions.
func PrintSessions(w io.Writer, sessions []storage.Session) {
	table := newTable(w)
	table.Header("ID", "CORPUS", "STARTED", "FINISHED", "STATUS", "DISPATCHED", "FILTERED", "SKIPPED", "BAD_NAMES", "DUPLICATES")
	for _, s := range sessions {
		finished, status := "-", "running"
		if !s.FinishedAt.IsZero() {
			finished, status = s.FinishedAt.Format(dateFormat), "ok"
		}
		if s.Failed() {
			status = "failed"
		}
		table.Append(
			s.ID[:8],
			s.Corpus,
			s.StartedAt.Format(dateFormat),
			finished,
			status,
			strconv.Itoa(s.Dispatched),
			strconv.Itoa(s.Filtered),
			strconv.Itoa(s.SkippedTeams),
			strconv.Itoa(s.BadNames),
			strconv.Itoa(s.Duplicates),
		)
	}
	table.Render()
}

// PrintQueryResult prints the result of a raw query.
func PrintQueryResult(w io.Writer, cols []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	table := newTable(w)
	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)
	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}

// PrintPlayers prints one overview row per player and each player's kills
// by weapon.
func PrintPlayers(w io.Writer, players []*model.PlayerStats) {
	table := newTable(w)
	table.Header("PLAYER", "MATCHES", "ROUNDS", "K", "D", "K/D", "TOP_WEAPON")
	for _, p := range players {
		top := "-"
		if len(p.Weapons) > 0 {
			top = p.Weapons[0].Weapon
		}
		table.Append(
			p.ID,
			strconv.Itoa(p.Matches),
			strconv.Itoa(p.Rounds),
			strconv.Itoa(p.Kills),
			strconv.Itoa(p.Deaths),
			fmt.Sprintf("%.2f", p.KDRatio()),
			top,
		)
	}
	table.Render()

	for _, p := range players {
		if len(p.Weapons) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n--- Weapons: %s ---\n\n", p.ID)
		wt := newTable(w)
		wt.Header("WEAPON", "KILLS", "SHARE")
		for _, wk := range p.Weapons {
			wt.Append(wk.Weapon, strconv.Itoa(wk.Kills), fmt.Sprintf("%.0f%%", 100*float64(wk.Kills)/float64(p.Kills)))
		}
		wt.Render()
	}
}
