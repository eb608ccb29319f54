package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pable/s2-analytics/internal/rolling"
	"github.com/pable/s2-analytics/internal/storage"
)

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (h *handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Errorw("request failed", "path", r.URL.Path, "error", err)
	errorResponse(w, http.StatusInternalServerError, "internal error")
}

// intParam returns def when the parameter is absent and ok=false when it is
// not a non-negative integer.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

type overviewResponse struct {
	FirstGame        string         `json:"first_game,omitempty"`
	LastGame         string         `json:"last_game,omitempty"`
	TotalGames       int            `json:"total_games"`
	TotalRounds      int            `json:"total_rounds"`
	TaggedTeamRounds int            `json:"tagged_team_rounds"`
	GamesByPlaylist  map[string]int `json:"games_by_playlist"`
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.Overview()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	resp := overviewResponse{
		TotalGames:       o.TotalGames,
		TotalRounds:      o.TotalRounds,
		TaggedTeamRounds: o.TaggedTeamRounds,
		GamesByPlaylist:  make(map[string]int, len(o.GamesByPlaylist)),
	}
	if o.TotalGames > 0 {
		resp.FirstGame = o.FirstGame.Format("2006-01-02T15:04:05Z07:00")
		resp.LastGame = o.LastGame.Format("2006-01-02T15:04:05Z07:00")
	}
	for _, pc := range o.GamesByPlaylist {
		resp.GamesByPlaylist[pc.Playlist] = pc.Games
	}
	jsonResponse(w, http.StatusOK, resp)
}

type matchResponse struct {
	ID            int64  `json:"id"`
	Date          string `json:"date"`
	Playlist      string `json:"playlist"`
	RedRoundWins  int    `json:"red_round_wins"`
	BlueRoundWins int    `json:"blue_round_wins"`
	Winner        string `json:"winner,omitempty"`
	Rounds        int    `json:"rounds"`
}

func (h *handler) matches(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", 50)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	list, err := h.store.ListMatches(limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	out := make([]matchResponse, 0, len(list))
	for _, m := range list {
		out = append(out, matchResponse{
			ID:            m.ID,
			Date:          m.Date,
			Playlist:      m.PlaylistCode,
			RedRoundWins:  m.RedRoundWins,
			BlueRoundWins: m.BlueRoundWins,
			Winner:        m.Winner,
			Rounds:        m.Rounds,
		})
	}
	jsonResponse(w, http.StatusOK, out)
}

func (h *handler) correlations(w http.ResponseWriter, r *http.Request) {
	corr, err := h.engine.WinCorrelation(strings.ToLower(r.URL.Query().Get("map")))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, corr)
}

func (h *handler) correlationsPerMap(w http.ResponseWriter, r *http.Request) {
	perMap, err := h.engine.WinCorrelationPerMap()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, perMap)
}

type mapSample struct {
	Correlation float64 `json:"correlation"`
	Samples     int     `json:"samples"`
}

type tagCorrelationResponse struct {
	Tag          string               `json:"tag"`
	TotalSamples int                  `json:"total_samples"`
	Maps         map[string]mapSample `json:"maps"`
}

func (h *handler) tagCorrelations(w http.ResponseWriter, r *http.Request) {
	minSamples, ok := intParam(r, "min_samples", 0)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "min_samples must be a non-negative integer")
		return
	}
	tc, err := h.engine.ForTag(chi.URLParam(r, "tag"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	tc = tc.Filter(minSamples)

	resp := tagCorrelationResponse{
		Tag:          tc.Tag(),
		TotalSamples: tc.TotalSamples(),
		Maps:         make(map[string]mapSample),
	}
	for _, m := range tc.Maps() {
		resp.Maps[m] = mapSample{Correlation: tc.Correlation(m), Samples: tc.SampleCount(m)}
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (h *handler) tagCounts(w http.ResponseWriter, r *http.Request) {
	q := storage.TagQuery{Map: strings.ToLower(r.URL.Query().Get("map"))}
	if r.URL.Query().Get("outcome") != "true" {
		q.Filter = storage.WithoutOutcome
	}
	counts, err := h.store.TagCounts(q)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, counts)
}

type point struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

func (h *handler) usage(w http.ResponseWriter, r *http.Request) {
	weapons := h.weapons
	if raw := r.URL.Query().Get("weapons"); raw != "" {
		weapons = strings.Split(raw, ",")
	}
	if len(weapons) == 0 {
		errorResponse(w, http.StatusBadRequest, "no weapons selected")
		return
	}
	window, ok1 := intParam(r, "window", h.trend.WindowDays)
	minDays, ok2 := intParam(r, "min_days", h.trend.MinDaysForAverage())
	days, ok3 := intParam(r, "days", h.trend.TotalDaysVisible())
	if !ok1 || !ok2 || !ok3 || window == 0 {
		errorResponse(w, http.StatusBadRequest, "invalid window parameters")
		return
	}

	totals, err := h.store.UsageTotals()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	pct := rolling.Percentages(rolling.DailyUsage(totals.Sums, totals.Rounds, weapons), weapons)
	series, err := rolling.Rolling(pct, weapons, window, minDays, days)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	out := make(map[string][]point, len(series))
	for weapon, points := range series {
		ps := make([]point, 0, len(points))
		for _, p := range points {
			pt := point{Date: p.Date.Format("2006-01-02")}
			if p.Valid {
				v := p.Value
				pt.Value = &v
			}
			ps = append(ps, pt)
		}
		out[weapon] = ps
	}
	jsonResponse(w, http.StatusOK, out)
}
