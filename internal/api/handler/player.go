package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/rpsarbiter/internal/api/response"
	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/services/match"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

// maxLeaderboardLimit bounds ?limit= on the leaderboard
const maxLeaderboardLimit = 1000

// PlayerHandler handles player and leaderboard endpoints
type PlayerHandler struct {
	registry     *registry.Service
	matches      *match.Service
	defaultLimit int
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(registry *registry.Service, matches *match.Service, defaultLimit int) *PlayerHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &PlayerHandler{
		registry:     registry,
		matches:      matches,
		defaultLimit: defaultLimit,
	}
}

// Get handles GET /api/v1/players/{name}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := h.registry.Lookup(mux.Vars(r)["name"])
	if p == nil {
		WriteError(w, model.ErrPlayerNotFound)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerStatsFromModel(p.Stats()))
}

// Matches handles GET /api/v1/players/{name}/matches
func (h *PlayerHandler) Matches(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !h.registry.Exists(name) {
		WriteError(w, model.ErrPlayerNotFound)
		return
	}

	matches := h.matches.ForPlayer(name)
	out := response.MatchList{Player: name, Matches: make([]response.Match, len(matches))}
	for i, m := range matches {
		out.Matches[i] = response.MatchFromModel(m.View())
	}
	response.JSON(w, http.StatusOK, out)
}

// Leaderboard handles GET /api/v1/leaderboard?limit=N
func (h *PlayerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", h.defaultLimit, 1, maxLeaderboardLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(h.registry.Leaderboard(limit)))
}
