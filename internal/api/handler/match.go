package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/rpsarbiter/internal/api/response"
	"github.com/mcoot/rpsarbiter/internal/eventid"
	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/services/match"
)

// MatchHandler handles match endpoints
type MatchHandler struct {
	codec   *eventid.Codec
	matches *match.Service
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(codec *eventid.Codec, matches *match.Service) *MatchHandler {
	return &MatchHandler{
		codec:   codec,
		matches: matches,
	}
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.codec.Valid(id) {
		WriteError(w, model.ErrInvalidEventID)
		return
	}

	m, err := h.matches.Get(model.MatchID(id))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m.View()))
}
