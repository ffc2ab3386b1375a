package handler

import (
	"net/http"

	"github.com/mcoot/rpsarbiter/internal/api/response"
	"github.com/mcoot/rpsarbiter/internal/services/match"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

// HealthHandler reports liveness and a few state counters
type HealthHandler struct {
	identity string
	registry *registry.Service
	matches  *match.Service
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(identity string, registry *registry.Service, matches *match.Service) *HealthHandler {
	return &HealthHandler{identity: identity, registry: registry, matches: matches}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:      "ok",
		Identity:    h.identity,
		Players:     h.registry.Len(),
		Matches:     h.matches.Len(),
		OpenMatches: len(h.matches.Open()),
	})
}
