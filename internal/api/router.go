package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/rpsarbiter/internal/api/apierr"
	"github.com/mcoot/rpsarbiter/internal/api/handler"
	"github.com/mcoot/rpsarbiter/internal/eventid"
	"github.com/mcoot/rpsarbiter/internal/middleware"
	"github.com/mcoot/rpsarbiter/internal/services/match"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Identity        string
	Codec           *eventid.Codec
	Registry        *registry.Service
	Matches         *match.Service
	LeaderboardSize int
	// Websocket is mounted at /ws when set
	Websocket http.Handler
}

// apiPrefix is the version prefix of every JSON route
const apiPrefix = "/api/v1"

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewMethodNotAllowedError())
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger, apiPanicHandler))
	r.Use(middleware.Logging(cfg.Logger))

	healthHandler := handler.NewHealthHandler(cfg.Identity, cfg.Registry, cfg.Matches)
	playerHandler := handler.NewPlayerHandler(cfg.Registry, cfg.Matches, cfg.LeaderboardSize)
	matchHandler := handler.NewMatchHandler(cfg.Codec, cfg.Matches)

	// Routes live on the root router: a method mismatch inside a mux
	// subrouter falls through to the root NotFoundHandler instead of 405.
	r.HandleFunc(apiPrefix+"/health", healthHandler.Get).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/leaderboard", playerHandler.Leaderboard).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/players/{name}", playerHandler.Get).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/players/{name}/matches", playerHandler.Matches).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/matches/{id}", matchHandler.Get).Methods(http.MethodGet)

	if cfg.Websocket != nil {
		r.Handle("/ws", cfg.Websocket).Methods(http.MethodGet)
	}

	return r
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
