package dispatch

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mcoot/rpsarbiter/internal/dependencies/clock"
	"github.com/mcoot/rpsarbiter/internal/eventid"
	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/services/match"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

// Request is one parsed protocol line
type Request struct {
	EventID string
	Sender  string
	Command string
	Args    []string
	// At is the time embedded in EventID, so replaying a line sees the
	// same time it saw live
	At time.Time
}

// Reply is a line to send to a single target
type Reply struct {
	To   string
	Text string
}

// Result is everything a handled line produced
type Result struct {
	Replies []Reply
	Events  []model.Event
}

func (r *Result) reply(to, text string) {
	r.Replies = append(r.Replies, Reply{To: to, Text: text})
}

func (r *Result) emit(e model.Event) {
	r.Events = append(r.Events, e)
}

// Handler handles one command
type Handler func(req Request) Result

// Config holds dispatcher settings
type Config struct {
	// Identity is the only sender allowed to issue NEWMATCH, RESULTMATCH
	// and PING
	Identity string
	// LeaderboardSize is how many entries LEADERBOARD returns
	LeaderboardSize int
}

// DefaultConfig returns default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		Identity:        "user02ae4f8be6",
		LeaderboardSize: 10,
	}
}

// Service maps protocol lines to state transitions and reply lines
type Service struct {
	codec    *eventid.Codec
	registry *registry.Service
	matches  *match.Service
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config

	handlers map[string]Handler
}

// New creates a dispatcher with the full command table
func New(codec *eventid.Codec, registry *registry.Service, matches *match.Service, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Identity == "" {
		cfg.Identity = def.Identity
	}
	if cfg.LeaderboardSize == 0 {
		cfg.LeaderboardSize = def.LeaderboardSize
	}

	s := &Service{
		codec:    codec,
		registry: registry,
		matches:  matches,
		clock:    clock,
		logger:   logger.With(slog.String("component", "dispatch")),
		cfg:      cfg,
	}
	s.handlers = map[string]Handler{
		"REGISTER":    s.handleRegister,
		"HI":          s.handleHi,
		"PONG":        s.handlePong,
		"STAT":        s.handleStat,
		"LISTMATCHES": s.handleListMatches,
		"LEADERBOARD": s.handleLeaderboard,
		"MATCHLOG":    s.handleMatchLog,
		"MATCH":       s.handleMatch,
		"NEWMATCH":    s.handleNewMatch,
		"RESULTMATCH": s.handleResultMatch,
		"PING":        s.handlePing,
	}
	return s
}

// Identity returns the trusted sender identity
func (s *Service) Identity() string {
	return s.cfg.Identity
}

// Dispatch handles one protocol line. It never fails: malformed lines,
// unknown commands and handler panics all produce an empty Result.
func (s *Service) Dispatch(line string) (res Result) {
	eventID, sender, text, ok := ParseLine(line)
	if !ok {
		return Result{}
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Result{}
	}
	handler, ok := s.handlers[tokens[0]]
	if !ok {
		return Result{}
	}

	at, ok := s.codec.When(eventID)
	if !ok {
		at = s.clock.Now()
	}
	req := Request{
		EventID: eventID,
		Sender:  sender,
		Command: tokens[0],
		Args:    tokens[1:],
		At:      at,
	}

	s.logger.Debug("dispatching line",
		slog.String("event_id", eventID),
		slog.String("sender", sender),
		slog.String("command", req.Command),
	)

	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("handler panic",
				slog.String("event_id", eventID),
				slog.String("command", req.Command),
				slog.Any("error", err),
				slog.String("stack", string(debug.Stack())),
			)
			res = Result{}
		}
	}()

	// Any line from a known player counts as communication
	s.registry.Touch(sender, at)

	return handler(req)
}

func (s *Service) trusted(req Request) bool {
	return req.Sender == s.cfg.Identity
}

func (s *Service) event(req Request, typ model.EventType, matchID model.MatchID, player string, payload any) model.Event {
	return model.Event{
		Type:      typ,
		Timestamp: req.At,
		EventID:   req.EventID,
		MatchID:   matchID,
		Player:    player,
		Payload:   payload,
	}
}

// FormatStats renders a player's record for STAT
func FormatStats(st model.PlayerStats) string {
	return fmt.Sprintf("WINS %d LOSSES %d TIES %d SCORE %.3f", st.Wins, st.Losses, st.Ties, st.Score)
}

// FormatLeaderboardEntry renders one LEADERBOARD line
func FormatLeaderboardEntry(rank int, st model.PlayerStats) string {
	return fmt.Sprintf("%d. %s %.3f (%d/%d/%d)", rank, st.Name, st.Score, st.Wins, st.Losses, st.Ties)
}

// FormatResult renders the line announcing a resolved match
func FormatResult(id model.MatchID, outcome model.Outcome) string {
	return fmt.Sprintf("RESULT %s %s", id, outcome)
}
