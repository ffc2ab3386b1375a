package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/rpsarbiter/internal/dependencies/clock"
	"github.com/mcoot/rpsarbiter/internal/eventid"
	"github.com/mcoot/rpsarbiter/internal/notify"
	"github.com/mcoot/rpsarbiter/internal/services/dispatch"
	"github.com/mcoot/rpsarbiter/internal/services/match"
	"github.com/mcoot/rpsarbiter/internal/services/matchmaker"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
	"github.com/mcoot/rpsarbiter/internal/storage"
)

// Sender delivers a reply line to one chat identity
type Sender interface {
	SendLine(ctx context.Context, target, text string) error
}

// Config holds arbiter settings
type Config struct {
	// Identity is the arbiter's own chat identity. Only lines addressed to
	// it are recorded, and it is the sender of every synthetic line.
	Identity string
	// Mode labels new matches
	Mode string
	// SweepInterval is the period of the matchmaking/ping/resolution sweep
	SweepInterval time.Duration
	// PingAfter is how long a player may stay silent before being pinged
	PingAfter time.Duration
}

// DefaultConfig returns default arbiter configuration
func DefaultConfig() Config {
	return Config{
		Identity:      dispatch.DefaultConfig().Identity,
		Mode:          "DEMO",
		SweepInterval: 100 * time.Millisecond,
		PingAfter:     10 * time.Second,
	}
}

// Service records every line in the replay log before dispatching it,
// delivers replies and events, and runs the periodic sweep
type Service struct {
	log        storage.Log
	codec      *eventid.Codec
	dispatcher *dispatch.Service
	registry   *registry.Service
	matches    *match.Service
	matchmaker *matchmaker.Service
	sender     Sender
	publisher  notify.Publisher
	clock      clock.Clock
	logger     *slog.Logger
	cfg        Config

	// sweepMu keeps ticks from overlapping when Tick is also called directly
	sweepMu sync.Mutex
	ordering orderingLocks
}

// Deps groups the collaborators of an arbiter
type Deps struct {
	Log        storage.Log
	Codec      *eventid.Codec
	Dispatcher *dispatch.Service
	Registry   *registry.Service
	Matches    *match.Service
	Matchmaker *matchmaker.Service
	Sender     Sender
	Publisher  notify.Publisher
	Clock      clock.Clock
	Logger     *slog.Logger
}

// New creates an arbiter
func New(deps Deps, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Identity == "" {
		cfg.Identity = def.Identity
	}
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.PingAfter == 0 {
		cfg.PingAfter = def.PingAfter
	}
	if deps.Publisher == nil {
		deps.Publisher = notify.Nop{}
	}

	return &Service{
		log:        deps.Log,
		codec:      deps.Codec,
		dispatcher: deps.Dispatcher,
		registry:   deps.Registry,
		matches:    deps.Matches,
		matchmaker: deps.Matchmaker,
		sender:     deps.Sender,
		publisher:  deps.Publisher,
		clock:      deps.Clock,
		logger:     deps.Logger.With(slog.String("component", "arbiter")),
		cfg:        cfg,
	}
}

// Identity returns the arbiter's chat identity
func (s *Service) Identity() string {
	return s.cfg.Identity
}

// Record stamps text from sender with a fresh event id, appends the line
// to the replay log and dispatches it. Nothing is dispatched if the
// append fails. Lines on the same match or player are appended and
// dispatched under one ordering lock so a replay applies them in the
// order they were applied live.
func (s *Service) Record(ctx context.Context, sender, text string) (dispatch.Result, error) {
	unlock := s.ordering.lock(orderingKey(sender, text))
	line := dispatch.FormatLine(s.codec.New(), sender, text)
	if err := s.log.Append(ctx, line); err != nil {
		unlock()
		s.logger.Error("append failed", slog.String("sender", sender), slog.String("error", err.Error()))
		return dispatch.Result{}, fmt.Errorf("recording line: %w", err)
	}
	res := s.dispatcher.Dispatch(line)
	unlock()

	s.deliver(ctx, res)
	return res, nil
}

// HandleLine is the transport callback for one inbound chat line
func (s *Service) HandleLine(ctx context.Context, from, to, text string) {
	if to != s.cfg.Identity {
		return
	}
	_, _ = s.Record(ctx, from, text)
}

func (s *Service) deliver(ctx context.Context, res dispatch.Result) {
	for _, r := range res.Replies {
		if r.To == s.cfg.Identity || s.sender == nil {
			continue
		}
		if err := s.sender.SendLine(ctx, r.To, r.Text); err != nil {
			s.logger.Warn("reply not delivered",
				slog.String("to", r.To),
				slog.String("error", err.Error()),
			)
		}
	}
	for _, e := range res.Events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn("event not published",
				slog.String("type", string(e.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Restore rebuilds state by dispatching every logged line in order.
// Replies and events are discarded so nothing reaches the transport.
func (s *Service) Restore(ctx context.Context) (int, error) {
	var count int
	err := s.log.Replay(ctx, func(line string) error {
		s.dispatcher.Dispatch(line)
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("replaying log: %w", err)
	}

	s.logger.Info("state restored",
		slog.Int("lines", count),
		slog.Int("players", s.registry.Len()),
		slog.Int("matches", s.matches.Len()),
	)
	return count, nil
}

// Run ticks the sweep until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep: matchmaking, then pings, then resolutions. Each
// step records synthetic lines through the same path as chat input.
func (s *Service) Tick(ctx context.Context) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	s.matchmake(ctx)
	s.pingSweep(ctx)
	s.resolutionSweep(ctx)
}

func (s *Service) matchmake(ctx context.Context) {
	pairing, ok := s.matchmaker.Next(s.clock.Now())
	if !ok {
		return
	}
	text := fmt.Sprintf("NEWMATCH %s %s %s", s.cfg.Mode, pairing.Player1, pairing.Player2)
	_, _ = s.Record(ctx, s.cfg.Identity, text)
}

func (s *Service) pingSweep(ctx context.Context) {
	now := s.clock.Now()
	for _, p := range s.registry.Snapshot() {
		if p.PingOutstanding() || now.Sub(p.LastSeen()) < s.cfg.PingAfter {
			continue
		}
		_, _ = s.Record(ctx, s.cfg.Identity, "PING "+p.Name)
	}
}

func (s *Service) resolutionSweep(ctx context.Context) {
	now := s.clock.Now()
	for _, m := range s.matches.Open() {
		outcome, ok := s.matches.Evaluate(m, now)
		if !ok {
			continue
		}
		_, _ = s.Record(ctx, s.cfg.Identity, fmt.Sprintf("RESULTMATCH %s %s", m.ID, outcome))
	}
}
