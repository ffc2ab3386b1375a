package matchmaker

import (
	"sync"
	"time"

	"github.com/mcoot/rpsarbiter/internal/dependencies/random"
	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

// Config holds matchmaking settings
type Config struct {
	// Interval is the minimum time between successful pairings
	Interval time.Duration
	// LivenessWindow is how recently a player must have spoken to be paired
	LivenessWindow time.Duration
	// MaxOpenMatches caps concurrent unresolved matches per player
	MaxOpenMatches int
}

// DefaultConfig returns default matchmaking configuration
func DefaultConfig() Config {
	return Config{
		Interval:       3 * time.Second,
		LivenessWindow: 20 * time.Second,
		MaxOpenMatches: 2,
	}
}

// Pairing is a proposed match between two players
type Pairing struct {
	Player1 string
	Player2 string
}

// Service picks two eligible players at random, at most once per interval
type Service struct {
	registry *registry.Service
	random   random.Random
	cfg      Config

	mu   sync.Mutex
	last time.Time
}

// New creates a new matchmaker
func New(registry *registry.Service, random random.Random, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.LivenessWindow == 0 {
		cfg.LivenessWindow = def.LivenessWindow
	}
	if cfg.MaxOpenMatches == 0 {
		cfg.MaxOpenMatches = def.MaxOpenMatches
	}
	return &Service{
		registry: registry,
		random:   random,
		cfg:      cfg,
	}
}

// Candidates returns the players eligible for a new match at now, sorted
// by name
func (s *Service) Candidates(now time.Time) []*model.Player {
	var eligible []*model.Player
	for _, p := range s.registry.Snapshot() {
		if p.Alive(now, s.cfg.LivenessWindow) && p.OpenMatchCount() < s.cfg.MaxOpenMatches {
			eligible = append(eligible, p)
		}
	}
	return eligible
}

// Next proposes a pairing if the interval has elapsed since the last one
// and at least two players are eligible. A successful proposal restarts
// the interval.
func (s *Service) Next(now time.Time) (Pairing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.last.IsZero() && now.Sub(s.last) < s.cfg.Interval {
		return Pairing{}, false
	}

	candidates := s.Candidates(now)
	if len(candidates) < 2 {
		return Pairing{}, false
	}

	random.Shuffle(s.random, candidates)
	s.last = now
	return Pairing{Player1: candidates[0].Name, Player2: candidates[1].Name}, true
}
