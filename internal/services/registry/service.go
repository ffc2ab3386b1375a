package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/rpsarbiter/internal/model"
)

// RegisterResult distinguishes the successful outcomes of Register
type RegisterResult int

const (
	// Created means the name was new
	Created RegisterResult = iota
	// AlreadyRegistered means the name was known before this call
	AlreadyRegistered
	// RaceLost means a concurrent Register for the same name won the insert
	RaceLost
)

// Service is the concurrent map of player name to player record.
// Players are created by Register and never removed.
type Service struct {
	mu      sync.RWMutex
	players map[string]*model.Player
}

// New creates an empty registry
func New() *Service {
	return &Service{players: make(map[string]*model.Player)}
}

// Register inserts name if absent. Re-registering clears any outstanding
// ping and refreshes liveness.
func (s *Service) Register(name string, at time.Time) RegisterResult {
	s.mu.RLock()
	existing, ok := s.players[name]
	s.mu.RUnlock()
	if ok {
		existing.SetPingOutstanding(false)
		existing.Touch(at)
		return AlreadyRegistered
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.players[name]; ok {
		existing.SetPingOutstanding(false)
		existing.Touch(at)
		return RaceLost
	}
	s.players[name] = model.NewPlayer(name, at)
	return Created
}

// Touch records communication from name, returning nil for unknown names
func (s *Service) Touch(name string, at time.Time) *model.Player {
	p := s.Lookup(name)
	if p != nil {
		p.Touch(at)
	}
	return p
}

// Lookup returns the player record or nil
func (s *Service) Lookup(name string) *model.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players[name]
}

// Exists reports whether name is registered
func (s *Service) Exists(name string) bool {
	return s.Lookup(name) != nil
}

// Len returns the number of registered players
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Snapshot returns every player sorted by name. The registry lock is only
// held while copying.
func (s *Service) Snapshot() []*model.Player {
	s.mu.RLock()
	players := make([]*model.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	s.mu.RUnlock()

	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })
	return players
}

// Leaderboard returns up to limit player stats ordered by score, then wins,
// then name. A non-positive limit returns everyone.
func (s *Service) Leaderboard(limit int) []model.PlayerStats {
	players := s.Snapshot()
	stats := make([]model.PlayerStats, len(players))
	for i, p := range players {
		stats[i] = p.Stats()
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Score != stats[j].Score {
			return stats[i].Score > stats[j].Score
		}
		if stats[i].Wins != stats[j].Wins {
			return stats[i].Wins > stats[j].Wins
		}
		return stats[i].Name < stats[j].Name
	})

	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}
