package match

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

// Config holds match engine settings
type Config struct {
	// Timeout is how long a match may wait for moves before the sweep
	// resolves it
	Timeout time.Duration
}

// DefaultConfig returns default match configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 60 * time.Second,
	}
}

// Service owns the canonical match records and applies resolutions to the
// player registry
type Service struct {
	registry *registry.Service
	timeout  time.Duration

	mu      sync.RWMutex
	matches map[model.MatchID]*model.Match
}

// New creates a new match Service
func New(registry *registry.Service, cfg Config) *Service {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Service{
		registry: registry,
		timeout:  cfg.Timeout,
		matches:  make(map[model.MatchID]*model.Match),
	}
}

// Timeout returns the configured move window
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// Create opens a match between two registered players and records it in
// both players' open sets
func (s *Service) Create(id model.MatchID, mode, player1, player2 string, at time.Time) (*model.Match, error) {
	if player1 == player2 {
		return nil, model.ErrSamePlayer
	}
	p1 := s.registry.Lookup(player1)
	p2 := s.registry.Lookup(player2)
	if p1 == nil || p2 == nil {
		return nil, model.ErrPlayerNotFound
	}

	m := model.NewMatch(id, mode, player1, player2, at)

	// Open sets are filled before the match becomes visible, so a resolution
	// can never remove the entries before they are added
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.matches[id]; exists {
		return nil, model.ErrMatchExists
	}
	p1.AddOpenMatch(id)
	p2.AddOpenMatch(id)
	s.matches[id] = m
	return m, nil
}

// Get returns a match by id
func (s *Service) Get(id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return m, nil
}

// SubmitMove records a player's move. The first move per player wins;
// a repeat returns model.ErrAlreadyMoved and leaves the first in place.
func (s *Service) SubmitMove(id model.MatchID, player string, move model.Move) (*model.Match, error) {
	m, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := m.Submit(player, move); err != nil {
		return m, err
	}
	return m, nil
}

// Evaluate reports the outcome the match would resolve to at now, without
// resolving it
func (s *Service) Evaluate(m *model.Match, now time.Time) (model.Outcome, bool) {
	v := m.View()
	if v.Resolved {
		return model.Outcome{}, false
	}
	return s.decide(v, now)
}

// TryResolve resolves the match if it is decided at now. It returns true
// only for the call that performed the resolution; counters are applied
// exactly once.
func (s *Service) TryResolve(m *model.Match, now time.Time) (model.Outcome, bool) {
	outcome, ok := m.Resolve(func(v model.MatchView) (model.Outcome, bool) {
		return s.decide(v, now)
	})
	if ok {
		s.apply(m, outcome)
	}
	return outcome, ok
}

// ApplyResult resolves a match to an externally decided outcome. It
// returns false with the existing outcome if the match was already
// resolved.
func (s *Service) ApplyResult(id model.MatchID, outcome model.Outcome) (*model.Match, model.Outcome, bool, error) {
	m, err := s.Get(id)
	if err != nil {
		return nil, model.Outcome{}, false, err
	}
	if outcome.Kind == model.OutcomeWin && m.Opponent(outcome.Winner) == "" {
		return m, model.Outcome{}, false, model.ErrInvalidOutcome
	}

	applied, ok := m.Resolve(func(model.MatchView) (model.Outcome, bool) {
		return outcome, true
	})
	if ok {
		s.apply(m, applied)
	}
	return m, applied, ok, nil
}

// decide implements the resolution precedence: forfeits by absence first,
// then the moves, then the timeout
func (s *Service) decide(v model.MatchView, now time.Time) (model.Outcome, bool) {
	has1 := s.registry.Exists(v.Player1)
	has2 := s.registry.Exists(v.Player2)

	switch {
	case !has1 && !has2:
		return model.Tie(model.ReasonForfeit), true
	case !has1:
		return model.Win(v.Player2, model.ReasonForfeit), true
	case !has2:
		return model.Win(v.Player1, model.ReasonForfeit), true
	}

	if v.Move1 != "" && v.Move2 != "" {
		return Compare(v.Player1, v.Move1, v.Player2, v.Move2), true
	}

	if now.Sub(v.CreatedAt) >= s.timeout {
		switch {
		case v.Move1 != "":
			return model.Win(v.Player1, model.ReasonTimeout), true
		case v.Move2 != "":
			return model.Win(v.Player2, model.ReasonTimeout), true
		default:
			return model.Tie(model.ReasonTimeout), true
		}
	}
	return model.Outcome{}, false
}

// Compare applies the beats-relation to two moves
func Compare(player1 string, move1 model.Move, player2 string, move2 model.Move) model.Outcome {
	switch {
	case move1.Beats(move2):
		return model.Win(player1, model.ReasonMoves)
	case move2.Beats(move1):
		return model.Win(player2, model.ReasonMoves)
	default:
		return model.Tie(model.ReasonMoves)
	}
}

// apply updates counters and open sets. Called once per match, right after
// the one-shot transition.
func (s *Service) apply(m *model.Match, outcome model.Outcome) {
	p1 := s.registry.Lookup(m.Player1)
	p2 := s.registry.Lookup(m.Player2)

	switch outcome.Kind {
	case model.OutcomeWin:
		winner, loser := p1, p2
		if outcome.Winner == m.Player2 {
			winner, loser = p2, p1
		}
		if winner != nil {
			winner.RecordWin()
		}
		if loser != nil {
			loser.RecordLoss()
		}
	case model.OutcomeTie:
		if p1 != nil {
			p1.RecordTie()
		}
		if p2 != nil {
			p2.RecordTie()
		}
	}

	if p1 != nil {
		p1.RemoveOpenMatch(m.ID)
	}
	if p2 != nil {
		p2.RemoveOpenMatch(m.ID)
	}
}

// Open returns every unresolved match, oldest first
func (s *Service) Open() []*model.Match {
	s.mu.RLock()
	matches := make([]*model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		matches = append(matches, m)
	}
	s.mu.RUnlock()

	open := matches[:0]
	for _, m := range matches {
		if !m.Resolved() {
			open = append(open, m)
		}
	}
	sortByCreation(open)
	return open
}

// ForPlayer returns every match the player took part in, oldest first
func (s *Service) ForPlayer(name string) []*model.Match {
	s.mu.RLock()
	var matches []*model.Match
	for _, m := range s.matches {
		if m.Player1 == name || m.Player2 == name {
			matches = append(matches, m)
		}
	}
	s.mu.RUnlock()

	sortByCreation(matches)
	return matches
}

// Len returns the number of known matches
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

func sortByCreation(matches []*model.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
}
