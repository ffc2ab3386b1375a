package match

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

type ServiceSuite struct {
	suite.Suite
	registry *registry.Service
	service  *Service
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.registry = registry.New()
	s.service = New(s.registry, DefaultConfig())
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s.registry.Register("alice", s.now)
	s.registry.Register("bob", s.now)
}

func (s *ServiceSuite) create(id string) *model.Match {
	m, err := s.service.Create(model.MatchID(id), "DEMO", "alice", "bob", s.now)
	s.Require().NoError(err)
	return m
}

func (s *ServiceSuite) player(name string) *model.Player {
	p := s.registry.Lookup(name)
	s.Require().NotNil(p)
	return p
}

// Create tests

func (s *ServiceSuite) TestCreateTracksOpenMatches() {
	s.create("m1")

	s.Equal([]model.MatchID{"m1"}, s.player("alice").OpenMatches())
	s.Equal([]model.MatchID{"m1"}, s.player("bob").OpenMatches())
	s.Len(s.service.Open(), 1)
}

func (s *ServiceSuite) TestCreateRequiresRegisteredPlayers() {
	_, err := s.service.Create("m1", "DEMO", "alice", "ghost", s.now)
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.Equal(0, s.service.Len())
}

func (s *ServiceSuite) TestCreateRejectsSelfMatch() {
	_, err := s.service.Create("m1", "DEMO", "alice", "alice", s.now)
	s.ErrorIs(err, model.ErrSamePlayer)
}

func (s *ServiceSuite) TestCreateRejectsDuplicateID() {
	s.create("m1")
	_, err := s.service.Create("m1", "DEMO", "alice", "bob", s.now)
	s.ErrorIs(err, model.ErrMatchExists)
}

func (s *ServiceSuite) TestCreateRaceWithResolveLeavesNoOpenEntry() {
	for i := 0; i < 200; i++ {
		id := model.MatchID(fmt.Sprintf("race-%d", i))
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, err := s.service.Get(id); err == nil {
					_, _, _, _ = s.service.ApplyResult(id, model.Outcome{Kind: model.OutcomeTie})
					return
				}
				runtime.Gosched()
			}
		}()

		_, err := s.service.Create(id, "DEMO", "alice", "bob", s.now)
		s.Require().NoError(err)
		<-done
	}

	s.Equal(0, s.player("alice").OpenMatchCount())
	s.Equal(0, s.player("bob").OpenMatchCount())
	s.Equal(int64(200), s.player("alice").Ties())
}

func (s *ServiceSuite) TestDuplicateCreateKeepsOneOpenEntry() {
	s.create("m1")
	_, err := s.service.Create("m1", "DEMO", "alice", "bob", s.now)
	s.Require().ErrorIs(err, model.ErrMatchExists)

	_, _, ok, err := s.service.ApplyResult("m1", model.Outcome{Kind: model.OutcomeTie})
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(0, s.player("alice").OpenMatchCount())
}

// SubmitMove tests

func (s *ServiceSuite) TestSubmitMoveUnknownMatch() {
	_, err := s.service.SubmitMove("nope", "alice", model.MoveRock)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *ServiceSuite) TestSubmitMoveNotInMatch() {
	s.registry.Register("carol", s.now)
	s.create("m1")

	_, err := s.service.SubmitMove("m1", "carol", model.MoveRock)
	s.ErrorIs(err, model.ErrNotInMatch)
}

func (s *ServiceSuite) TestSecondMoveRejectedAndFirstKept() {
	m := s.create("m1")

	_, err := s.service.SubmitMove("m1", "alice", model.MoveRock)
	s.Require().NoError(err)
	_, err = s.service.SubmitMove("m1", "alice", model.MovePaper)
	s.ErrorIs(err, model.ErrAlreadyMoved)

	s.Equal(model.MoveRock, m.View().Move1)
}

func (s *ServiceSuite) TestSubmitAfterResolveRejected() {
	m := s.create("m1")
	s.service.TryResolve(m, s.now.Add(time.Hour))

	_, err := s.service.SubmitMove("m1", "alice", model.MoveRock)
	s.ErrorIs(err, model.ErrMatchResolved)
}

// Resolution tests

func (s *ServiceSuite) TestRockBeatsScissors() {
	m := s.create("m1")
	_, _ = s.service.SubmitMove("m1", "alice", model.MoveRock)
	_, _ = s.service.SubmitMove("m1", "bob", model.MoveScissors)

	outcome, ok := s.service.TryResolve(m, s.now)
	s.Require().True(ok)
	s.Equal(model.Win("alice", model.ReasonMoves), outcome)
	s.Equal("WIN alice", outcome.String())

	s.Equal(int64(1), s.player("alice").Wins())
	s.Equal(int64(1), s.player("bob").Losses())
	s.Empty(s.player("alice").OpenMatches())
	s.Empty(s.player("bob").OpenMatches())
	s.Empty(s.service.Open())
}

func (s *ServiceSuite) TestAllMovePairs() {
	for _, a := range model.Moves {
		for _, b := range model.Moves {
			outcome := Compare("p1", a, "p2", b)

			p1Wins := outcome.Kind == model.OutcomeWin && outcome.Winner == "p1"
			p2Wins := outcome.Kind == model.OutcomeWin && outcome.Winner == "p2"
			tie := outcome.Kind == model.OutcomeTie

			count := 0
			for _, v := range []bool{p1Wins, p2Wins, tie} {
				if v {
					count++
				}
			}
			s.Equal(1, count, "%s vs %s", a, b)
			s.Equal(a == b, tie, "%s vs %s", a, b)
			s.Equal(a.Beats(b), p1Wins, "%s vs %s", a, b)
		}
	}
	s.True(model.MoveRock.Beats(model.MoveScissors))
	s.True(model.MoveScissors.Beats(model.MovePaper))
	s.True(model.MovePaper.Beats(model.MoveRock))
}

func (s *ServiceSuite) TestEqualMovesTie() {
	m := s.create("m1")
	_, _ = s.service.SubmitMove("m1", "alice", model.MovePaper)
	_, _ = s.service.SubmitMove("m1", "bob", model.MovePaper)

	outcome, ok := s.service.TryResolve(m, s.now)
	s.Require().True(ok)
	s.Equal("TIE", outcome.String())
	s.Equal(int64(1), s.player("alice").Ties())
	s.Equal(int64(1), s.player("bob").Ties())
}

func (s *ServiceSuite) TestUndecidedBeforeTimeout() {
	m := s.create("m1")
	_, _ = s.service.SubmitMove("m1", "alice", model.MoveRock)

	_, ok := s.service.TryResolve(m, s.now.Add(59*time.Second))
	s.False(ok)
	s.False(m.Resolved())
}

func (s *ServiceSuite) TestTimeoutWithNoMovesTies() {
	m := s.create("m1")

	outcome, ok := s.service.TryResolve(m, s.now.Add(60*time.Second))
	s.Require().True(ok)
	s.Equal(model.Tie(model.ReasonTimeout), outcome)
	s.Equal(model.OutcomeTie, outcome.Kind)
}

func (s *ServiceSuite) TestTimeoutAwardsPlayerWhoMoved() {
	m := s.create("m1")
	_, _ = s.service.SubmitMove("m1", "bob", model.MoveScissors)

	outcome, ok := s.service.TryResolve(m, s.now.Add(61*time.Second))
	s.Require().True(ok)
	s.Equal("WIN bob TIMEOUT", outcome.String())
	s.Equal(int64(1), s.player("bob").Wins())
	s.Equal(int64(1), s.player("alice").Losses())
}

func (s *ServiceSuite) TestForfeitWhenOnePlayerAbsent() {
	// A fresh registry without bob stands in for a player that vanished
	reg := registry.New()
	reg.Register("alice", s.now)
	reg.Register("bob", s.now)
	svc := New(reg, DefaultConfig())
	m, err := svc.Create("m1", "DEMO", "alice", "bob", s.now)
	s.Require().NoError(err)
	_, _ = svc.SubmitMove("m1", "bob", model.MoveRock)

	gone := registry.New()
	gone.Register("alice", s.now)
	svc.registry = gone

	outcome, ok := svc.TryResolve(m, s.now)
	s.Require().True(ok)
	s.Equal(model.Win("alice", model.ReasonForfeit), outcome)
	s.Equal(int64(1), gone.Lookup("alice").Wins())
}

func (s *ServiceSuite) TestForfeitWhenBothAbsent() {
	m := s.create("m1")
	s.service.registry = registry.New()

	outcome, ok := s.service.TryResolve(m, s.now)
	s.Require().True(ok)
	s.Equal("TIE FORFEIT", outcome.String())
}

func (s *ServiceSuite) TestResolveIsIdempotent() {
	m := s.create("m1")
	_, _ = s.service.SubmitMove("m1", "alice", model.MoveRock)
	_, _ = s.service.SubmitMove("m1", "bob", model.MoveScissors)

	first, ok := s.service.TryResolve(m, s.now)
	s.Require().True(ok)

	for i := 0; i < 5; i++ {
		again, ok := s.service.TryResolve(m, s.now.Add(time.Hour))
		s.False(ok)
		s.Equal(first, again)
	}
	s.Equal(int64(1), s.player("alice").Wins())
	s.Equal(int64(1), s.player("bob").Losses())
	s.Equal(first, m.View().Outcome)
}

func (s *ServiceSuite) TestConcurrentResolveCountsOnce() {
	m := s.create("m1")
	_, _ = s.service.SubmitMove("m1", "alice", model.MoveRock)
	_, _ = s.service.SubmitMove("m1", "bob", model.MoveScissors)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.service.TryResolve(m, s.now); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(int64(1), s.player("alice").Wins())
}

func (s *ServiceSuite) TestConcurrentMatchesShareCounters() {
	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := model.MatchID(fmt.Sprintf("m%d", i))
		m, err := s.service.Create(id, "DEMO", "alice", "bob", s.now)
		s.Require().NoError(err)
		_, _ = s.service.SubmitMove(id, "alice", model.MovePaper)
		_, _ = s.service.SubmitMove(id, "bob", model.MoveRock)

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.service.TryResolve(m, s.now)
		}()
	}
	wg.Wait()

	s.Equal(int64(n), s.player("alice").Wins())
	s.Equal(int64(n), s.player("bob").Losses())
}

func (s *ServiceSuite) TestEvaluateDoesNotResolve() {
	m := s.create("m1")

	outcome, ok := s.service.Evaluate(m, s.now.Add(time.Minute))
	s.True(ok)
	s.Equal(model.Tie(model.ReasonTimeout), outcome)
	s.False(m.Resolved())
	s.Equal(int64(0), s.player("alice").Ties())
}

// ApplyResult tests

func (s *ServiceSuite) TestApplyResult() {
	s.create("m1")

	m, outcome, ok, err := s.service.ApplyResult("m1", model.Win("bob", model.ReasonTimeout))
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("WIN bob TIMEOUT", outcome.String())
	s.True(m.Resolved())
	s.Equal(int64(1), s.player("bob").Wins())
}

func (s *ServiceSuite) TestApplyResultOnceOnly() {
	m := s.create("m1")
	_, _ = s.service.SubmitMove("m1", "alice", model.MoveRock)
	_, _ = s.service.SubmitMove("m1", "bob", model.MoveScissors)
	s.service.TryResolve(m, s.now)

	_, outcome, ok, err := s.service.ApplyResult("m1", model.Win("bob", model.ReasonMoves))
	s.Require().NoError(err)
	s.False(ok)
	s.Equal("alice", outcome.Winner)
	s.Equal(int64(0), s.player("bob").Wins())
}

func (s *ServiceSuite) TestApplyResultRejectsOutsider() {
	s.create("m1")
	_, _, _, err := s.service.ApplyResult("m1", model.Win("mallory", model.ReasonMoves))
	s.ErrorIs(err, model.ErrInvalidOutcome)
}

func (s *ServiceSuite) TestForPlayer() {
	s.registry.Register("carol", s.now)
	s.create("m1")
	_, err := s.service.Create("m2", "DEMO", "alice", "carol", s.now.Add(time.Second))
	s.Require().NoError(err)

	s.Len(s.service.ForPlayer("alice"), 2)
	s.Len(s.service.ForPlayer("bob"), 1)
	s.Empty(s.service.ForPlayer("nobody"))
}
