package matchmaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rpsarbiter/internal/dependencies/mocks"
	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

type ServiceSuite struct {
	suite.Suite
	registry *registry.Service
	random   *mocks.MockRandom
	service  *Service
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.registry = registry.New()
	s.random = mocks.NewMockRandom()
	s.service = New(s.registry, s.random, DefaultConfig())
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) register(names ...string) {
	for _, n := range names {
		s.registry.Register(n, s.now)
	}
}

func (s *ServiceSuite) TestNoPairingWithFewerThanTwo() {
	_, ok := s.service.Next(s.now)
	s.False(ok)

	s.register("alice")
	_, ok = s.service.Next(s.now)
	s.False(ok)
}

func (s *ServiceSuite) TestPairsTwoPlayers() {
	s.register("alice", "bob")

	p, ok := s.service.Next(s.now)
	s.Require().True(ok)
	s.ElementsMatch([]string{"alice", "bob"}, []string{p.Player1, p.Player2})
}

func (s *ServiceSuite) TestShuffleDrivesSelection() {
	s.register("alice", "bob", "carol")
	// Fisher-Yates over [alice bob carol]: i=2 swaps with 0, i=1 swaps with 0
	s.random.QueueIntn(0, 0)

	p, ok := s.service.Next(s.now)
	s.Require().True(ok)
	s.Equal("bob", p.Player1)
	s.Equal("carol", p.Player2)
}

func (s *ServiceSuite) TestIntervalBetweenPairings() {
	s.register("alice", "bob")

	_, ok := s.service.Next(s.now)
	s.Require().True(ok)

	_, ok = s.service.Next(s.now.Add(2 * time.Second))
	s.False(ok)

	_, ok = s.service.Next(s.now.Add(3 * time.Second))
	s.True(ok)
}

func (s *ServiceSuite) TestFailedTickDoesNotRestartInterval() {
	s.register("alice")
	_, ok := s.service.Next(s.now)
	s.False(ok)

	s.register("bob")
	_, ok = s.service.Next(s.now.Add(time.Second))
	s.True(ok)
}

func (s *ServiceSuite) TestDeadPlayersExcluded() {
	s.register("alice", "bob")
	s.registry.Touch("alice", s.now.Add(30*time.Second))

	later := s.now.Add(30 * time.Second)
	s.Len(s.service.Candidates(later), 1)
	_, ok := s.service.Next(later)
	s.False(ok)
}

func (s *ServiceSuite) TestBusyPlayersExcluded() {
	s.register("alice", "bob", "carol")
	alice := s.registry.Lookup("alice")
	alice.AddOpenMatch(model.MatchID("m1"))
	alice.AddOpenMatch(model.MatchID("m2"))

	candidates := s.service.Candidates(s.now)
	s.Require().Len(candidates, 2)
	s.Equal("bob", candidates[0].Name)
	s.Equal("carol", candidates[1].Name)

	alice.RemoveOpenMatch("m1")
	s.Len(s.service.Candidates(s.now), 3)
}
