package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rpsarbiter/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	client  *redis.Client
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.PageSize = 3

	s.storage = NewWithClient(s.client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	_ = s.storage.Close()
}

func (s *StorageSuite) replayAll(st *Storage) []string {
	var got []string
	err := st.Replay(s.ctx, func(line string) error {
		got = append(got, line)
		return nil
	})
	s.Require().NoError(err)
	return got
}

func (s *StorageSuite) TestAppendUsesList() {
	s.Require().NoError(s.storage.Append(s.ctx, "id | alice | REGISTER"))

	items, err := s.mini.List("rpsarbiter:log:default")
	s.Require().NoError(err)
	s.Equal([]string{"id | alice | REGISTER"}, items)
}

func (s *StorageSuite) TestReplayAcrossPages() {
	var want []string
	for i := 0; i < 10; i++ {
		line := fmt.Sprintf("id%d | p%d | REGISTER", i, i)
		want = append(want, line)
		s.Require().NoError(s.storage.Append(s.ctx, line))
	}

	s.Equal(want, s.replayAll(s.storage))

	n, err := s.storage.Len(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(10), n)
}

func (s *StorageSuite) TestReplayExactPageMultiple() {
	for i := 0; i < 6; i++ {
		_ = s.storage.Append(s.ctx, fmt.Sprintf("line %d", i))
	}
	s.Len(s.replayAll(s.storage), 6)
}

func (s *StorageSuite) TestReplayEmpty() {
	s.Empty(s.replayAll(s.storage))
}

func (s *StorageSuite) TestStreamsAreIsolated() {
	cfg := DefaultConfig()
	cfg.Stream = "other"
	other := NewWithClient(s.client, cfg)

	_ = s.storage.Append(s.ctx, "mine")
	_ = other.Append(s.ctx, "theirs")

	s.Equal([]string{"mine"}, s.replayAll(s.storage))
	s.Equal([]string{"theirs"}, s.replayAll(other))
}

func (s *StorageSuite) TestAppendAfterClose() {
	s.Require().NoError(s.storage.Close())
	s.ErrorIs(s.storage.Append(s.ctx, "late"), model.ErrLogClosed)
}
