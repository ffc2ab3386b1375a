package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rpsarbiter/internal/dependencies/mocks"
	"github.com/mcoot/rpsarbiter/internal/model"
)

type StorageSuite struct {
	suite.Suite
	dir   string
	clock *mocks.MockClock
	ctx   context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ctx = context.Background()
}

func (s *StorageSuite) open() *Storage {
	st, err := New(s.dir, s.clock)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = st.Close() })
	return st
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

func (s *StorageSuite) TestFileNamedAfterStartTime() {
	st := s.open()
	s.Equal(filepath.Join(s.dir, "2024_01_01T12_00_00Z.botlog.txt"), st.Path())
	s.FileExists(st.Path())
}

func (s *StorageSuite) TestAppendThenReplay() {
	st := s.open()
	s.Require().NoError(st.Append(s.ctx, "a | alice | REGISTER"))
	s.Require().NoError(st.Append(s.ctx, "b | bob | REGISTER"))

	s.Equal([]string{"a | alice | REGISTER", "b | bob | REGISTER"}, s.replayAll(st))

	data, err := os.ReadFile(st.Path())
	s.Require().NoError(err)
	s.Equal("a | alice | REGISTER\nb | bob | REGISTER\n", string(data))
}

func (s *StorageSuite) TestReplaySpansRestarts() {
	first := s.open()
	_ = first.Append(s.ctx, "first run")
	s.Require().NoError(first.Close())

	s.clock.Advance(time.Hour)
	second := s.open()
	_ = second.Append(s.ctx, "second run")

	s.Equal([]string{"first run", "second run"}, s.replayAll(second))
}

func (s *StorageSuite) TestReplayReadsArchives() {
	old := s.open()
	_ = old.Append(s.ctx, "archived one")
	_ = old.Append(s.ctx, "archived two")
	s.Require().NoError(old.Close())

	var buf bytes.Buffer
	n, err := WriteArchive(s.ctx, s.dir, &buf)
	s.Require().NoError(err)
	s.Equal(2, n)

	s.Require().NoError(os.Remove(old.Path()))
	s.Require().NoError(os.WriteFile(old.Path()+".zst", buf.Bytes(), 0o644))

	s.clock.Advance(time.Hour)
	current := s.open()
	_ = current.Append(s.ctx, "live")

	s.Equal([]string{"archived one", "archived two", "live"}, s.replayAll(current))
}

func (s *StorageSuite) TestFilesIgnoresOtherEntries() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("x\n"), 0o644))
	s.Require().NoError(os.Mkdir(filepath.Join(s.dir, "sub.botlog.txt"), 0o755))
	st := s.open()

	files, err := Files(s.dir)
	s.Require().NoError(err)
	s.Equal([]string{st.Path()}, files)
}

func (s *StorageSuite) TestReplaySkipsBlankLines() {
	st := s.open()
	s.Require().NoError(os.WriteFile(st.Path(), []byte("one\r\n\ntwo\n"), 0o644))

	s.Equal([]string{"one", "two"}, s.replayAll(st))
}

func (s *StorageSuite) TestAppendAfterClose() {
	st := s.open()
	s.Require().NoError(st.Close())
	s.ErrorIs(st.Append(s.ctx, "late"), model.ErrLogClosed)
}

func (s *StorageSuite) TestOpenDirReplaysWithoutCreatingFiles() {
	st := s.open()
	s.Require().NoError(st.Append(s.ctx, "a | alice | REGISTER"))
	s.Require().NoError(st.Close())

	d := OpenDir(s.dir)
	var got []string
	s.Require().NoError(d.Replay(s.ctx, func(line string) error {
		got = append(got, line)
		return nil
	}))
	s.Equal([]string{"a | alice | REGISTER"}, got)

	s.ErrorIs(d.Append(s.ctx, "b | bob | REGISTER"), ErrReadOnly)
	files, err := Files(s.dir)
	s.Require().NoError(err)
	s.Len(files, 1)
}
