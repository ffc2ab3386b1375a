package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *ConfigSuite) write(body string) string {
	path := filepath.Join(s.dir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (s *ConfigSuite) TestDefaultsWithoutFile() {
	cfg, err := Load("")
	s.Require().NoError(err)

	s.Equal("user02ae4f8be6", cfg.Identity)
	s.Equal("DEMO", cfg.Mode)
	s.Equal(20*time.Second, cfg.Game.LivenessWindow)
	s.Equal(10*time.Second, cfg.Game.PingAfter)
	s.Equal(60*time.Second, cfg.Game.MatchTimeout)
	s.Equal(3*time.Second, cfg.Game.MatchmakingInterval)
	s.Equal(2, cfg.Game.MaxOpenMatches)
	s.Equal(100*time.Millisecond, cfg.Game.SweepInterval)
	s.Equal(StorageFile, cfg.Storage.Type)
	s.Equal(TransportIRC, cfg.Transport.Type)
	s.Empty(cfg.NATS.URL)
}

func (s *ConfigSuite) TestFileOverridesDefaults() {
	path := s.write(`
identity: referee
mode: RANKED
game:
  match_timeout: 30s
  max_open_matches: 3
storage:
  type: sqlite
  sqlite_path: /tmp/rps.db
transport:
  type: websocket
nats:
  url: nats://localhost:4222
`)
	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal("referee", cfg.Identity)
	s.Equal("RANKED", cfg.Mode)
	s.Equal(30*time.Second, cfg.Game.MatchTimeout)
	s.Equal(3, cfg.Game.MaxOpenMatches)
	s.Equal(20*time.Second, cfg.Game.LivenessWindow)
	s.Equal(StorageSQLite, cfg.Storage.Type)
	s.Equal("/tmp/rps.db", cfg.Storage.SQLitePath)
	s.Equal(TransportWebsocket, cfg.Transport.Type)
	s.Equal("nats://localhost:4222", cfg.NATS.URL)
	s.Equal("rps.match.resolved", cfg.NATS.Subject)
}

func (s *ConfigSuite) TestEnvOverridesFile() {
	path := s.write("identity: referee\nstorage:\n  type: sqlite\n")
	s.T().Setenv("RPS_IDENTITY", "from-env")
	s.T().Setenv("RPS_STORAGE_TYPE", "redis")
	s.T().Setenv("RPS_STORAGE_REDIS_URL", "redis://cache:6379")
	s.T().Setenv("RPS_GAME_PING_AFTER", "5s")
	s.T().Setenv("RPS_TRANSPORT_IRC_TLS", "false")

	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal("from-env", cfg.Identity)
	s.Equal(StorageRedis, cfg.Storage.Type)
	s.Equal("redis://cache:6379", cfg.Storage.RedisURL)
	s.Equal(5*time.Second, cfg.Game.PingAfter)
	s.False(cfg.Transport.IRC.TLS)
}

func (s *ConfigSuite) TestMissingFile() {
	_, err := Load(filepath.Join(s.dir, "missing.yaml"))
	s.ErrorContains(err, "reading config file")
}

func (s *ConfigSuite) TestBadYAML() {
	_, err := Load(s.write("game: [unclosed"))
	s.ErrorContains(err, "parsing config file")
}

func (s *ConfigSuite) TestBadEnv() {
	s.T().Setenv("RPS_GAME_MATCH_TIMEOUT", "soon")
	_, err := Load("")
	s.ErrorContains(err, "parse env:")
}

func (s *ConfigSuite) TestValidate() {
	_, err := Load(s.write("storage:\n  type: floppy\n"))
	s.ErrorContains(err, "unknown storage type")

	_, err = Load(s.write("transport:\n  type: carrier-pigeon\n"))
	s.ErrorContains(err, "unknown transport type")

	_, err = Load(s.write("identity: \"two words\"\n"))
	s.ErrorContains(err, "identity")

	_, err = Load(s.write("game:\n  ping_after: 30s\n"))
	s.ErrorContains(err, "ping_after")
}

func (s *ConfigSuite) TestParseLevel() {
	s.Equal(slog.LevelDebug, ParseLevel("debug"))
	s.Equal(slog.LevelWarn, ParseLevel("WARN"))
	s.Equal(slog.LevelError, ParseLevel("error"))
	s.Equal(slog.LevelInfo, ParseLevel(""))
	s.Equal(slog.LevelInfo, ParseLevel("verbose"))
}
