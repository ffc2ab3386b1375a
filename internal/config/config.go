// Package config loads arbiter settings from an optional YAML file,
// environment variables prefixed RPS_, and built-in defaults, in that
// order of increasing precedence for the first two.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "RPS_"

// Storage types
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Transport types
const (
	TransportIRC       = "irc"
	TransportWebsocket = "websocket"
)

// Config holds the application configuration
type Config struct {
	// Identity is the arbiter's chat nick and the trusted sender of
	// synthetic lines
	Identity string `yaml:"identity" env:"IDENTITY"`
	Mode     string `yaml:"mode" env:"MODE"`
	// Secret keys event id tags. Changing it invalidates existing logs.
	Secret   string `yaml:"secret" env:"SECRET"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Game      GameConfig      `yaml:"game" envPrefix:"GAME_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Transport TransportConfig `yaml:"transport" envPrefix:"TRANSPORT_"`
	HTTP      HTTPConfig      `yaml:"http" envPrefix:"HTTP_"`
	NATS      NATSConfig      `yaml:"nats" envPrefix:"NATS_"`
}

// GameConfig holds timing and matchmaking rules
type GameConfig struct {
	LivenessWindow      time.Duration `yaml:"liveness_window" env:"LIVENESS_WINDOW"`
	PingAfter           time.Duration `yaml:"ping_after" env:"PING_AFTER"`
	MatchTimeout        time.Duration `yaml:"match_timeout" env:"MATCH_TIMEOUT"`
	MatchmakingInterval time.Duration `yaml:"matchmaking_interval" env:"MATCHMAKING_INTERVAL"`
	MaxOpenMatches      int           `yaml:"max_open_matches" env:"MAX_OPEN_MATCHES"`
	SweepInterval       time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
	LeaderboardSize     int           `yaml:"leaderboard_size" env:"LEADERBOARD_SIZE"`
}

// StorageConfig selects and configures the replay log backend
type StorageConfig struct {
	Type        string `yaml:"type" env:"TYPE"`
	Dir         string `yaml:"dir" env:"DIR"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	RedisStream string `yaml:"redis_stream" env:"REDIS_STREAM"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// TransportConfig selects and configures the chat transport
type TransportConfig struct {
	Type string    `yaml:"type" env:"TYPE"`
	IRC  IRCConfig `yaml:"irc" envPrefix:"IRC_"`
}

// IRCConfig holds IRC connection settings
type IRCConfig struct {
	Server         string        `yaml:"server" env:"SERVER"`
	TLS            bool          `yaml:"tls" env:"TLS"`
	Password       string        `yaml:"password" env:"PASSWORD"`
	Channel        string        `yaml:"channel" env:"CHANNEL"`
	Announce       string        `yaml:"announce" env:"ANNOUNCE"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`
}

// HTTPConfig holds API server settings
type HTTPConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// NATSConfig holds result publisher settings. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url" env:"URL"`
	Subject string `yaml:"subject" env:"SUBJECT"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Identity: "user02ae4f8be6",
		Mode:     "DEMO",
		Secret:   "asdf_this_will_change",
		LogLevel: "info",
		Game: GameConfig{
			LivenessWindow:      20 * time.Second,
			PingAfter:           10 * time.Second,
			MatchTimeout:        60 * time.Second,
			MatchmakingInterval: 3 * time.Second,
			MaxOpenMatches:      2,
			SweepInterval:       100 * time.Millisecond,
			LeaderboardSize:     10,
		},
		Storage: StorageConfig{
			Type:        StorageFile,
			Dir:         ".",
			RedisURL:    "redis://localhost:6379",
			RedisStream: "default",
			SQLitePath:  "rpsarbiter.db",
		},
		Transport: TransportConfig{
			Type: TransportIRC,
			IRC: IRCConfig{
				Server:         "irc.libera.chat:6697",
				TLS:            true,
				Channel:        "#02ae4f8be6",
				Announce:       "test",
				ReconnectDelay: 5 * time.Second,
			},
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		NATS: NATSConfig{
			Subject: "rps.match.resolved",
		},
	}
}

// Load reads configuration from path (skipped when empty), then applies
// RPS_ environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills values a config file explicitly zeroed
func (c *Config) applyDefaults() {
	def := Default()
	if c.Identity == "" {
		c.Identity = def.Identity
	}
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.Game.LivenessWindow == 0 {
		c.Game.LivenessWindow = def.Game.LivenessWindow
	}
	if c.Game.PingAfter == 0 {
		c.Game.PingAfter = def.Game.PingAfter
	}
	if c.Game.MatchTimeout == 0 {
		c.Game.MatchTimeout = def.Game.MatchTimeout
	}
	if c.Game.MatchmakingInterval == 0 {
		c.Game.MatchmakingInterval = def.Game.MatchmakingInterval
	}
	if c.Game.MaxOpenMatches == 0 {
		c.Game.MaxOpenMatches = def.Game.MaxOpenMatches
	}
	if c.Game.SweepInterval == 0 {
		c.Game.SweepInterval = def.Game.SweepInterval
	}
	if c.Game.LeaderboardSize == 0 {
		c.Game.LeaderboardSize = def.Game.LeaderboardSize
	}
	if c.Storage.Type == "" {
		c.Storage.Type = def.Storage.Type
	}
	if c.Transport.Type == "" {
		c.Transport.Type = def.Transport.Type
	}
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.Secret == "" {
		errs = append(errs, errors.New("secret must not be empty"))
	}
	if strings.ContainsAny(c.Identity, " |") {
		errs = append(errs, fmt.Errorf("identity %q must not contain spaces or pipes", c.Identity))
	}
	if strings.ContainsAny(c.Mode, " |") {
		errs = append(errs, fmt.Errorf("mode %q must be a single token", c.Mode))
	}
	switch c.Storage.Type {
	case StorageMemory, StorageFile, StorageRedis, StorageSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}
	switch c.Transport.Type {
	case TransportIRC, TransportWebsocket:
	default:
		errs = append(errs, fmt.Errorf("unknown transport type %q", c.Transport.Type))
	}
	if c.Game.PingAfter >= c.Game.LivenessWindow {
		errs = append(errs, errors.New("ping_after must be shorter than liveness_window"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
