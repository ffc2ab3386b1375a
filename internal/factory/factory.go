package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/rpsarbiter/internal/config"
	"github.com/mcoot/rpsarbiter/internal/dependencies/clock"
	"github.com/mcoot/rpsarbiter/internal/dependencies/random"
	"github.com/mcoot/rpsarbiter/internal/eventid"
	"github.com/mcoot/rpsarbiter/internal/notify"
	"github.com/mcoot/rpsarbiter/internal/services/arbiter"
	"github.com/mcoot/rpsarbiter/internal/services/dispatch"
	"github.com/mcoot/rpsarbiter/internal/services/match"
	"github.com/mcoot/rpsarbiter/internal/services/matchmaker"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
	"github.com/mcoot/rpsarbiter/internal/storage"
	filestorage "github.com/mcoot/rpsarbiter/internal/storage/file"
	"github.com/mcoot/rpsarbiter/internal/storage/memory"
	redisstorage "github.com/mcoot/rpsarbiter/internal/storage/redis"
	sqlitestorage "github.com/mcoot/rpsarbiter/internal/storage/sqlite"
	"github.com/mcoot/rpsarbiter/internal/transport"
	"github.com/mcoot/rpsarbiter/internal/transport/irc"
	"github.com/mcoot/rpsarbiter/internal/transport/websocket"
)

// App contains all wired application components
type App struct {
	// Storage
	Log storage.Log

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Codec  *eventid.Codec

	// Services
	Registry   *registry.Service
	Matches    *match.Service
	Matchmaker *matchmaker.Service
	Dispatcher *dispatch.Service
	Arbiter    *arbiter.Service

	// Transport carries chat lines. Hub is set only for the websocket
	// transport so the HTTP router can mount it.
	Transport transport.Transport
	Hub       *websocket.Hub

	Publisher notify.Publisher
}

// New creates a new application with all dependencies wired
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Use no-op logger if not provided
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	log, err := newLog(cfg.Storage, clk)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Type, err)
	}

	var (
		tr  transport.Transport
		hub *websocket.Hub
	)
	switch cfg.Transport.Type {
	case config.TransportWebsocket:
		hub = websocket.NewHub(cfg.Identity, logger)
		tr = hub
	case config.TransportIRC:
		ircCfg := irc.DefaultConfig()
		ircCfg.Server = cfg.Transport.IRC.Server
		ircCfg.TLS = cfg.Transport.IRC.TLS
		ircCfg.Nick = cfg.Identity
		ircCfg.User = ""
		ircCfg.Name = ""
		ircCfg.Password = cfg.Transport.IRC.Password
		ircCfg.Channel = cfg.Transport.IRC.Channel
		ircCfg.Announce = cfg.Transport.IRC.Announce
		ircCfg.ReconnectDelay = cfg.Transport.IRC.ReconnectDelay
		tr = irc.New(ircCfg, logger)
	default:
		_ = log.Close()
		return nil, fmt.Errorf("invalid transport type %q", cfg.Transport.Type)
	}

	pubCfg := notify.DefaultConfig()
	pubCfg.URL = cfg.NATS.URL
	if cfg.NATS.Subject != "" {
		pubCfg.Subject = cfg.NATS.Subject
	}
	pub, err := notify.New(pubCfg, logger)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("connecting publisher: %w", err)
	}

	app := newWithDependencies(log, clk, rnd, cfg, tr, pub, logger)
	app.Hub = hub
	return app, nil
}

func newLog(cfg config.StorageConfig, clk clock.Clock) (storage.Log, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageFile:
		return filestorage.New(cfg.Dir, clk)
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		if cfg.RedisStream != "" {
			redisCfg.Stream = cfg.RedisStream
		}
		return redisstorage.New(redisCfg)
	case config.StorageSQLite:
		return sqlitestorage.New(cfg.SQLitePath)
	default:
		return nil, errors.New("invalid storage type: must be memory, file, redis or sqlite")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	log storage.Log,
	clk clock.Clock,
	rnd random.Random,
	cfg *config.Config,
	tr transport.Transport,
	pub notify.Publisher,
	logger *slog.Logger,
) *App {
	codec := eventid.New(cfg.Secret, clk, rnd)
	reg := registry.New()
	matches := match.New(reg, match.Config{Timeout: cfg.Game.MatchTimeout})
	mm := matchmaker.New(reg, rnd, matchmaker.Config{
		Interval:       cfg.Game.MatchmakingInterval,
		LivenessWindow: cfg.Game.LivenessWindow,
		MaxOpenMatches: cfg.Game.MaxOpenMatches,
	})
	dispatcher := dispatch.New(codec, reg, matches, clk, logger, dispatch.Config{
		Identity:        cfg.Identity,
		LeaderboardSize: cfg.Game.LeaderboardSize,
	})

	arb := arbiter.New(arbiter.Deps{
		Log:        log,
		Codec:      codec,
		Dispatcher: dispatcher,
		Registry:   reg,
		Matches:    matches,
		Matchmaker: mm,
		Sender:     tr,
		Publisher:  pub,
		Clock:      clk,
		Logger:     logger,
	}, arbiter.Config{
		Identity:      cfg.Identity,
		Mode:          cfg.Mode,
		SweepInterval: cfg.Game.SweepInterval,
		PingAfter:     cfg.Game.PingAfter,
	})

	return &App{
		Log:        log,
		Clock:      clk,
		Random:     rnd,
		Codec:      codec,
		Registry:   reg,
		Matches:    matches,
		Matchmaker: mm,
		Dispatcher: dispatcher,
		Arbiter:    arb,
		Transport:  tr,
		Publisher:  pub,
	}
}

// Close releases the log and the publisher
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Log != nil {
		errs = append(errs, a.Log.Close())
	}
	return errors.Join(errs...)
}

// NewOffline wires an App over an existing log with no transport and no
// publisher, for folding a log outside the server
func NewOffline(cfg *config.Config, log storage.Log, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return newWithDependencies(log, clock.New(), random.New(), cfg, nil, notify.Nop{}, logger)
}
