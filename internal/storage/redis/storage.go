package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/storage"
)

// Storage is a Redis-backed replay log. Lines live in a single LIST, so
// RPUSH order is append order.
type Storage struct {
	client *redis.Client
	cfg    Config
	key    string
	closed atomic.Bool
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultConfig().Stream
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		key:    logKey(cfg.Stream),
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Log = (*Storage)(nil)

func (s *Storage) Append(ctx context.Context, line string) error {
	if s.closed.Load() {
		return model.ErrLogClosed
	}
	if err := s.client.RPush(ctx, s.key, line).Err(); err != nil {
		return fmt.Errorf("appending to %s: %w", s.key, err)
	}
	return nil
}

func (s *Storage) Replay(ctx context.Context, fn func(line string) error) error {
	var start int64
	for {
		lines, err := s.client.LRange(ctx, s.key, start, start+s.cfg.PageSize-1).Result()
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		for _, line := range lines {
			if err := fn(line); err != nil {
				return err
			}
		}
		if int64(len(lines)) < s.cfg.PageSize {
			return nil
		}
		start += s.cfg.PageSize
	}
}

// Len returns the number of stored lines
func (s *Storage) Len(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, s.key).Result()
}
