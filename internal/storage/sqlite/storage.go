package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/storage"
)

//go:embed schema.sql
var schema string

// pageSize bounds how many rows Replay holds open at once
const pageSize = 500

// Storage keeps the replay log in a single SQLite table, ordered by seq
type Storage struct {
	db     *sql.DB
	closed atomic.Bool
}

// New opens (or creates) the database at path
func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA synchronous = FULL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Storage{db: db}, nil
}

// Ensure Storage implements the interface
var _ storage.Log = (*Storage)(nil)

func (s *Storage) Append(ctx context.Context, line string) error {
	if s.closed.Load() {
		return model.ErrLogClosed
	}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO replay_log (line) VALUES (?)", line); err != nil {
		return fmt.Errorf("appending line: %w", err)
	}
	return nil
}

// Replay pages through the table by seq so fn never runs while a query
// holds the only connection.
func (s *Storage) Replay(ctx context.Context, fn func(line string) error) error {
	var after int64
	for {
		seqs, lines, err := s.page(ctx, after)
		if err != nil {
			return err
		}
		for i, line := range lines {
			if err := fn(line); err != nil {
				return err
			}
			after = seqs[i]
		}
		if len(lines) < pageSize {
			return nil
		}
	}
}

func (s *Storage) page(ctx context.Context, after int64) ([]int64, []string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, line FROM replay_log WHERE seq > ? ORDER BY seq LIMIT ?", after, pageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("reading log: %w", err)
	}
	defer rows.Close()

	var seqs []int64
	var lines []string
	for rows.Next() {
		var seq int64
		var line string
		if err := rows.Scan(&seq, &line); err != nil {
			return nil, nil, err
		}
		seqs = append(seqs, seq)
		lines = append(lines, line)
	}
	return seqs, lines, rows.Err()
}

// Count returns the number of stored lines
func (s *Storage) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM replay_log").Scan(&n)
	return n, err
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
