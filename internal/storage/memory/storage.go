package memory

import (
	"context"
	"sync"

	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/storage"
)

// Storage is an in-memory replay log. It does not survive a restart.
type Storage struct {
	mu     sync.RWMutex
	lines  []string
	closed bool
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{}
}

// NewWithLines creates a log pre-filled with lines
func NewWithLines(lines ...string) *Storage {
	s := New()
	s.lines = append(s.lines, lines...)
	return s
}

// Ensure Storage implements the interface
var _ storage.Log = (*Storage)(nil)

func (s *Storage) Append(ctx context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ErrLogClosed
	}
	s.lines = append(s.lines, line)
	return nil
}

func (s *Storage) Replay(ctx context.Context, fn func(line string) error) error {
	// Copy so fn may append without deadlocking
	s.mu.RLock()
	lines := make([]string, len(s.lines))
	copy(lines, s.lines)
	s.mu.RUnlock()

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Lines returns a copy of everything appended so far
func (s *Storage) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := make([]string, len(s.lines))
	copy(lines, s.lines)
	return lines
}
