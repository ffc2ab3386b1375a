// Package file stores the replay log as plain text files, one per process
// start, in a single directory. Older logs may be compressed to
// .botlog.txt.zst archives and are still replayed.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/mcoot/rpsarbiter/internal/dependencies/clock"
	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/storage"
)

const (
	logSuffix     = ".botlog.txt"
	archiveSuffix = ".botlog.txt.zst"
	nameLayout    = "2006_01_02T15_04_05Z"

	// Longest line Replay accepts
	maxLineLen = 1 << 20
)

// Storage appends to the current log file and replays the whole directory
type Storage struct {
	dir  string
	path string

	mu sync.Mutex
	f  *os.File
}

// New opens a fresh log file in dir, named after the current UTC time
func New(dir string, clock clock.Clock) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	path := filepath.Join(dir, clock.Now().UTC().Format(nameLayout)+logSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return &Storage{dir: dir, path: path, f: f}, nil
}

// Ensure Storage implements the interface
var _ storage.Log = (*Storage)(nil)

// Path returns the file currently appended to
func (s *Storage) Path() string {
	return s.path
}

func (s *Storage) Append(ctx context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return model.ErrLogClosed
	}
	if _, err := s.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("writing log line: %w", err)
	}
	return s.f.Sync()
}

func (s *Storage) Replay(ctx context.Context, fn func(line string) error) error {
	files, err := Files(s.dir)
	if err != nil {
		return err
	}
	return ReplayFiles(ctx, files, fn)
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Files lists the logs and archives in dir in replay order. The timestamped
// names make lexical order chronological.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading log dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, logSuffix) || strings.HasSuffix(name, archiveSuffix) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReplayFiles feeds every line of the given files to fn, in order.
// Files ending in .zst are decompressed on the fly.
func ReplayFiles(ctx context.Context, files []string, fn func(line string) error) error {
	for _, path := range files {
		if err := replayFile(ctx, path, fn); err != nil {
			return err
		}
	}
	return nil
}

func replayFile(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening archive %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	return replayReader(ctx, r, fn)
}

func replayReader(ctx context.Context, r io.Reader, fn func(line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLen)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// WriteArchive compresses every line in dir, in replay order, into a
// single zstd stream.
func WriteArchive(ctx context.Context, dir string, w io.Writer) (int, error) {
	files, err := Files(dir)
	if err != nil {
		return 0, err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return 0, err
	}

	var count int
	err = ReplayFiles(ctx, files, func(line string) error {
		count++
		_, err := io.WriteString(enc, line+"\n")
		return err
	})
	if err != nil {
		enc.Close()
		return count, err
	}
	return count, enc.Close()
}
