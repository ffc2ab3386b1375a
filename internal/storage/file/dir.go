package file

import (
	"context"
	"errors"

	"github.com/mcoot/rpsarbiter/internal/storage"
)

// ErrReadOnly is returned by Dir.Append
var ErrReadOnly = errors.New("log directory opened read-only")

// Dir replays a log directory without creating a new log file
type Dir struct {
	dir string
}

var _ storage.Log = (*Dir)(nil)

// OpenDir returns a read-only view of dir
func OpenDir(dir string) *Dir {
	return &Dir{dir: dir}
}

func (d *Dir) Append(context.Context, string) error {
	return ErrReadOnly
}

func (d *Dir) Replay(ctx context.Context, fn func(line string) error) error {
	files, err := Files(d.dir)
	if err != nil {
		return err
	}
	return ReplayFiles(ctx, files, fn)
}

func (d *Dir) Close() error { return nil }
