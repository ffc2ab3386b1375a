package storage

import "context"

// Log is the append-only replay log of processed protocol lines.
// Lines are stored verbatim, one per processed event.
type Log interface {
	// Append durably records a line. It returns once the line would
	// survive a restart.
	Append(ctx context.Context, line string) error

	// Replay calls fn for every stored line in append order. It stops at
	// the first error returned by fn.
	Replay(ctx context.Context, fn func(line string) error) error

	// Close releases the backend. Appending to a closed log fails with
	// model.ErrLogClosed.
	Close() error
}
