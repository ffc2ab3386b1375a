// Package transport defines the chat side of the arbiter: something that
// delivers inbound lines to a handler and sends reply lines to a target
package transport

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by SendLine while the target cannot be reached
var ErrNotConnected = errors.New("transport not connected")

// LineHandler receives one inbound line. to is the identity the line was
// addressed to.
type LineHandler func(ctx context.Context, from, to, text string)

// Transport carries protocol lines to and from chat participants
type Transport interface {
	// SendLine sends text to a single target identity
	SendLine(ctx context.Context, target, text string) error

	// Run delivers inbound lines to handler until ctx is cancelled,
	// reconnecting as needed
	Run(ctx context.Context, handler LineHandler) error
}
