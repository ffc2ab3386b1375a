package arbiter

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const orderingStripes = 64

// orderingLocks keeps lines that touch the same match or player in the
// same order in the replay log as in dispatch. Lines with different keys
// only contend when they hash to the same stripe.
type orderingLocks struct {
	stripes [orderingStripes]sync.Mutex
}

// lock takes the stripe for key and returns its unlock. An empty key
// takes nothing.
func (o *orderingLocks) lock(key string) func() {
	if key == "" {
		return func() {}
	}
	mu := &o.stripes[xxhash.Sum64String(key)%orderingStripes]
	mu.Lock()
	return mu.Unlock
}

// orderingKey names the state a line mutates in an order-sensitive way.
// Moves and results race on a match; PING and PONG/REGISTER race on the
// ping flag of a player. Queries and NEWMATCH need no ordering.
func orderingKey(sender, text string) string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return ""
	}
	switch tokens[0] {
	case "MATCH", "RESULTMATCH":
		if len(tokens) > 1 {
			return "match:" + tokens[1]
		}
	case "PING":
		if len(tokens) > 1 {
			return "player:" + tokens[1]
		}
	case "PONG", "REGISTER":
		return "player:" + sender
	}
	return ""
}
