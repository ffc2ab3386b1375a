package redis

import "fmt"

// Key prefix for all arbiter data
const keyPrefix = "rpsarbiter"

// logKey returns the Redis key for the LIST holding a replay log
func logKey(stream string) string {
	return fmt.Sprintf("%s:log:%s", keyPrefix, stream)
}
