// Package eventid issues and verifies the opaque ids stamped on every
// protocol line. An id carries its creation time, a random nonce and a
// keyed integrity tag, and never contains a space or a pipe.
package eventid

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/mcoot/rpsarbiter/internal/dependencies/clock"
	"github.com/mcoot/rpsarbiter/internal/dependencies/random"
)

const (
	timeLen  = 8
	nonceLen = 8
	tagLen   = 8
	rawLen   = timeLen + nonceLen + tagLen
)

// Codec generates and validates event ids for one shared secret
type Codec struct {
	key    [32]byte
	clock  clock.Clock
	random random.Random
}

// New creates a Codec. Secrets of any length are accepted.
func New(secret string, clock clock.Clock, random random.Random) *Codec {
	return &Codec{
		key:    blake2b.Sum256([]byte(secret)),
		clock:  clock,
		random: random,
	}
}

// New returns a fresh id stamped with the current time
func (c *Codec) New() string {
	return c.NewAt(c.clock.Now())
}

// NewAt returns a fresh id stamped with the given time
func (c *Codec) NewAt(at time.Time) string {
	var raw [rawLen]byte
	binary.BigEndian.PutUint64(raw[:timeLen], uint64(at.UnixNano()))
	copy(raw[timeLen:timeLen+nonceLen], c.random.Bytes(nonceLen))
	copy(raw[timeLen+nonceLen:], c.tag(raw[:timeLen+nonceLen]))
	return escape(base64.StdEncoding.EncodeToString(raw[:]))
}

// Valid reports whether token is a well-formed id carrying a matching tag.
// It never panics, whatever the input.
func (c *Codec) Valid(token string) bool {
	_, ok := c.decode(token)
	return ok
}

// When returns the time embedded in a valid token. The boolean is false
// for invalid tokens, in which case the time is zero.
func (c *Codec) When(token string) (time.Time, bool) {
	raw, ok := c.decode(token)
	if !ok {
		return time.Time{}, false
	}
	nanos := int64(binary.BigEndian.Uint64(raw[:timeLen]))
	return time.Unix(0, nanos).UTC(), true
}

func (c *Codec) decode(token string) ([]byte, bool) {
	plain, ok := unescape(token)
	if !ok {
		return nil, false
	}
	raw, err := base64.StdEncoding.Strict().DecodeString(plain)
	if err != nil || len(raw) != rawLen {
		return nil, false
	}
	want := c.tag(raw[:timeLen+nonceLen])
	if subtle.ConstantTimeCompare(want, raw[timeLen+nonceLen:]) != 1 {
		return nil, false
	}
	return raw, true
}

func (c *Codec) tag(payload []byte) []byte {
	// Only errors for keys longer than 64 bytes
	h, _ := blake2b.New256(c.key[:])
	h.Write(payload)
	return h.Sum(nil)[:tagLen]
}

var escaper = strings.NewReplacer("Z", "Za", "+", "Zb", "/", "Zc", "=", "Zd")

func escape(s string) string {
	return escaper.Replace(s)
}

// unescape reverses escape. Every Z must start a known pair and the raw
// characters + / = must not appear, so each id has exactly one spelling.
func unescape(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '+', '/', '=':
			return "", false
		case 'Z':
			if i+1 >= len(s) {
				return "", false
			}
			i++
			switch s[i] {
			case 'a':
				b.WriteByte('Z')
			case 'b':
				b.WriteByte('+')
			case 'c':
				b.WriteByte('/')
			case 'd':
				b.WriteByte('=')
			default:
				return "", false
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), true
}
