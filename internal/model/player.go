package model

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Player is the canonical record for a registered chat identity.
// Counters are atomic so concurrent resolutions of different matches never
// lose updates; the remaining fields are guarded by mu.
type Player struct {
	Name string

	wins   atomic.Int64
	losses atomic.Int64
	ties   atomic.Int64

	mu              sync.Mutex
	registeredAt    time.Time
	lastSeen        time.Time
	pingOutstanding bool
	openMatches     map[MatchID]struct{}
}

// NewPlayer creates a player first seen at the given time
func NewPlayer(name string, at time.Time) *Player {
	return &Player{
		Name:         name,
		registeredAt: at,
		lastSeen:     at,
		openMatches:  make(map[MatchID]struct{}),
	}
}

// PlayerStats is a point-in-time copy of a Player
type PlayerStats struct {
	Name            string
	Wins            int64
	Losses          int64
	Ties            int64
	Score           float64
	RegisteredAt    time.Time
	LastSeen        time.Time
	PingOutstanding bool
	OpenMatches     []MatchID
}

// Touch records communication from the player. Time never moves backwards.
func (p *Player) Touch(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if at.After(p.lastSeen) {
		p.lastSeen = at
	}
}

// LastSeen returns the time of the last communication
func (p *Player) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// Alive reports whether the player communicated within the liveness window
func (p *Player) Alive(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastSeen()) < window
}

// SetPingOutstanding marks or clears an unanswered PING
func (p *Player) SetPingOutstanding(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pingOutstanding = v
}

// PingOutstanding reports whether a PING is awaiting a PONG
func (p *Player) PingOutstanding() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pingOutstanding
}

// AddOpenMatch records a match the player is taking part in
func (p *Player) AddOpenMatch(id MatchID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openMatches[id] = struct{}{}
}

// RemoveOpenMatch forgets a match once it is resolved
func (p *Player) RemoveOpenMatch(id MatchID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.openMatches, id)
}

// OpenMatchCount returns the number of unresolved matches held by the player
func (p *Player) OpenMatchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.openMatches)
}

// OpenMatches returns the ids of unresolved matches, sorted
func (p *Player) OpenMatches() []MatchID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openMatchesLocked()
}

func (p *Player) openMatchesLocked() []MatchID {
	ids := make([]MatchID, 0, len(p.openMatches))
	for id := range p.openMatches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RecordWin increments the win counter
func (p *Player) RecordWin() { p.wins.Add(1) }

// RecordLoss increments the loss counter
func (p *Player) RecordLoss() { p.losses.Add(1) }

// RecordTie increments the tie counter
func (p *Player) RecordTie() { p.ties.Add(1) }

// Wins returns the number of matches won
func (p *Player) Wins() int64 { return p.wins.Load() }

// Losses returns the number of matches lost
func (p *Player) Losses() int64 { return p.losses.Load() }

// Ties returns the number of tied matches
func (p *Player) Ties() int64 { return p.ties.Load() }

// Score returns wins / (wins + losses), or 0 with no decided games
func (p *Player) Score() float64 {
	return score(p.Wins(), p.Losses())
}

func score(wins, losses int64) float64 {
	if wins+losses == 0 {
		return 0
	}
	return float64(wins) / float64(wins+losses)
}

// Stats returns a copy of the player's current state
func (p *Player) Stats() PlayerStats {
	wins, losses, ties := p.Wins(), p.Losses(), p.Ties()

	p.mu.Lock()
	defer p.mu.Unlock()
	return PlayerStats{
		Name:            p.Name,
		Wins:            wins,
		Losses:          losses,
		Ties:            ties,
		Score:           score(wins, losses),
		RegisteredAt:    p.registeredAt,
		LastSeen:        p.lastSeen,
		PingOutstanding: p.pingOutstanding,
		OpenMatches:     p.openMatchesLocked(),
	}
}
