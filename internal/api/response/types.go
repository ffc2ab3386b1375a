package response

import (
	"time"

	"github.com/mcoot/rpsarbiter/internal/model"
)

// Health is the response for the health endpoint
type Health struct {
	Status      string `json:"status"`
	Identity    string `json:"identity"`
	Players     int    `json:"players"`
	Matches     int    `json:"matches"`
	OpenMatches int    `json:"open_matches"`
}

// PlayerStats represents a player's record in API responses
type PlayerStats struct {
	Name            string    `json:"name"`
	Wins            int64     `json:"wins"`
	Losses          int64     `json:"losses"`
	Ties            int64     `json:"ties"`
	Score           float64   `json:"score"`
	RegisteredAt    time.Time `json:"registered_at"`
	LastSeen        time.Time `json:"last_seen"`
	PingOutstanding bool      `json:"ping_outstanding"`
	OpenMatches     []string  `json:"open_matches"`
}

// PlayerStatsFromModel converts model.PlayerStats
func PlayerStatsFromModel(p model.PlayerStats) PlayerStats {
	open := make([]string, len(p.OpenMatches))
	for i, id := range p.OpenMatches {
		open[i] = string(id)
	}
	return PlayerStats{
		Name:            p.Name,
		Wins:            p.Wins,
		Losses:          p.Losses,
		Ties:            p.Ties,
		Score:           p.Score,
		RegisteredAt:    p.RegisteredAt,
		LastSeen:        p.LastSeen,
		PingOutstanding: p.PingOutstanding,
		OpenMatches:     open,
	}
}

// LeaderboardEntry is one ranked line of the leaderboard
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Wins   int64   `json:"wins"`
	Losses int64   `json:"losses"`
	Ties   int64   `json:"ties"`
}

// Leaderboard is the response for the leaderboard endpoint
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardFromModel ranks stats in the order given, starting at 1
func LeaderboardFromModel(stats []model.PlayerStats) Leaderboard {
	entries := make([]LeaderboardEntry, len(stats))
	for i, p := range stats {
		entries[i] = LeaderboardEntry{
			Rank:   i + 1,
			Name:   p.Name,
			Score:  p.Score,
			Wins:   p.Wins,
			Losses: p.Losses,
			Ties:   p.Ties,
		}
	}
	return Leaderboard{Entries: entries}
}

// Outcome is a resolved match result
type Outcome struct {
	Kind   string  `json:"kind"`
	Winner *string `json:"winner"`
	Reason string  `json:"reason,omitempty"`
	Text   string  `json:"text"`
}

// Match represents a match in API responses. Moves are only shown once the
// match has resolved.
type Match struct {
	ID        string            `json:"id"`
	Mode      string            `json:"mode"`
	Player1   string            `json:"player1"`
	Player2   string            `json:"player2"`
	CreatedAt time.Time         `json:"created_at"`
	Resolved  bool              `json:"resolved"`
	Moves     map[string]string `json:"moves,omitempty"`
	Outcome   *Outcome          `json:"outcome,omitempty"`
	Log       []string          `json:"log"`
}

// MatchFromModel converts a match snapshot
func MatchFromModel(v model.MatchView) Match {
	m := Match{
		ID:        string(v.ID),
		Mode:      v.Mode,
		Player1:   v.Player1,
		Player2:   v.Player2,
		CreatedAt: v.CreatedAt,
		Resolved:  v.Resolved,
		Log:       v.Log,
	}
	if !v.Resolved {
		return m
	}

	m.Moves = make(map[string]string, 2)
	if v.Move1 != "" {
		m.Moves[v.Player1] = string(v.Move1)
	}
	if v.Move2 != "" {
		m.Moves[v.Player2] = string(v.Move2)
	}

	var winner *string
	if v.Outcome.Winner != "" {
		w := v.Outcome.Winner
		winner = &w
	}
	m.Outcome = &Outcome{
		Kind:   string(v.Outcome.Kind),
		Winner: winner,
		Reason: string(v.Outcome.Reason),
		Text:   v.Outcome.String(),
	}
	return m
}

// MatchList is the response for a player's match history
type MatchList struct {
	Player  string  `json:"player"`
	Matches []Match `json:"matches"`
}
