package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case PlayerStats:
		o.printPlayerStats(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case Match:
		o.printMatch(v)
	case MatchList:
		o.printMatchList(v)
	case VerifyResult:
		o.printVerifyResult(v)
	case FoldResult:
		o.printFoldResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Identity    string `json:"identity"`
	Players     int    `json:"players"`
	Matches     int    `json:"matches"`
	OpenMatches int    `json:"open_matches"`
}

// PlayerStats response type
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

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Wins   int64   `json:"wins"`
	Losses int64   `json:"losses"`
	Ties   int64   `json:"ties"`
}

// Leaderboard response type
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// Outcome response type
type Outcome struct {
	Kind   string  `json:"kind"`
	Winner *string `json:"winner"`
	Reason string  `json:"reason,omitempty"`
	Text   string  `json:"text"`
}

// Match response type
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

// MatchList response type
type MatchList struct {
	Player  string  `json:"player"`
	Matches []Match `json:"matches"`
}

// VerifyResult summarises a log verification
type VerifyResult struct {
	Files     int `json:"files"`
	Lines     int `json:"lines"`
	Valid     int `json:"valid"`
	Invalid   int `json:"invalid"`
	Malformed int `json:"malformed"`
}

// FoldResult is the state rebuilt from a log directory
type FoldResult struct {
	Lines       int         `json:"lines"`
	Players     int         `json:"players"`
	Matches     int         `json:"matches"`
	OpenMatches int         `json:"open_matches"`
	Leaderboard Leaderboard `json:"leaderboard"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Identity: %s\n", h.Identity)
	fmt.Fprintf(o.w, "Players: %d\n", h.Players)
	fmt.Fprintf(o.w, "Matches: %d (%d open)\n", h.Matches, h.OpenMatches)
}

func (o *Output) printPlayerStats(p PlayerStats) {
	fmt.Fprintf(o.w, "Player: %s\n", p.Name)
	fmt.Fprintf(o.w, "Record: %d/%d/%d (W/L/T)\n", p.Wins, p.Losses, p.Ties)
	fmt.Fprintf(o.w, "Score: %.3f\n", p.Score)
	fmt.Fprintf(o.w, "Last seen: %s\n", p.LastSeen.Format(time.RFC3339))
	if p.PingOutstanding {
		fmt.Fprintln(o.w, "Ping outstanding")
	}
	if len(p.OpenMatches) > 0 {
		fmt.Fprintf(o.w, "Open matches: %s\n", strings.Join(p.OpenMatches, ", "))
	}
}

func (o *Output) printLeaderboard(l Leaderboard) {
	if len(l.Entries) == 0 {
		fmt.Fprintln(o.w, "No players")
		return
	}
	for _, e := range l.Entries {
		fmt.Fprintf(o.w, "%d. %s %.3f (%d/%d/%d)\n", e.Rank, e.Name, e.Score, e.Wins, e.Losses, e.Ties)
	}
}

func (o *Output) printMatch(m Match) {
	fmt.Fprintf(o.w, "Match: %s\n", m.ID)
	fmt.Fprintf(o.w, "Mode: %s\n", m.Mode)
	fmt.Fprintf(o.w, "Players: %s vs %s\n", m.Player1, m.Player2)
	fmt.Fprintf(o.w, "Created: %s\n", m.CreatedAt.Format(time.RFC3339))
	if m.Outcome == nil {
		fmt.Fprintln(o.w, "Result: pending")
		return
	}
	fmt.Fprintf(o.w, "Result: %s\n", m.Outcome.Text)
	for _, p := range []string{m.Player1, m.Player2} {
		if mv, ok := m.Moves[p]; ok {
			fmt.Fprintf(o.w, "  %s played %s\n", p, mv)
		}
	}
}

func (o *Output) printMatchList(l MatchList) {
	if len(l.Matches) == 0 {
		fmt.Fprintf(o.w, "%s has no matches\n", l.Player)
		return
	}
	for _, m := range l.Matches {
		result := "pending"
		if m.Outcome != nil {
			result = m.Outcome.Text
		}
		fmt.Fprintf(o.w, "%s  %s vs %s  %s\n", m.ID, m.Player1, m.Player2, result)
	}
}

func (o *Output) printVerifyResult(v VerifyResult) {
	fmt.Fprintf(o.w, "Files: %d\n", v.Files)
	fmt.Fprintf(o.w, "Lines: %d\n", v.Lines)
	fmt.Fprintf(o.w, "Valid: %d\n", v.Valid)
	fmt.Fprintf(o.w, "Invalid: %d\n", v.Invalid)
	fmt.Fprintf(o.w, "Malformed: %d\n", v.Malformed)
}

func (o *Output) printFoldResult(f FoldResult) {
	fmt.Fprintf(o.w, "Lines replayed: %d\n", f.Lines)
	fmt.Fprintf(o.w, "Players: %d\n", f.Players)
	fmt.Fprintf(o.w, "Matches: %d (%d open)\n", f.Matches, f.OpenMatches)
	fmt.Fprintln(o.w)
	o.printLeaderboard(f.Leaderboard)
}
