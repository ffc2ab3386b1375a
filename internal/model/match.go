package model

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MatchID identifies a match. It is the event id of the NEWMATCH line that
// created it, so it also carries the creation time.
type MatchID string

// Move is one of the fixed rock-paper-scissors moves
type Move string

const (
	MoveRock     Move = "ROCK"
	MovePaper    Move = "PAPER"
	MoveScissors Move = "SCISSORS"
)

// Moves lists the valid move vocabulary
var Moves = []Move{MoveRock, MovePaper, MoveScissors}

// ParseMove validates a protocol token as a move
func ParseMove(s string) (Move, error) {
	switch m := Move(s); m {
	case MoveRock, MovePaper, MoveScissors:
		return m, nil
	default:
		return "", ErrInvalidMove
	}
}

// Beats reports whether a defeats b.
// ROCK beats SCISSORS, SCISSORS beats PAPER, PAPER beats ROCK.
func (a Move) Beats(b Move) bool {
	switch a {
	case MoveRock:
		return b == MoveScissors
	case MoveScissors:
		return b == MovePaper
	case MovePaper:
		return b == MoveRock
	}
	return false
}

// OutcomeKind distinguishes a decided match from a tie
type OutcomeKind string

const (
	OutcomeWin OutcomeKind = "WIN"
	OutcomeTie OutcomeKind = "TIE"
)

// OutcomeReason records how a match was resolved
type OutcomeReason string

const (
	ReasonMoves   OutcomeReason = ""        // both moves were compared
	ReasonForfeit OutcomeReason = "FORFEIT" // a player vanished from the registry
	ReasonTimeout OutcomeReason = "TIMEOUT" // the match window elapsed
)

// Outcome is the fixed result of a resolved match
type Outcome struct {
	Kind   OutcomeKind
	Winner string // empty for ties
	Reason OutcomeReason
}

// Win builds a decided outcome
func Win(winner string, reason OutcomeReason) Outcome {
	return Outcome{Kind: OutcomeWin, Winner: winner, Reason: reason}
}

// Tie builds a tied outcome
func Tie(reason OutcomeReason) Outcome {
	return Outcome{Kind: OutcomeTie, Reason: reason}
}

// Tokens renders the outcome as protocol tokens, e.g. [WIN alice TIMEOUT]
func (o Outcome) Tokens() []string {
	tokens := []string{string(o.Kind)}
	if o.Kind == OutcomeWin {
		tokens = append(tokens, o.Winner)
	}
	if o.Reason != ReasonMoves {
		tokens = append(tokens, string(o.Reason))
	}
	return tokens
}

// String renders the outcome as it appears on the wire
func (o Outcome) String() string {
	return strings.Join(o.Tokens(), " ")
}

// ParseOutcome parses the tokens produced by Outcome.Tokens
func ParseOutcome(tokens []string) (Outcome, error) {
	if len(tokens) == 0 {
		return Outcome{}, ErrInvalidOutcome
	}

	var o Outcome
	rest := tokens[1:]
	switch OutcomeKind(tokens[0]) {
	case OutcomeWin:
		if len(rest) == 0 || rest[0] == "" {
			return Outcome{}, ErrInvalidOutcome
		}
		o = Outcome{Kind: OutcomeWin, Winner: rest[0]}
		rest = rest[1:]
	case OutcomeTie:
		o = Outcome{Kind: OutcomeTie}
	default:
		return Outcome{}, ErrInvalidOutcome
	}

	switch len(rest) {
	case 0:
	case 1:
		switch r := OutcomeReason(rest[0]); r {
		case ReasonForfeit, ReasonTimeout:
			o.Reason = r
		default:
			return Outcome{}, ErrInvalidOutcome
		}
	default:
		return Outcome{}, ErrInvalidOutcome
	}
	return o, nil
}

// Match is the canonical record of a single rock-paper-scissors match.
// Move submission and resolution run under mu; a resolved match never changes.
type Match struct {
	ID        MatchID
	Mode      string
	Player1   string
	Player2   string
	CreatedAt time.Time

	mu       sync.Mutex
	moves    [2]Move
	resolved bool
	outcome  Outcome
	log      []string
}

// NewMatch creates an open match
func NewMatch(id MatchID, mode, player1, player2 string, createdAt time.Time) *Match {
	return &Match{
		ID:        id,
		Mode:      mode,
		Player1:   player1,
		Player2:   player2,
		CreatedAt: createdAt,
		log:       []string{fmt.Sprintf("NEWMATCH %s %s %s", mode, player1, player2)},
	}
}

// MatchView is a consistent snapshot of a match
type MatchView struct {
	ID        MatchID
	Mode      string
	Player1   string
	Player2   string
	Move1     Move
	Move2     Move
	Resolved  bool
	Outcome   Outcome
	CreatedAt time.Time
	Log       []string
}

// Players returns both participant names
func (m *Match) Players() [2]string {
	return [2]string{m.Player1, m.Player2}
}

// Opponent returns the other participant, or "" if player is not in the match
func (m *Match) Opponent(player string) string {
	switch player {
	case m.Player1:
		return m.Player2
	case m.Player2:
		return m.Player1
	}
	return ""
}

func (m *Match) slot(player string) int {
	switch player {
	case m.Player1:
		return 0
	case m.Player2:
		return 1
	}
	return -1
}

// Submit records a move for a participant. Each player's move is write-once.
func (m *Match) Submit(player string, move Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resolved {
		return ErrMatchResolved
	}
	i := m.slot(player)
	if i < 0 {
		return ErrNotInMatch
	}
	if m.moves[i] != "" {
		return ErrAlreadyMoved
	}
	m.moves[i] = move
	m.log = append(m.log, fmt.Sprintf("MOVE %s %s", player, move))
	return nil
}

// Resolve fixes the outcome exactly once. decide runs under the match lock
// against a snapshot; it reports false while the match is still undecided.
// Resolve returns true only for the call that performed the transition.
func (m *Match) Resolve(decide func(MatchView) (Outcome, bool)) (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resolved {
		return m.outcome, false
	}
	outcome, ok := decide(m.viewLocked())
	if !ok {
		return Outcome{}, false
	}
	m.resolved = true
	m.outcome = outcome
	m.log = append(m.log, "RESULT "+outcome.String())
	return outcome, true
}

// Resolved reports whether the match has reached its terminal state
func (m *Match) Resolved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolved
}

// View returns a snapshot of the match
func (m *Match) View() MatchView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Match) viewLocked() MatchView {
	log := make([]string, len(m.log))
	copy(log, m.log)
	return MatchView{
		ID:        m.ID,
		Mode:      m.Mode,
		Player1:   m.Player1,
		Player2:   m.Player2,
		Move1:     m.moves[0],
		Move2:     m.moves[1],
		Resolved:  m.resolved,
		Outcome:   m.outcome,
		CreatedAt: m.CreatedAt,
		Log:       log,
	}
}
