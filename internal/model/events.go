package model

import "time"

// EventType identifies the type of domain event
type EventType string

const (
	EventPlayerRegistered EventType = "player_registered"
	EventMatchCreated     EventType = "match_created"
	EventMoveAccepted     EventType = "move_accepted"
	EventMatchResolved    EventType = "match_resolved"
	EventPingSent         EventType = "ping_sent"
)

// Event is emitted by command handlers alongside their replies.
// Events raised while replaying the log are discarded.
type Event struct {
	Type      EventType
	Timestamp time.Time
	EventID   string  // id of the protocol line that caused the event
	MatchID   MatchID // empty for player-only events
	Player    string  // the player who triggered or is affected
	Payload   any     // type-specific data
}

// MatchCreatedPayload contains data for match created events
type MatchCreatedPayload struct {
	Mode    string
	Player1 string
	Player2 string
}

// MatchResolvedPayload contains data for match resolved events
type MatchResolvedPayload struct {
	Mode    string
	Player1 string
	Player2 string
	Outcome Outcome
}
