package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Match errors
	ErrMatchNotFound  = errors.New("match not found")
	ErrMatchExists    = errors.New("match already exists")
	ErrMatchResolved  = errors.New("match is already resolved")
	ErrNotInMatch     = errors.New("player is not in this match")
	ErrAlreadyMoved   = errors.New("player has already moved in this match")
	ErrInvalidMove    = errors.New("invalid move")
	ErrSamePlayer     = errors.New("a player cannot be matched against themselves")
	ErrInvalidOutcome = errors.New("invalid match outcome")

	// Event id errors
	ErrInvalidEventID = errors.New("invalid event id")

	// Replay log errors
	ErrLogClosed = errors.New("replay log is closed")
)
