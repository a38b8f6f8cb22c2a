package game

import "errors"

// Sentinel errors wrapped by engine operations. The HTTP layer maps
// them to status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrCapacity     = errors.New("game is full")
	ErrInvalidVote  = errors.New("invalid vote")
)
