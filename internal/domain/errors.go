package domain

import "errors"

// Domain errors. All of them are returned to the caller only and never broadcast.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNotAuthorized    = errors.New("only the room admin can perform this action")
	ErrInvalidState     = errors.New("action not allowed in current room status")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrAlreadySubmitted = errors.New("drawing already submitted this round")
	ErrAlreadyVoted     = errors.New("already voted this round")
	ErrNotInRound       = errors.New("player is not an active participant of the current round")
	ErrNoSubmission     = errors.New("no drawing submitted")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrInvalidTarget    = errors.New("invalid target player")
	ErrCannotVoteSelf   = errors.New("cannot vote for yourself")
	ErrSessionExpired   = errors.New("session expired")
	ErrInvalidSession   = errors.New("invalid session")
	ErrRateLimited      = errors.New("too many requests")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoPrompts        = errors.New("no prompt pairs available")
	ErrDuplicatePrompt  = errors.New("prompt pair already exists")
	ErrStorage          = errors.New("unexpected storage error")
)
