package domain

import "errors"

// Domain errors
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrNameTaken           = errors.New("name already taken in this room")
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrGameInProgress      = errors.New("game already in progress")
	ErrNotHost             = errors.New("only host can perform this action")
	ErrNotEnoughPlayers    = errors.New("not enough players to start")
	ErrWrongPhase          = errors.New("action not allowed in current phase")
	ErrTimeExpired         = errors.New("time has run out")
	ErrUnknownPlayer       = errors.New("player not found")
	ErrEmptyAnswer         = errors.New("answer cannot be empty")
	ErrInvalidAnswer       = errors.New("answer matches the correct answer")
	ErrSelfVote            = errors.New("cannot vote for your own answer")
	ErrAlreadyVoted        = errors.New("already voted this round")
	ErrTargetNotFound      = errors.New("vote target not found")
	ErrNotInRoom           = errors.New("connection is not part of this room")
	ErrAlreadyInRoom       = errors.New("connection already belongs to a room")
	ErrNoQuestions         = errors.New("no questions available")
	ErrLeaderboardNotReady = errors.New("leaderboard is not ready yet")
)
