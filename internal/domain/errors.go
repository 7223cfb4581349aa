package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not resolve.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a join would exceed the player cap.
	// Distinct from ErrRoomNotFound so callers can suggest another room
	// instead of re-checking the code.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomCodeTaken is returned when a proposed code collides; the caller
	// must re-roll, never reuse the colliding code.
	ErrRoomCodeTaken = errors.New("room code already taken")
	// ErrPlayerNotFound is returned when a player id is not in the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrNotHost is returned when a host-only action comes from a non-host.
	ErrNotHost = errors.New("only the host may perform this action")
	// ErrNotEnoughPlayers is returned when a game start requires more players.
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	// ErrGameAlreadyStarted is returned when a waiting-only action hits a
	// room that has already left the waiting state.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrGameNotPlaying is returned for in-game actions outside the playing state.
	ErrGameNotPlaying = errors.New("game is not playing")
	// ErrAlreadyAnswered is returned on a second submission for the same question.
	ErrAlreadyAnswered = errors.New("answer already submitted")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrPollNotFound indicates the poll content could not be loaded.
	ErrPollNotFound = errors.New("poll not found")
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned on registration with a duplicate username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidContent wraps editor validation failures; the wrapping message
	// names the offending field so the UI can surface it verbatim.
	ErrInvalidContent = errors.New("invalid content")
)
