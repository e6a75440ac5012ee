package domain

import "errors"

var (
	// ErrInvalidInput is returned when a request fails validation before
	// reaching core state.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRoomNotFound is returned when a room id is unknown to the registry.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a join would exceed room capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomNotJoinable is returned when joining a room that already left
	// the waiting state.
	ErrRoomNotJoinable = errors.New("game already started")
	// ErrNotEnoughPlayers is returned when a start is requested with fewer
	// than two players.
	ErrNotEnoughPlayers = errors.New("at least 2 players required to start")
	// ErrWrongRoomStatus is returned when a start is requested on a room
	// that is not waiting.
	ErrWrongRoomStatus = errors.New("room is not waiting for players")
	// ErrPlayerNotFound is returned when a player id is not in the room.
	ErrPlayerNotFound = errors.New("player not found in room")
)
