package room

import "errors"

var (
	// ErrRoomNotFound means the room code resolves to no live room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoleTaken means the room already has an instructor.
	ErrRoleTaken = errors.New("instructor role already taken")

	// ErrAlreadySharing means another participant holds the room's
	// screen-share slot.
	ErrAlreadySharing = errors.New("screen share already active")
)
