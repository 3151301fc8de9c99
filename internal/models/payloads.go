package models

import (
	"encoding/json"
	"time"
)

// Role of a participant within a room.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// ParseRole maps an arbitrary role string onto a known role. Anything
// that is not "instructor" is a student.
func ParseRole(s string) Role {
	if Role(s) == RoleInstructor {
		return RoleInstructor
	}
	return RoleStudent
}

// JoinRoomPayload is the body of a join-room event.
type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

// SendMessagePayload is the body of a send-message event.
type SendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// FileData is the client-declared description of a shared file. Size
// and Type are taken at face value; the transport read limit is the
// only cap applied to Data.
type FileData struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"` // base64 content, inline
}

// ShareFilePayload is the body of a share-file event.
type ShareFilePayload struct {
	RoomID   string   `json:"roomId"`
	FileData FileData `json:"fileData"`
	Sender   string   `json:"sender"`
}

// StartSharePayload is the body of a start-screen-share event.
type StartSharePayload struct {
	RoomID   string `json:"roomId"`
	StreamID string `json:"streamId"`
}

// StopSharePayload is the body of a stop-screen-share event.
type StopSharePayload struct {
	RoomID string `json:"roomId"`
}

// SignalPayload is the inbound body of the three relay kinds. Payload
// is opaque negotiation state and is never inspected.
type SignalPayload struct {
	RoomID       string          `json:"roomId"`
	TargetUserID string          `json:"targetUserId"`
	Payload      json.RawMessage `json:"payload"`
}

// SignalEnvelope is what the relay target receives.
type SignalEnvelope struct {
	FromUserID   string          `json:"fromUserId"`
	FromUserName string          `json:"fromUserName,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// JoinedRoomPayload confirms a join to the joiner and tells them their
// connection identity, which relay targets are addressed by.
type JoinedRoomPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// Participant is one entry of a user-list broadcast.
type Participant struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// UserJoinedPayload announces a new participant to the rest of a room.
type UserJoinedPayload struct {
	UserName string `json:"userName"`
	Role     Role   `json:"role"`
}

// UserLeftPayload announces a departure to the rest of a room.
type UserLeftPayload struct {
	UserName string `json:"userName"`
}

// ChatMessage is one record of a room's message history. Immutable
// once appended. System records carry join/leave/share notices and are
// broadcast without being appended.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	System    bool      `json:"system,omitempty"`
}

// FileRecord is one record of a room's file history. Immutable once
// appended.
type FileRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	Data      string    `json:"data"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomHistoryPayload is the snapshot replayed to a joiner.
type RoomHistoryPayload struct {
	Messages []ChatMessage `json:"messages"`
	Files    []FileRecord  `json:"files"`
}

// ScreenShare describes the room's single active share slot.
type ScreenShare struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	StreamID string `json:"streamId"`
}

// ShareStoppedPayload announces that the active share ended.
type ShareStoppedPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// CreateRoomResponse is the response for creating a room.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// RoomExistsResponse is the response for a room lookup.
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}
