package models

import "encoding/json"

// EventType identifies a realtime channel event. The names are the wire
// contract shared with the browser client.
type EventType string

const (
	// Client -> server
	EventJoinRoom         EventType = "join-room"
	EventSendMessage      EventType = "send-message"
	EventShareFile        EventType = "share-file"
	EventStartScreenShare EventType = "start-screen-share"
	EventStopScreenShare  EventType = "stop-screen-share"

	// Server -> client
	EventJoinedRoom     EventType = "joined-room"
	EventRoomHistory    EventType = "room-history"
	EventUserJoined     EventType = "user-joined"
	EventUserLeft       EventType = "user-left"
	EventUserList       EventType = "user-list"
	EventReceiveMessage EventType = "receive-message"
	EventReceiveFile    EventType = "receive-file"
	EventShareStarted   EventType = "user-started-screen-share"
	EventShareStopped   EventType = "user-stopped-screen-share"
	EventError          EventType = "error"
	EventShareError     EventType = "share-error"

	// Both directions: relayed verbatim between two peers
	EventShareOffer     EventType = "screen-share-offer"
	EventShareAnswer    EventType = "screen-share-answer"
	EventShareCandidate EventType = "screen-share-ice-candidate"
)

// Envelope is the frame read off the websocket before the payload is
// decoded into its typed form.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is an outbound frame with its payload already in typed form.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}
