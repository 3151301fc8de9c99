package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/classdeck/signaling/internal/models"
)

// Conn is the delivery side of a live connection. Deliver must never
// block; a slow or gone recipient drops the frame.
type Conn interface {
	Deliver(e models.Event)
}

type member struct {
	id   string
	name string
	role models.Role
	conn Conn
}

// Room holds all mutable state of one session: membership, chat and
// file history, and the screen-share slot. Every mutation and the
// broadcast enqueues it triggers happen under one mutex, which is the
// room's single linearization point.
type Room struct {
	Code string

	mu         sync.Mutex
	closed     bool
	instructor *member
	students   []*member
	messages   []models.ChatMessage
	files      []models.FileRecord
	share      *models.ScreenShare
}

func newRoom(code string) *Room {
	return &Room{Code: code}
}

// Join registers a participant. The joined notice goes to the existing
// members, the history snapshot to the joiner only, and the refreshed
// participant list to everyone, in that order, atomically with respect
// to concurrent room operations.
func (r *Room) Join(id, name string, role models.Role, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if role == models.RoleInstructor && r.instructor != nil {
		return ErrRoleTaken
	}

	m := &member{id: id, name: name, role: role, conn: conn}
	if role == models.RoleInstructor {
		r.instructor = m
	} else {
		r.students = append(r.students, m)
	}

	notice := fmt.Sprintf("%s (%s) joined the session", name, role)
	r.broadcast(models.Event{Type: models.EventReceiveMessage, Payload: r.systemMessage(notice)}, id)
	r.broadcast(models.Event{
		Type:    models.EventUserJoined,
		Payload: models.UserJoinedPayload{UserName: name, Role: role},
	}, id)

	conn.Deliver(models.Event{
		Type:    models.EventJoinedRoom,
		Payload: models.JoinedRoomPayload{RoomID: r.Code, UserID: id},
	})
	conn.Deliver(models.Event{
		Type: models.EventRoomHistory,
		Payload: models.RoomHistoryPayload{
			Messages: append([]models.ChatMessage{}, r.messages...),
			Files:    append([]models.FileRecord{}, r.files...),
		},
	})

	r.broadcastUserList()
	return nil
}

// Leave removes the participant and reports whether the room is now
// empty. If the leaver held the screen-share slot it is released first,
// with the same notifications an explicit stop produces. Unknown ids
// are a no-op.
func (r *Room) Leave(id string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.findMember(id)
	if m == nil {
		return r.instructor == nil && len(r.students) == 0
	}

	if r.share != nil && r.share.UserID == id {
		r.stopShareLocked()
	}

	if r.instructor != nil && r.instructor.id == id {
		r.instructor = nil
	} else {
		for i, s := range r.students {
			if s.id == id {
				r.students = append(r.students[:i], r.students[i+1:]...)
				break
			}
		}
	}

	notice := fmt.Sprintf("%s left the session", m.name)
	r.broadcast(models.Event{Type: models.EventReceiveMessage, Payload: r.systemMessage(notice)}, id)
	r.broadcast(models.Event{
		Type:    models.EventUserLeft,
		Payload: models.UserLeftPayload{UserName: m.name},
	}, id)
	r.broadcastUserList()

	return r.instructor == nil && len(r.students) == 0
}

// AppendMessage appends a chat record and fans it out to every current
// member, the sender included.
func (r *Room) AppendMessage(text, sender string) models.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := models.ChatMessage{
		ID:        ulid.Make().String(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
	r.messages = append(r.messages, rec)
	r.broadcast(models.Event{Type: models.EventReceiveMessage, Payload: rec}, "")
	return rec
}

// AppendFile appends a file record and fans it out to every current
// member, the sender included.
func (r *Room) AppendFile(f models.FileData, sender string) models.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := models.FileRecord{
		ID:        ulid.Make().String(),
		Name:      f.Name,
		Type:      f.Type,
		Size:      f.Size,
		Data:      f.Data,
		Sender:    sender,
		Timestamp: time.Now(),
	}
	r.files = append(r.files, rec)
	r.broadcast(models.Event{Type: models.EventReceiveFile, Payload: rec}, "")
	return rec
}

// StartShare claims the room's single share slot. A start while another
// share is active fails with ErrAlreadySharing instead of taking over.
func (r *Room) StartShare(id, streamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.findMember(id)
	if m == nil {
		return ErrRoomNotFound
	}
	if r.share != nil {
		return ErrAlreadySharing
	}

	r.share = &models.ScreenShare{UserID: id, UserName: m.name, StreamID: streamID}
	r.broadcast(models.Event{Type: models.EventShareStarted, Payload: *r.share}, id)
	notice := fmt.Sprintf("%s started sharing their screen", m.name)
	r.broadcast(models.Event{Type: models.EventReceiveMessage, Payload: r.systemMessage(notice)}, id)
	return nil
}

// StopShare releases the share slot if, and only if, the caller holds
// it. A stop by anyone else leaves the active share untouched.
func (r *Room) StopShare(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.share == nil || r.share.UserID != id {
		return false
	}
	r.stopShareLocked()
	return true
}

// stopShareLocked clears the slot and notifies everyone except the
// (now former) sharer. Caller holds r.mu.
func (r *Room) stopShareLocked() {
	share := *r.share
	r.share = nil
	r.broadcast(models.Event{
		Type:    models.EventShareStopped,
		Payload: models.ShareStoppedPayload{UserID: share.UserID, UserName: share.UserName},
	}, share.UserID)
	notice := fmt.Sprintf("%s stopped sharing their screen", share.UserName)
	r.broadcast(models.Event{Type: models.EventReceiveMessage, Payload: r.systemMessage(notice)}, share.UserID)
}

// Relay delivers an opaque negotiation payload to one specific member.
// A target that already disconnected is silently skipped; the sender
// re-issues negotiation state on its own schedule.
func (r *Room) Relay(kind models.EventType, fromID, fromName, targetID string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.findMember(targetID)
	if target == nil {
		return
	}
	target.conn.Deliver(models.Event{
		Type: kind,
		Payload: models.SignalEnvelope{
			FromUserID:   fromID,
			FromUserName: fromName,
			Payload:      payload,
		},
	})
}

// Participants returns the current list, instructor first, students in
// join order.
func (r *Room) Participants() []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantsLocked()
}

// ActiveShare returns the current share descriptor, or nil.
func (r *Room) ActiveShare() *models.ScreenShare {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.share == nil {
		return nil
	}
	share := *r.share
	return &share
}

// Empty reports whether the room has no members.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instructor == nil && len(r.students) == 0
}

func (r *Room) findMember(id string) *member {
	if r.instructor != nil && r.instructor.id == id {
		return r.instructor
	}
	for _, s := range r.students {
		if s.id == id {
			return s
		}
	}
	return nil
}

func (r *Room) participantsLocked() []models.Participant {
	list := make([]models.Participant, 0, len(r.students)+1)
	if r.instructor != nil {
		list = append(list, models.Participant{Name: r.instructor.name, Role: r.instructor.role})
	}
	for _, s := range r.students {
		list = append(list, models.Participant{Name: s.name, Role: s.role})
	}
	return list
}

// systemMessage builds a synthetic chat record. System records are
// broadcast only, never appended to history.
func (r *Room) systemMessage(text string) models.ChatMessage {
	return models.ChatMessage{
		ID:        ulid.Make().String(),
		Text:      text,
		Sender:    "system",
		Timestamp: time.Now(),
		System:    true,
	}
}

// broadcast enqueues an event to every member except excludeID. Caller
// holds r.mu; Deliver is non-blocking so no network I/O happens under
// the lock.
func (r *Room) broadcast(e models.Event, excludeID string) {
	if r.instructor != nil && r.instructor.id != excludeID {
		r.instructor.conn.Deliver(e)
	}
	for _, s := range r.students {
		if s.id != excludeID {
			s.conn.Deliver(e)
		}
	}
}

func (r *Room) broadcastUserList() {
	r.broadcast(models.Event{Type: models.EventUserList, Payload: r.participantsLocked()}, "")
}
