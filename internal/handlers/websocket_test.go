package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdeck/signaling/internal/models"
	"github.com/classdeck/signaling/internal/room"
)

// newTestClient builds a client whose frames land in its send buffer
// instead of a websocket.
func newTestClient(reg *room.Registry) *Client {
	return &Client{
		ID:   uuid.New().String(),
		send: make(chan []byte, 64),
		reg:  reg,
	}
}

func (c *Client) drain(t *testing.T) []models.Envelope {
	t.Helper()
	var out []models.Envelope
	for {
		select {
		case data := <-c.send:
			var env models.Envelope
			require.NoError(t, json.Unmarshal(data, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func lastOfType(envs []models.Envelope, typ models.EventType) (models.Envelope, bool) {
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == typ {
			return envs[i], true
		}
	}
	return models.Envelope{}, false
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func join(t *testing.T, c *Client, roomID, name, role string) {
	t.Helper()
	c.dispatch(models.Envelope{
		Type:    models.EventJoinRoom,
		Payload: mustRaw(t, models.JoinRoomPayload{RoomID: roomID, UserName: name, Role: role}),
	})
	require.NotNil(t, c.room, "join for %s failed", name)
}

func TestDispatch_JoinUnknownRoom(t *testing.T) {
	reg := room.NewRegistry()
	c := newTestClient(reg)

	c.dispatch(models.Envelope{
		Type:    models.EventJoinRoom,
		Payload: mustRaw(t, models.JoinRoomPayload{RoomID: "ZZZZZZ", UserName: "Ana", Role: "instructor"}),
	})

	envs := c.drain(t)
	errEvt, ok := lastOfType(envs, models.EventError)
	require.True(t, ok)
	var reason string
	require.NoError(t, json.Unmarshal(errEvt.Payload, &reason))
	assert.Equal(t, "Room not found", reason)
	assert.Nil(t, c.room, "no room association may remain after a failed join")
}

func TestDispatch_SecondJoinRejectedKeepsBinding(t *testing.T) {
	reg := room.NewRegistry()
	code, _ := reg.Create()
	other, _ := reg.Create()

	c := newTestClient(reg)
	join(t, c, code, "Ana", "instructor")
	bound := c.room
	c.drain(t)

	c.dispatch(models.Envelope{
		Type:    models.EventJoinRoom,
		Payload: mustRaw(t, models.JoinRoomPayload{RoomID: other, UserName: "Ana", Role: "instructor"}),
	})

	envs := c.drain(t)
	_, ok := lastOfType(envs, models.EventError)
	assert.True(t, ok)
	assert.Same(t, bound, c.room)
}

func TestDispatch_ChatScenario(t *testing.T) {
	reg := room.NewRegistry()
	code, _ := reg.Create()

	ana := newTestClient(reg)
	join(t, ana, code, "Ana", "instructor")

	bo := newTestClient(reg)
	join(t, bo, code, "Bo", "student")

	anaEnvs := ana.drain(t)
	boEnvs := bo.drain(t)

	wantList := []models.Participant{
		{Name: "Ana", Role: models.RoleInstructor},
		{Name: "Bo", Role: models.RoleStudent},
	}
	for name, envs := range map[string][]models.Envelope{"ana": anaEnvs, "bo": boEnvs} {
		listEvt, ok := lastOfType(envs, models.EventUserList)
		require.True(t, ok, "%s got no user-list", name)
		var list []models.Participant
		require.NoError(t, json.Unmarshal(listEvt.Payload, &list))
		assert.Equal(t, wantList, list, "user-list mismatch for %s", name)
	}

	ana.dispatch(models.Envelope{
		Type:    models.EventSendMessage,
		Payload: mustRaw(t, models.SendMessagePayload{RoomID: code, Message: "hi", Sender: "Ana"}),
	})

	for name, c := range map[string]*Client{"ana": ana, "bo": bo} {
		envs := c.drain(t)
		msgEvt, ok := lastOfType(envs, models.EventReceiveMessage)
		require.True(t, ok, "%s got no receive-message", name)
		var msg models.ChatMessage
		require.NoError(t, json.Unmarshal(msgEvt.Payload, &msg))
		assert.Equal(t, "hi", msg.Text)
		assert.Equal(t, "Ana", msg.Sender)
	}

	// Bo disconnects: Ana sees the system notice and the shrunk list.
	bo.leave()
	envs := ana.drain(t)

	leftEvt, ok := lastOfType(envs, models.EventUserLeft)
	require.True(t, ok)
	var left models.UserLeftPayload
	require.NoError(t, json.Unmarshal(leftEvt.Payload, &left))
	assert.Equal(t, "Bo", left.UserName)

	noticeEvt, ok := lastOfType(envs, models.EventReceiveMessage)
	require.True(t, ok)
	var notice models.ChatMessage
	require.NoError(t, json.Unmarshal(noticeEvt.Payload, &notice))
	assert.True(t, notice.System)
	assert.Equal(t, "Bo left the session", notice.Text)

	listEvt, ok := lastOfType(envs, models.EventUserList)
	require.True(t, ok)
	var list []models.Participant
	require.NoError(t, json.Unmarshal(listEvt.Payload, &list))
	assert.Equal(t, []models.Participant{{Name: "Ana", Role: models.RoleInstructor}}, list)

	// Last one out turns off the lights.
	ana.leave()
	_, stillThere := reg.Lookup(code)
	assert.False(t, stillThere, "empty room must be deleted")
}

func TestDispatch_ScreenShareNegotiation(t *testing.T) {
	reg := room.NewRegistry()
	code, _ := reg.Create()

	ana := newTestClient(reg)
	join(t, ana, code, "Ana", "instructor")
	bo := newTestClient(reg)
	join(t, bo, code, "Bo", "student")
	ana.drain(t)
	bo.drain(t)

	ana.dispatch(models.Envelope{
		Type:    models.EventStartScreenShare,
		Payload: mustRaw(t, models.StartSharePayload{RoomID: code, StreamID: "s1"}),
	})

	startEvt, ok := lastOfType(bo.drain(t), models.EventShareStarted)
	require.True(t, ok)
	var share models.ScreenShare
	require.NoError(t, json.Unmarshal(startEvt.Payload, &share))
	assert.Equal(t, ana.ID, share.UserID)
	assert.Equal(t, "s1", share.StreamID)

	// The student answers the notification with an offer toward the sharer.
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	bo.dispatch(models.Envelope{
		Type:    models.EventShareOffer,
		Payload: mustRaw(t, models.SignalPayload{RoomID: code, TargetUserID: ana.ID, Payload: offer}),
	})

	offerEvt, ok := lastOfType(ana.drain(t), models.EventShareOffer)
	require.True(t, ok)
	var env models.SignalEnvelope
	require.NoError(t, json.Unmarshal(offerEvt.Payload, &env))
	assert.Equal(t, bo.ID, env.FromUserID)
	assert.Equal(t, "Bo", env.FromUserName)
	assert.JSONEq(t, string(offer), string(env.Payload))

	// A relay to a gone identity vanishes without an error to the sender.
	bo.dispatch(models.Envelope{
		Type:    models.EventShareCandidate,
		Payload: mustRaw(t, models.SignalPayload{RoomID: code, TargetUserID: "gone", Payload: offer}),
	})
	assert.Empty(t, bo.drain(t))
}

func TestDispatch_DuplicateShareGetsShareError(t *testing.T) {
	reg := room.NewRegistry()
	code, _ := reg.Create()

	ana := newTestClient(reg)
	join(t, ana, code, "Ana", "instructor")
	bo := newTestClient(reg)
	join(t, bo, code, "Bo", "student")

	ana.dispatch(models.Envelope{
		Type:    models.EventStartScreenShare,
		Payload: mustRaw(t, models.StartSharePayload{RoomID: code, StreamID: "s1"}),
	})
	bo.drain(t)

	bo.dispatch(models.Envelope{
		Type:    models.EventStartScreenShare,
		Payload: mustRaw(t, models.StartSharePayload{RoomID: code, StreamID: "s2"}),
	})

	evt, ok := lastOfType(bo.drain(t), models.EventShareError)
	require.True(t, ok)
	var reason string
	require.NoError(t, json.Unmarshal(evt.Payload, &reason))
	assert.Equal(t, "screen share already active", reason)
	assert.NotNil(t, bo.room, "share-error must not cost the session its room")
}

func TestDispatch_MalformedAndUnboundFramesDropped(t *testing.T) {
	reg := room.NewRegistry()
	code, _ := reg.Create()

	// Frames before join-room never reach a room.
	c := newTestClient(reg)
	c.dispatch(models.Envelope{
		Type:    models.EventSendMessage,
		Payload: mustRaw(t, models.SendMessagePayload{RoomID: code, Message: "hi", Sender: "Ana"}),
	})
	assert.Empty(t, c.drain(t))

	ana := newTestClient(reg)
	join(t, ana, code, "Ana", "instructor")
	ana.drain(t)

	// Missing message text mutates nothing.
	ana.dispatch(models.Envelope{
		Type:    models.EventSendMessage,
		Payload: mustRaw(t, models.SendMessagePayload{RoomID: code, Sender: "Ana"}),
	})
	assert.Empty(t, ana.drain(t))
}
