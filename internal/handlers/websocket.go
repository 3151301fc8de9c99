package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/classdeck/signaling/internal/models"
	"github.com/classdeck/signaling/internal/presence"
	"github.com/classdeck/signaling/internal/room"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client binds one websocket connection to at most one room. All reads
// happen on the readPump goroutine, all writes on the writePump
// goroutine; everyone else reaches the connection through the buffered
// send channel.
type Client struct {
	ID   string
	Name string
	Role models.Role

	conn *websocket.Conn
	send chan []byte

	room   *room.Room
	reg    *room.Registry
	mirror *presence.Mirror
}

// ServeWS upgrades the connection and starts the client's pumps. The
// session stays unbound until the client sends join-room.
func ServeWS(reg *room.Registry, mirror *presence.Mirror, maxFrameBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logrus.Warnf("failed to upgrade connection: %v", err)
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			conn:   conn,
			send:   make(chan []byte, 256),
			reg:    reg,
			mirror: mirror,
		}
		logrus.WithField("peer", client.ID).Info("connection established")

		go client.writePump()
		go client.readPump(maxFrameBytes)
	}
}

// Deliver marshals an event and enqueues it without blocking. A full
// buffer means the recipient is too slow or gone; the frame is dropped.
func (c *Client) Deliver(e models.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		logrus.Errorf("failed to marshal %s event: %v", e.Type, err)
		return
	}
	select {
	case c.send <- data:
	default:
		logrus.WithField("peer", c.ID).Warnf("send buffer full, dropping %s", e.Type)
	}
}

func (c *Client) readPump(maxFrameBytes int64) {
	defer func() {
		c.leave()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("peer", c.ID).Warnf("websocket error: %v", err)
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logrus.WithField("peer", c.ID).Warnf("failed to parse frame: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound frame. Frames that need a room binding
// are dropped while the session is unbound; malformed payloads are
// dropped without touching room state.
func (c *Client) dispatch(env models.Envelope) {
	switch env.Type {
	case models.EventJoinRoom:
		c.handleJoin(env.Payload)
		return
	}

	if c.room == nil {
		logrus.WithField("peer", c.ID).Warnf("%s before join-room, dropping", env.Type)
		return
	}

	switch env.Type {
	case models.EventSendMessage:
		c.handleMessage(env.Payload)
	case models.EventShareFile:
		c.handleFile(env.Payload)
	case models.EventStartScreenShare:
		c.handleStartShare(env.Payload)
	case models.EventStopScreenShare:
		c.room.StopShare(c.ID)
	case models.EventShareOffer, models.EventShareAnswer, models.EventShareCandidate:
		c.handleSignal(env.Type, env.Payload)
	default:
		logrus.WithField("peer", c.ID).Warnf("unknown event type: %s", env.Type)
	}
}

func (c *Client) handleJoin(raw json.RawMessage) {
	if c.room != nil {
		c.Deliver(models.Event{Type: models.EventError, Payload: "already joined a room"})
		return
	}

	var p models.JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.UserName == "" {
		c.Deliver(models.Event{Type: models.EventError, Payload: "invalid join request"})
		return
	}

	rm, ok := c.reg.Lookup(p.RoomID)
	if !ok {
		c.Deliver(models.Event{Type: models.EventError, Payload: "Room not found"})
		return
	}

	role := models.ParseRole(p.Role)
	if err := rm.Join(c.ID, p.UserName, role, c); err != nil {
		switch err {
		case room.ErrRoleTaken:
			c.Deliver(models.Event{Type: models.EventError, Payload: "instructor role already taken"})
		default:
			c.Deliver(models.Event{Type: models.EventError, Payload: "Room not found"})
		}
		return
	}

	c.room = rm
	c.Name = p.UserName
	c.Role = role
	c.mirror.PeerJoined(rm.Code, c.ID)

	logrus.WithFields(logrus.Fields{
		"peer": c.ID,
		"room": rm.Code,
		"role": role,
	}).Infof("%s joined", p.UserName)
}

// leave runs the teardown path exactly once per connection, for
// explicit leaves and abnormal disconnects alike.
func (c *Client) leave() {
	if c.room == nil {
		logrus.WithField("peer", c.ID).Info("connection closed")
		return
	}

	rm := c.room
	c.room = nil

	empty := rm.Leave(c.ID)
	c.mirror.PeerLeft(rm.Code, c.ID)
	logrus.WithFields(logrus.Fields{"peer": c.ID, "room": rm.Code}).Infof("%s left", c.Name)

	if empty && c.reg.Evict(rm) {
		c.mirror.RoomDeleted(rm.Code)
		logrus.WithField("room", rm.Code).Info("room deleted")
	}
}

func (c *Client) handleMessage(raw json.RawMessage) {
	var p models.SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Message == "" {
		logrus.WithField("peer", c.ID).Warn("malformed send-message, dropping")
		return
	}
	if p.Sender == "" {
		p.Sender = c.Name
	}
	c.room.AppendMessage(p.Message, p.Sender)
}

func (c *Client) handleFile(raw json.RawMessage) {
	var p models.ShareFilePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.FileData.Name == "" {
		logrus.WithField("peer", c.ID).Warn("malformed share-file, dropping")
		return
	}
	if p.Sender == "" {
		p.Sender = c.Name
	}
	c.room.AppendFile(p.FileData, p.Sender)
}

func (c *Client) handleStartShare(raw json.RawMessage) {
	var p models.StartSharePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		logrus.WithField("peer", c.ID).Warn("malformed start-screen-share, dropping")
		return
	}
	if err := c.room.StartShare(c.ID, p.StreamID); err != nil {
		// Non-terminal: the session keeps its room binding.
		c.Deliver(models.Event{Type: models.EventShareError, Payload: err.Error()})
	}
}

func (c *Client) handleSignal(kind models.EventType, raw json.RawMessage) {
	var p models.SignalPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.TargetUserID == "" {
		logrus.WithField("peer", c.ID).Warnf("malformed %s, dropping", kind)
		return
	}
	c.room.Relay(kind, c.ID, c.Name, p.TargetUserID, p.Payload)
}
