package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/classdeck/signaling/internal/models"
	"github.com/classdeck/signaling/internal/presence"
	"github.com/classdeck/signaling/internal/room"
)

// CreateRoom allocates an empty room and hands back its code. Rooms are
// created before anyone joins and die the moment the last participant
// leaves.
func CreateRoom(reg *room.Registry, mirror *presence.Mirror) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, _ := reg.Create()
		mirror.RoomCreated(code)

		logrus.WithField("room", code).Info("room created")
		c.JSON(http.StatusCreated, models.CreateRoomResponse{RoomID: code})
	}
}

// RoomExists reports whether a room code is live. Codes are matched
// case-insensitively.
func RoomExists(reg *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, ok := reg.Lookup(c.Param("roomId"))
		c.JSON(http.StatusOK, models.RoomExistsResponse{Exists: ok})
	}
}
