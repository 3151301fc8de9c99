package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdeck/signaling/internal/models"
	"github.com/classdeck/signaling/internal/room"
)

func newTestRouter(reg *room.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/create-room", CreateRoom(reg, nil))
	router.GET("/api/room/:roomId", RoomExists(reg))
	return router
}

func TestCreateRoom(t *testing.T) {
	reg := room.NewRegistry()
	router := newTestRouter(reg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/create-room", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.CreateRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.RoomID, 6)

	_, ok := reg.Lookup(resp.RoomID)
	assert.True(t, ok, "created room must be live in the registry")
}

func TestRoomExists(t *testing.T) {
	reg := room.NewRegistry()
	router := newTestRouter(reg)
	code, _ := reg.Create()

	check := func(id string) models.RoomExistsResponse {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/room/"+id, nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.RoomExistsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	assert.True(t, check(code).Exists)
	assert.True(t, check(strings.ToLower(code)).Exists, "codes are case-insensitive")
	assert.False(t, check("ZZZZZZ").Exists)
}
