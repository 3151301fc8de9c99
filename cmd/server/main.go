package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/classdeck/signaling/config"
	"github.com/classdeck/signaling/internal/handlers"
	"github.com/classdeck/signaling/internal/presence"
	"github.com/classdeck/signaling/internal/room"
)

func main() {
	cfg := config.Load()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	// The presence mirror is optional; without Redis the server runs on
	// its in-memory registry alone.
	var mirror *presence.Mirror
	if cfg.Redis.Host != "" {
		m, err := presence.Connect(cfg.Redis)
		if err != nil {
			logrus.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer m.Close()
		mirror = m
		logrus.Info("Redis presence mirror enabled")
	}

	reg := room.NewRegistry()

	router := gin.Default()
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/create-room", handlers.CreateRoom(reg, mirror))
		apiGroup.GET("/room/:roomId", handlers.RoomExists(reg))
	}

	router.GET("/ws", handlers.ServeWS(reg, mirror, cfg.MaxFrameBytes))

	logrus.Infof("Starting classroom signaling server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatal("Failed to start server: ", err)
	}
}
