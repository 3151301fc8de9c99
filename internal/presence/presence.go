// Package presence mirrors the live room/peer table into Redis so other
// services (dashboards, the room-directory API) can see what is active.
// The in-memory registry stays authoritative; every write here is
// best-effort and happens outside the room locks.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/classdeck/signaling/config"
)

const (
	mirrorTTL = 24 * time.Hour
	opTimeout = 2 * time.Second
)

// Mirror wraps the Redis client. A nil *Mirror is valid and turns every
// method into a no-op, which is how the server runs without Redis.
type Mirror struct {
	client *redis.Client
}

// Connect opens and pings the Redis client.
func Connect(cfg config.RedisConfig) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Mirror{client: client}, nil
}

// Close closes the underlying client.
func (m *Mirror) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}

// RoomCreated records a live room code.
func (m *Mirror) RoomCreated(code string) {
	m.do(func(ctx context.Context) error {
		return m.client.Set(ctx, "room:"+code, time.Now().Format(time.RFC3339), mirrorTTL).Err()
	}, "room created", code)
}

// RoomDeleted drops a room code and its peer set.
func (m *Mirror) RoomDeleted(code string) {
	m.do(func(ctx context.Context) error {
		return m.client.Del(ctx, "room:"+code, "room:"+code+":peers").Err()
	}, "room deleted", code)
}

// PeerJoined adds a connection identity to a room's peer set.
func (m *Mirror) PeerJoined(code, peerID string) {
	m.do(func(ctx context.Context) error {
		if err := m.client.SAdd(ctx, "room:"+code+":peers", peerID).Err(); err != nil {
			return err
		}
		return m.client.Expire(ctx, "room:"+code+":peers", mirrorTTL).Err()
	}, "peer joined", code)
}

// PeerLeft removes a connection identity from a room's peer set.
func (m *Mirror) PeerLeft(code, peerID string) {
	m.do(func(ctx context.Context) error {
		return m.client.SRem(ctx, "room:"+code+":peers", peerID).Err()
	}, "peer left", code)
}

func (m *Mirror) do(op func(context.Context) error, action, code string) {
	if m == nil || m.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := op(ctx); err != nil {
		logrus.WithFields(logrus.Fields{"room": code, "action": action}).
			Warnf("presence mirror write failed: %v", err)
	}
}
