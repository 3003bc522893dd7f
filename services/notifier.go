package services

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const sessionChannel = "cashcage:session_events"

// RedisNotifier publishes a message on every ledger change so dashboards and
// reporting consumers can re-read the session instead of polling. Publishing
// is best-effort: a Redis outage is logged, never surfaced to the cashier.
type RedisNotifier struct {
	client *redis.Client
}

// NewNotifierFromEnv connects to REDIS_ADDR. With no address configured the
// notifier is nil and the engine simply skips notification.
func NewNotifierFromEnv() *RedisNotifier {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		logrus.Info("REDIS_ADDR not set, session events disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("redis unreachable, session events disabled")
		return nil
	}
	return &RedisNotifier{client: client}
}

type sessionEvent struct {
	SessionID string    `json:"session_id"`
	Event     string    `json:"event"`
	At        time.Time `json:"at"`
}

func (n *RedisNotifier) SessionChanged(sessionID, event string) {
	payload, _ := json.Marshal(sessionEvent{
		SessionID: sessionID,
		Event:     event,
		At:        time.Now(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.client.Publish(ctx, sessionChannel, payload).Err(); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"event":      event,
		}).Warn("failed to publish session event")
	}
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
