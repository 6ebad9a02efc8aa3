package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// envelope is the Redis wire format. Origin lets an instance skip its own
// messages: those were already broadcast to the local hub.
type envelope struct {
	Origin  string          `json:"origin"`
	UserID  string          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay publishes user events to a Redis channel and relays events
// published by other instances into the local hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
}

// NewRedisRelay creates a relay on channel.
func NewRedisRelay(client *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, origin: uuid.NewString(), hub: hub}
}

// Publish sends message for userID to every other instance.
func (r *RedisRelay) Publish(ctx context.Context, userID string, message []byte) error {
	data, err := r.encode(userID, message)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run relays messages until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	slog.Info("redis relay subscribed", "channel", r.channel, "origin", r.origin)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) encode(userID string, message []byte) ([]byte, error) {
	return json.Marshal(envelope{Origin: r.origin, UserID: userID, Payload: message})
}

// handle delivers one relayed payload and returns the number of local clients reached.
func (r *RedisRelay) handle(raw string) int {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		slog.Warn("redis relay: malformed message", "error", err)
		return 0
	}
	if env.Origin == r.origin || env.UserID == "" {
		return 0
	}
	return r.hub.Broadcast(env.UserID, env.Payload)
}

// Ping checks the Redis connection.
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
