package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const publishTimeout = 2 * time.Second

// publisher is the part of *redis.Client the relay publishes through.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// relayEnvelope carries an already encoded event for one user across
// instances.
type relayEnvelope struct {
	Origin string          `json:"origin"`
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

// EnableRedisSync makes every delivery also reach connections held by other
// server instances subscribed to the same channel. Presence lists remain
// computed from local connections.
func (h *Hub) EnableRedisSync(rdb *redis.Client, channel string) {
	h.rdb = rdb
	h.pub = rdb
	h.channel = channel
	h.instanceID = uuid.New().String()
}

func (h *Hub) ListenToRedis(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.logger.Info("Listening for Redis Pub/Sub messages", "channel", h.channel, "instance_id", h.instanceID)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRedisEnvelope(msg.Payload)
		}
	}
}

func (h *Hub) handleRedisEnvelope(payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		h.logger.Error("Error unmarshaling Redis message", "error", err)
		return
	}
	if env.Origin == h.instanceID || env.UserID == "" {
		return
	}
	h.deliverLocal(env.UserID, env.Data)
}

func (h *Hub) publish(userID string, data []byte) {
	if h.pub == nil {
		return
	}

	payload, err := json.Marshal(relayEnvelope{Origin: h.instanceID, UserID: userID, Data: data})
	if err != nil {
		h.logger.Error("Error encoding relay envelope", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.pub.Publish(ctx, h.channel, payload).Err(); err != nil {
		h.logger.Error("Error publishing to Redis", "error", err, "user_id", userID)
	}
}
