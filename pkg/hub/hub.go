package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/Bharath-S-J/Intent-Chat/config"
	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

// Server to client events.
const (
	EventNewMessage        = "newMessage"
	EventUpdateMessageTone = "updateMessageTone"
	EventGetOnlineUsers    = "getOnlineUsers"
)

type WsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ContactDirectory answers the contact questions presence fanout needs.
type ContactDirectory interface {
	GetContactIDs(ctx context.Context, userID string) ([]string, error)
	GetContactOwners(ctx context.Context, userID string) ([]string, error)
}

// Hub pushes message and presence events to connected users.
type Hub struct {
	contacts ContactDirectory
	presence *Presence
	ws       config.WebSocketConfig
	logger   *slog.Logger

	// Redis relay, nil unless EnableRedisSync was called.
	rdb        *redis.Client
	pub        publisher
	channel    string
	instanceID string
}

func NewHub(contacts ContactDirectory, presence *Presence, ws config.WebSocketConfig, logger *slog.Logger) *Hub {
	return &Hub{
		contacts: contacts,
		presence: presence,
		ws:       ws,
		logger:   logger,
	}
}

func (h *Hub) Presence() *Presence {
	return h.presence
}

// Connect registers c, sends the new connection the online contacts and,
// when the user just came online, refreshes the lists of everyone watching
// them. The user's other connections are not sent the list again.
func (h *Hub) Connect(ctx context.Context, c Conn) {
	first := h.presence.Register(c)
	h.logger.Info("Client registered", "user_id", c.UserID(), "first_connection", first)

	if data, ok := h.onlineContactsFrame(ctx, c.UserID()); ok && !c.Send(data) {
		h.logger.Warn("Dropping slow client", "user_id", c.UserID())
		c.Close()
	}
	if first {
		h.notifyWatchers(ctx, c.UserID())
	}
}

// Disconnect unregisters c and refreshes the watchers when the user went
// offline.
func (h *Hub) Disconnect(ctx context.Context, c Conn) {
	last := h.presence.Unregister(c)
	h.logger.Info("Client unregistered", "user_id", c.UserID(), "offline", last)

	if last {
		h.notifyWatchers(ctx, c.UserID())
	}
}

// MessageCreated delivers msg to the receiver and to the sender's other
// connections. A text message carries a null tone until classified.
func (h *Hub) MessageCreated(msg models.Message) {
	event := WsMessage{Type: EventNewMessage, Payload: marshalPayload(msg)}

	delivered := h.deliver(msg.ReceiverID, event)
	if msg.SenderID != msg.ReceiverID {
		h.deliver(msg.SenderID, event)
	}
	h.logger.Debug("Message fanned out",
		"message_id", msg.ID, "receiver_id", msg.ReceiverID, "receiver_connections", delivered)
}

// ToneUpdated tells both parties the final tone of msg. Offline parties
// miss it and see the stored tone on their next history fetch.
func (h *Hub) ToneUpdated(msg models.Message, tone models.Tone) {
	event := WsMessage{
		Type:    EventUpdateMessageTone,
		Payload: marshalPayload(models.ToneUpdate{MessageID: msg.ID, Tone: tone}),
	}

	h.deliver(msg.ReceiverID, event)
	if msg.SenderID != msg.ReceiverID {
		h.deliver(msg.SenderID, event)
	}
}

// ContactsChanged re-sends the online contacts of each listed user.
func (h *Hub) ContactsChanged(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		h.emitOnlineContacts(ctx, id)
	}
}

// OnlineContacts returns the contacts of userID that are connected.
func (h *Hub) OnlineContacts(ctx context.Context, userID string) ([]string, error) {
	ids, err := h.contacts.GetContactIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.presence.Online(ids), nil
}

// emitOnlineContacts refreshes the list on every local connection of
// userID. Lists are built from local presence, so they are never relayed:
// another instance would overwrite its own list with this partial one.
func (h *Hub) emitOnlineContacts(ctx context.Context, userID string) {
	if !h.presence.IsOnline(userID) {
		return
	}
	if data, ok := h.onlineContactsFrame(ctx, userID); ok {
		h.deliverLocal(userID, data)
	}
}

func (h *Hub) onlineContactsFrame(ctx context.Context, userID string) ([]byte, bool) {
	online, err := h.OnlineContacts(ctx, userID)
	if err != nil {
		h.logger.Error("Error getting online contacts", "error", err, "user_id", userID)
		return nil, false
	}
	return marshalMessage(WsMessage{Type: EventGetOnlineUsers, Payload: marshalPayload(online)}), true
}

func (h *Hub) notifyWatchers(ctx context.Context, userID string) {
	owners, err := h.contacts.GetContactOwners(ctx, userID)
	if err != nil {
		h.logger.Error("Error getting contact owners", "error", err, "user_id", userID)
		return
	}

	for _, owner := range h.presence.Online(owners) {
		h.emitOnlineContacts(ctx, owner)
	}
}

// deliver sends event to every local connection of userID and relays it to
// the other instances. It returns the number of local connections reached.
func (h *Hub) deliver(userID string, event WsMessage) int {
	data := marshalMessage(event)
	n := h.deliverLocal(userID, data)
	h.publish(userID, data)
	return n
}

func (h *Hub) deliverLocal(userID string, data []byte) int {
	delivered := 0
	for _, c := range h.presence.Lookup(userID) {
		if c.Send(data) {
			delivered++
			continue
		}
		// Client buffer full, disconnect
		h.logger.Warn("Dropping slow client", "user_id", userID)
		c.Close()
	}
	return delivered
}

// Helper functions
func marshalMessage(msg WsMessage) []byte {
	data, _ := json.Marshal(msg)
	return data
}

func marshalPayload(payload interface{}) json.RawMessage {
	data, _ := json.Marshal(payload)
	return data
}
