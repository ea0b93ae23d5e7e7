package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/Bharath-S-J/Intent-Chat/config"
	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

type fakeConn struct {
	userID string
	full   bool

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn(userID string) *fakeConn {
	return &fakeConn{userID: userID}
}

func (c *fakeConn) UserID() string { return c.userID }

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full || c.closed {
		return false
	}
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) events(t *testing.T) []WsMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WsMessage, 0, len(c.frames))
	for _, f := range c.frames {
		var m WsMessage
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// onlineLists decodes every getOnlineUsers payload received by c.
func (c *fakeConn) onlineLists(t *testing.T) [][]string {
	t.Helper()
	var lists [][]string
	for _, e := range c.events(t) {
		if e.Type != EventGetOnlineUsers {
			continue
		}
		var ids []string
		require.NoError(t, json.Unmarshal(e.Payload, &ids))
		lists = append(lists, ids)
	}
	return lists
}

// directory maps each user to the ids in their contact list.
type directory map[string][]string

func (d directory) GetContactIDs(_ context.Context, userID string) ([]string, error) {
	return d[userID], nil
}

func (d directory) GetContactOwners(_ context.Context, userID string) ([]string, error) {
	var owners []string
	for owner, ids := range d {
		for _, id := range ids {
			if id == userID {
				owners = append(owners, owner)
			}
		}
	}
	return owners, nil
}

func newTestHub(t *testing.T, d directory) *Hub {
	return NewHub(d, NewPresence(), config.WebSocketConfig{}, slogt.New(t))
}

func TestHub_ConnectSendsOnlineContacts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newTestHub(t, directory{
		"alice": {"bob", "carol"},
		"bob":   {"alice"},
		"carol": {"alice"},
	})

	bob := newFakeConn("bob")
	h.Connect(ctx, bob)
	req.Equal([][]string{{}}, bob.onlineLists(t))
	bob.reset()

	// When alice connects
	alice := newFakeConn("alice")
	h.Connect(ctx, alice)

	// Then alice sees bob and bob sees alice
	req.Equal([][]string{{"bob"}}, alice.onlineLists(t))
	req.Equal([][]string{{"alice"}}, bob.onlineLists(t))
}

func TestHub_SecondConnectionDoesNotNotifyWatchers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newTestHub(t, directory{"alice": {"bob"}, "bob": {"alice"}})

	bob := newFakeConn("bob")
	h.Connect(ctx, bob)
	h.Connect(ctx, newFakeConn("alice"))
	bob.reset()

	tab := newFakeConn("alice")
	h.Connect(ctx, tab)

	req.Empty(bob.onlineLists(t))
	req.Equal([][]string{{"bob"}}, tab.onlineLists(t))
}

func TestHub_ConnectOnlySendsListToNewConnection(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newTestHub(t, directory{"alice": {"bob"}, "bob": {"alice"}})

	h.Connect(ctx, newFakeConn("bob"))
	laptop := newFakeConn("alice")
	h.Connect(ctx, laptop)
	laptop.reset()

	phone := newFakeConn("alice")
	h.Connect(ctx, phone)

	req.Empty(laptop.events(t))
	req.Equal([][]string{{"bob"}}, phone.onlineLists(t))
}

func TestHub_DisconnectNotifiesWatchers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newTestHub(t, directory{"alice": {"bob"}, "bob": {"alice"}})

	bob := newFakeConn("bob")
	alice1 := newFakeConn("alice")
	alice2 := newFakeConn("alice")
	h.Connect(ctx, bob)
	h.Connect(ctx, alice1)
	h.Connect(ctx, alice2)
	bob.reset()

	// Closing one of two tabs keeps alice online
	h.Disconnect(ctx, alice1)
	req.Empty(bob.onlineLists(t))
	req.True(h.Presence().IsOnline("alice"))

	h.Disconnect(ctx, alice2)
	req.Equal([][]string{{}}, bob.onlineLists(t))
	req.False(h.Presence().IsOnline("alice"))
}

func TestHub_ContactsChanged(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	d := directory{"alice": {}, "bob": {}}
	h := newTestHub(t, d)

	alice := newFakeConn("alice")
	bob := newFakeConn("bob")
	h.Connect(ctx, alice)
	h.Connect(ctx, bob)
	alice.reset()
	bob.reset()

	d["alice"] = []string{"bob"}
	d["bob"] = []string{"alice"}
	h.ContactsChanged(ctx, "alice", "bob", "carol")

	req.Equal([][]string{{"bob"}}, alice.onlineLists(t))
	req.Equal([][]string{{"alice"}}, bob.onlineLists(t))
}

func TestHub_MessageCreated(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newTestHub(t, directory{})

	alice := newFakeConn("alice")
	bob := newFakeConn("bob")
	bobPhone := newFakeConn("bob")
	for _, c := range []*fakeConn{alice, bob, bobPhone} {
		h.Connect(ctx, c)
		c.reset()
	}

	msg := models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Text: "hi"}
	h.MessageCreated(msg)

	for _, c := range []*fakeConn{alice, bob, bobPhone} {
		events := c.events(t)
		req.Len(events, 1)
		req.Equal(EventNewMessage, events[0].Type)

		var got map[string]any
		req.NoError(json.Unmarshal(events[0].Payload, &got))
		req.Equal("m1", got["_id"])
		req.Contains(got, "tone")
		req.Nil(got["tone"])
	}
}

func TestHub_ToneUpdated(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newTestHub(t, directory{})

	alice := newFakeConn("alice")
	h.Connect(ctx, alice)
	alice.reset()

	// bob is offline and simply misses the event
	h.ToneUpdated(models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Text: "hi"}, models.ToneSurprise)

	events := alice.events(t)
	req.Len(events, 1)
	req.Equal(EventUpdateMessageTone, events[0].Type)

	var got models.ToneUpdate
	req.NoError(json.Unmarshal(events[0].Payload, &got))
	if diff := cmp.Diff(models.ToneUpdate{MessageID: "m1", Tone: models.ToneSurprise}, got); diff != "" {
		t.Errorf("tone update mismatch (-want +got):\n%s", diff)
	}
}

func TestHub_SlowClientIsClosed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newTestHub(t, directory{})

	slow := newFakeConn("bob")
	fast := newFakeConn("bob")
	h.Connect(ctx, slow)
	h.Connect(ctx, fast)
	slow.full = true

	n := h.deliver("bob", WsMessage{Type: EventNewMessage, Payload: json.RawMessage(`{}`)})

	req.Equal(1, n)
	req.True(slow.closed)
	req.False(fast.closed)
}

func TestHub_HandleRedisEnvelope(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newTestHub(t, directory{})
	h.instanceID = "self"

	bob := newFakeConn("bob")
	h.Connect(ctx, bob)
	bob.reset()

	envelope := func(origin, userID string) string {
		data, err := json.Marshal(relayEnvelope{
			Origin: origin,
			UserID: userID,
			Data:   marshalMessage(WsMessage{Type: EventNewMessage, Payload: json.RawMessage(`{"_id":"m1"}`)}),
		})
		req.NoError(err)
		return string(data)
	}

	h.handleRedisEnvelope(envelope("self", "bob"))
	h.handleRedisEnvelope(envelope("other", ""))
	h.handleRedisEnvelope("not json")
	req.Empty(bob.events(t))

	h.handleRedisEnvelope(envelope("other", "bob"))
	events := bob.events(t)
	req.Len(events, 1)
	req.Equal(EventNewMessage, events[0].Type)
}

// bus forwards every publish straight to the subscribed hubs.
type bus struct {
	hubs []*Hub
}

func (b *bus) Publish(ctx context.Context, _ string, message interface{}) *redis.IntCmd {
	payload := string(message.([]byte))
	for _, h := range b.hubs {
		h.handleRedisEnvelope(payload)
	}
	return redis.NewIntCmd(ctx)
}

func newRelayedHubs(t *testing.T, d directory) (*Hub, *Hub) {
	a, b := newTestHub(t, d), newTestHub(t, d)
	a.instanceID, b.instanceID = "a", "b"
	relay := &bus{hubs: []*Hub{a, b}}
	a.pub, b.pub = relay, relay
	return a, b
}

func TestHub_RelayKeepsPresenceListsLocal(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	a, b := newRelayedHubs(t, directory{"alice": {"bob"}, "bob": {"alice"}})

	// Given bob and one alice tab on instance b
	bob := newFakeConn("bob")
	tabB := newFakeConn("alice")
	b.Connect(ctx, bob)
	b.Connect(ctx, tabB)
	req.Equal([][]string{{"bob"}}, tabB.onlineLists(t))
	tabB.reset()
	bob.reset()

	// When alice opens a tab on instance a, where bob is not connected
	tabA := newFakeConn("alice")
	a.Connect(ctx, tabA)

	// Then only the new tab gets a's list and the b tab keeps its own
	req.Equal([][]string{{}}, tabA.onlineLists(t))
	req.Empty(tabB.events(t))
	req.Empty(bob.events(t))

	// Message events still cross instances
	a.MessageCreated(models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Text: "hi"})
	req.Len(bob.events(t), 1)
	req.Len(tabB.events(t), 1)
	req.Len(tabA.events(t), 2)
}
