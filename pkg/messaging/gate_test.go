package messaging

import (
	"context"
	"sync"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

func TestGate_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("NoContact", func(t *testing.T) {
		req := require.New(t)
		store := newMemStore("alice", "bob")
		gate := NewGate(store, store, 5, slogt.New(t))

		d, err := gate.Check(ctx, "alice", "bob")
		req.NoError(err)
		req.False(d.Allowed)
		req.Equal(ReasonContactNotFound, d.Reason)
	})

	t.Run("Friends", func(t *testing.T) {
		req := require.New(t)
		store := newMemStore("alice", "bob")
		store.link("alice", "bob")
		req.NoError(store.PromoteToFriends(ctx, "alice", "bob"))
		gate := NewGate(store, store, 5, slogt.New(t))

		for range 10 {
			d, err := gate.Check(ctx, "alice", "bob")
			req.NoError(err)
			req.True(d.Allowed)
		}
		req.Nil(store.contact("alice", "bob").MessageCount)
	})

	t.Run("LimitReached", func(t *testing.T) {
		req := require.New(t)
		store := newMemStore("alice", "bob")
		store.link("alice", "bob")
		gate := NewGate(store, store, 5, slogt.New(t))

		// Given five unanswered messages
		for i := 1; i <= 5; i++ {
			d, err := gate.Check(ctx, "alice", "bob")
			req.NoError(err)
			req.True(d.Allowed)
			req.Equal(i, d.MessageCount)
			req.Equal(i, store.count("alice", "bob"))
		}

		// When a sixth is attempted
		d, err := gate.Check(ctx, "alice", "bob")

		// Then it is refused and the counter is unchanged
		req.NoError(err)
		req.False(d.Allowed)
		req.Equal(ReasonLimitReached, d.Reason)
		req.Equal(5, store.count("alice", "bob"))
		req.Equal(0, store.count("bob", "alice"))
	})

	t.Run("ReplyPromotes", func(t *testing.T) {
		req := require.New(t)
		store := newMemStore("alice", "bob")
		store.link("alice", "bob")
		gate := NewGate(store, store, 5, slogt.New(t))

		for range 5 {
			_, err := gate.Check(ctx, "alice", "bob")
			req.NoError(err)
		}

		// Given bob has written to alice
		req.NoError(store.SaveMessage(ctx, &models.Message{SenderID: "bob", ReceiverID: "alice", Text: "hi"}))

		// When alice sends again
		d, err := gate.Check(ctx, "alice", "bob")

		// Then both directions are friends with no counter
		req.NoError(err)
		req.True(d.Allowed)
		req.True(d.Promoted)
		for _, c := range []*models.Contact{store.contact("alice", "bob"), store.contact("bob", "alice")} {
			req.True(c.IsFriend)
			req.Nil(c.MessageCount)
		}
	})

	t.Run("DefaultLimit", func(t *testing.T) {
		req := require.New(t)
		store := newMemStore("alice", "bob")
		store.link("alice", "bob")
		gate := NewGate(store, store, 0, slogt.New(t))

		allowed := 0
		for range DefaultUnansweredLimit + 3 {
			d, err := gate.Check(ctx, "alice", "bob")
			req.NoError(err)
			if d.Allowed {
				allowed++
			}
		}
		req.Equal(DefaultUnansweredLimit, allowed)
	})
}

func TestGate_ConcurrentSendsNeverExceedLimit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newMemStore("alice", "bob")
	store.link("alice", "bob")
	gate := NewGate(store, store, 5, slogt.New(t))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := gate.Check(ctx, "alice", "bob")
			if err != nil || !d.Allowed {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
		}()
	}
	wg.Wait()

	req.Equal(5, allowed)
	req.Equal(5, store.count("alice", "bob"))
}

func TestGate_RecordOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("ContactRemovedConcurrently", func(t *testing.T) {
		req := require.New(t)
		store := newMemStore("alice", "bob")
		gate := NewGate(store, store, 5, slogt.New(t))

		d, err := gate.RecordOutcome(ctx, "alice", "bob", false)
		req.NoError(err)
		req.False(d.Allowed)
		req.Equal(ReasonContactNotFound, d.Reason)
	})

	t.Run("PromotedConcurrently", func(t *testing.T) {
		req := require.New(t)
		store := newMemStore("alice", "bob")
		store.link("alice", "bob")
		req.NoError(store.PromoteToFriends(ctx, "alice", "bob"))
		gate := NewGate(store, store, 5, slogt.New(t))

		d, err := gate.RecordOutcome(ctx, "alice", "bob", false)
		req.NoError(err)
		req.True(d.Allowed)
	})
}
