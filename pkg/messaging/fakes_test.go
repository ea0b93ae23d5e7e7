package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

type pairKey struct{ from, to string }

// memStore keeps users, contacts and messages in memory. Its counter
// increment is atomic like the SQL one.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	contacts map[pairKey]*models.Contact
	messages []models.Message
	nextID   int

	saveErr error
	toneErr error
}

func newMemStore(userIDs ...string) *memStore {
	s := &memStore{
		users:    map[string]*models.User{},
		contacts: map[pairKey]*models.Contact{},
	}
	for _, id := range userIDs {
		s.users[id] = &models.User{ID: id, Email: id + "@example.com"}
	}
	return s
}

func (s *memStore) link(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zero := 0
	other := 0
	s.contacts[pairKey{a, b}] = &models.Contact{UserID: a, ContactUserID: b, MessageCount: &zero}
	s.contacts[pairKey{b, a}] = &models.Contact{UserID: b, ContactUserID: a, MessageCount: &other}
}

func (s *memStore) count(a, b string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.contacts[pairKey{a, b}]
	if c == nil {
		return -1
	}
	return c.Count()
}

func (s *memStore) contact(a, b string) *models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.contacts[pairKey{a, b}]
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *memStore) GetContact(_ context.Context, userID, contactID string) (*models.Contact, error) {
	return s.contact(userID, contactID), nil
}

func (s *memStore) PromoteToFriends(_ context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range []pairKey{{a, b}, {b, a}} {
		if c := s.contacts[k]; c != nil {
			c.IsFriend = true
			c.MessageCount = nil
		}
	}
	return nil
}

func (s *memStore) IncrementMessageCount(_ context.Context, userID, contactID string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.contacts[pairKey{userID, contactID}]
	if c == nil || c.IsFriend || c.Count() >= limit {
		return 0, false, nil
	}
	next := c.Count() + 1
	c.MessageCount = &next
	return next, true, nil
}

func (s *memStore) HasSentMessage(_ context.Context, senderID, receiverID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) SaveMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.nextID++
	msg.ID = fmt.Sprintf("m%d", s.nextID)
	msg.CreatedAt = time.Unix(int64(s.nextID), 0).UTC()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memStore) GetConversation(_ context.Context, a, b string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) UpdateMessageTone(_ context.Context, id string, tone models.Tone) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toneErr != nil {
		return false, s.toneErr
	}
	for i := range s.messages {
		if s.messages[i].ID == id && s.messages[i].Tone == nil {
			t := tone
			s.messages[i].Tone = &t
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) storedTone(id string) *models.Tone {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m.Tone
		}
	}
	return nil
}

type toneEvent struct {
	messageID string
	tone      models.Tone
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []models.Message
	tones   []toneEvent
}

func (n *recordingNotifier) MessageCreated(msg models.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, msg)
}

func (n *recordingNotifier) ToneUpdated(msg models.Message, tone models.Tone) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tones = append(n.tones, toneEvent{msg.ID, tone})
}

func (n *recordingNotifier) toneEvents() []toneEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]toneEvent(nil), n.tones...)
}

type stubClassifier struct {
	tone models.Tone
	err  error
}

func (c stubClassifier) DetectTone(context.Context, string) (models.Tone, error) {
	return c.tone, c.err
}

type stubUploader struct {
	url   string
	err   error
	calls int
}

func (u *stubUploader) Upload(context.Context, []byte) (string, error) {
	u.calls++
	return u.url, u.err
}

var errBoom = errors.New("boom")
