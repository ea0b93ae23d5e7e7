package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

const DefaultUnansweredLimit = 5

// Reasons a send is refused. They double as the client-facing message.
const (
	ReasonContactNotFound = "Contact not found"
	ReasonLimitReached    = "Message limit reached. Wait for reply from the user."
)

// ContactGraph is the contact storage the gate reads and advances.
type ContactGraph interface {
	GetContact(ctx context.Context, userID, contactID string) (*models.Contact, error)
	PromoteToFriends(ctx context.Context, userID, contactID string) error
	IncrementMessageCount(ctx context.Context, userID, contactID string, limit int) (int, bool, error)
}

// ReplyChecker answers whether one user has ever written to another.
type ReplyChecker interface {
	HasSentMessage(ctx context.Context, senderID, receiverID string) (bool, error)
}

type Decision struct {
	Allowed bool
	Reason  string
	// Promoted is set when this attempt turned the pair into friends.
	Promoted bool
	// MessageCount is the counter after a limited send was admitted.
	MessageCount int
}

// Gate throttles cold outreach: a stranger may send a limited number of
// unanswered messages, and the first reply lifts the limit for both sides.
type Gate struct {
	contacts ContactGraph
	replies  ReplyChecker
	limit    int
	logger   *slog.Logger
}

func NewGate(contacts ContactGraph, replies ReplyChecker, limit int, logger *slog.Logger) *Gate {
	if limit <= 0 {
		limit = DefaultUnansweredLimit
	}
	return &Gate{contacts: contacts, replies: replies, limit: limit, logger: logger}
}

// Check decides whether senderID may message receiverID now. Admitted
// limited sends are counted as part of the check.
func (g *Gate) Check(ctx context.Context, senderID, receiverID string) (Decision, error) {
	contact, err := g.contacts.GetContact(ctx, senderID, receiverID)
	if err != nil {
		return Decision{}, fmt.Errorf("load contact: %w", err)
	}
	if contact == nil {
		g.logger.Info("Send rejected: no contact", "sender_id", senderID, "receiver_id", receiverID)
		return Decision{Reason: ReasonContactNotFound}, nil
	}
	if contact.IsFriend {
		return Decision{Allowed: true}, nil
	}

	// Checked on every attempt so a reply is noticed even when the reverse
	// contact row appeared later than the first message.
	replied, err := g.replies.HasSentMessage(ctx, receiverID, senderID)
	if err != nil {
		return Decision{}, fmt.Errorf("check reply: %w", err)
	}
	return g.RecordOutcome(ctx, senderID, receiverID, replied)
}

// RecordOutcome advances the relationship of a non-friend pair: a reply
// promotes both sides, otherwise the sender's counter is bumped up to the cap.
func (g *Gate) RecordOutcome(ctx context.Context, senderID, receiverID string, receiverReplied bool) (Decision, error) {
	if receiverReplied {
		if err := g.contacts.PromoteToFriends(ctx, senderID, receiverID); err != nil {
			return Decision{}, fmt.Errorf("promote: %w", err)
		}
		g.logger.Info("Contacts promoted to friends", "sender_id", senderID, "receiver_id", receiverID)
		return Decision{Allowed: true, Promoted: true}, nil
	}

	count, ok, err := g.contacts.IncrementMessageCount(ctx, senderID, receiverID, g.limit)
	if err != nil {
		return Decision{}, fmt.Errorf("increment: %w", err)
	}
	if !ok {
		// The row may have been promoted or removed by a concurrent request.
		current, err := g.contacts.GetContact(ctx, senderID, receiverID)
		if err != nil {
			return Decision{}, fmt.Errorf("reload contact: %w", err)
		}
		switch {
		case current == nil:
			return Decision{Reason: ReasonContactNotFound}, nil
		case current.IsFriend:
			return Decision{Allowed: true}, nil
		}
		g.logger.Info("Send rejected: message limit reached",
			"sender_id", senderID, "receiver_id", receiverID, "limit", g.limit)
		return Decision{Reason: ReasonLimitReached}, nil
	}
	return Decision{Allowed: true, MessageCount: count}, nil
}
