// Package messaging implements direct message delivery: the contact gate,
// persistence, realtime dispatch and the asynchronous tone enrichment.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

var (
	ErrEmptyMessage    = errors.New("message must contain text or an image")
	ErrUserNotFound    = errors.New("user not found")
	ErrContactNotFound = errors.New("contact not found")
	ErrLimitReached    = errors.New("message limit reached")
	ErrUploadDisabled  = errors.New("image upload is not configured")
)

type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

type MessageStore interface {
	ReplyChecker
	ToneStore
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetConversation(ctx context.Context, userID, otherID string) ([]models.Message, error)
}

// Uploader stores image bytes and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

type SendInput struct {
	SenderID   string
	ReceiverID string
	Text       string
	Image      []byte
}

type Service struct {
	users    UserDirectory
	messages MessageStore
	gate     *Gate
	uploader Uploader
	notifier Notifier
	tone     *ToneEnricher
	logger   *slog.Logger
}

// NewService wires the send pipeline. uploader may be nil, in which case
// image messages are refused with ErrUploadDisabled.
func NewService(
	users UserDirectory,
	messages MessageStore,
	gate *Gate,
	uploader Uploader,
	notifier Notifier,
	tone *ToneEnricher,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		messages: messages,
		gate:     gate,
		uploader: uploader,
		notifier: notifier,
		tone:     tone,
		logger:   logger,
	}
}

// Conversation lists the messages between userID and otherID, oldest first.
func (s *Service) Conversation(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	msgs, err := s.messages.GetConversation(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return msgs, nil
}

// Send admits, uploads and persists a message. It does not notify anyone:
// callers respond first and then hand the result to Dispatch.
func (s *Service) Send(ctx context.Context, in SendInput) (models.Message, error) {
	text := in.Text
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	if text == "" && len(in.Image) == 0 {
		return models.Message{}, ErrEmptyMessage
	}
	if len(in.Image) > 0 && s.uploader == nil {
		return models.Message{}, ErrUploadDisabled
	}

	if err := s.requireUsers(ctx, in.SenderID, in.ReceiverID); err != nil {
		return models.Message{}, err
	}

	decision, err := s.gate.Check(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return models.Message{}, fmt.Errorf("messaging gate: %w", err)
	}
	if !decision.Allowed {
		if decision.Reason == ReasonContactNotFound {
			return models.Message{}, ErrContactNotFound
		}
		return models.Message{}, ErrLimitReached
	}

	msg := models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Text:       text,
	}

	if len(in.Image) > 0 {
		url, err := s.uploader.Upload(ctx, in.Image)
		if err != nil {
			return models.Message{}, fmt.Errorf("upload image: %w", err)
		}
		msg.Image = url
	}

	if err := s.messages.SaveMessage(ctx, &msg); err != nil {
		return models.Message{}, fmt.Errorf("save message: %w", err)
	}

	s.logger.Info("Message sent",
		"message_id", msg.ID, "sender_id", msg.SenderID, "receiver_id", msg.ReceiverID,
		"promoted", decision.Promoted, "message_count", decision.MessageCount)
	return msg, nil
}

// Dispatch fans a persisted message out and starts its tone classification.
func (s *Service) Dispatch(msg models.Message) {
	s.notifier.MessageCreated(msg)
	s.tone.Spawn(msg)
}

func (s *Service) requireUsers(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		user, err := s.users.GetUserByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get user %s: %w", id, err)
		}
		if user == nil {
			return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
		}
	}
	return nil
}
