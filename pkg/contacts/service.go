// Package contacts manages the mutual contact relationships that gate
// direct messaging.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
	"github.com/Bharath-S-J/Intent-Chat/pkg/store"
)

var (
	ErrUserNotFound   = errors.New("current user not found")
	ErrSelfAdd        = errors.New("cannot add yourself")
	ErrAlreadyContact = errors.New("user already in contacts")
	ErrNotFound       = errors.New("contact not found")
)

type Store interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetContacts(ctx context.Context, userID string) ([]models.User, error)
	AddMutualContacts(ctx context.Context, userID, contactID string) error
	RemoveContactPair(ctx context.Context, userID, contactID string) (int64, error)
}

type Mailer interface {
	SendInvite(ctx context.Context, to, link, inviterName string) error
}

// Watcher is told when contact lists change so presence views can refresh.
type Watcher interface {
	ContactsChanged(ctx context.Context, userIDs ...string)
}

type Outcome int

const (
	// OutcomeAdded means both users now list each other.
	OutcomeAdded Outcome = iota
	// OutcomeInvited means no account exists and an invite was mailed.
	OutcomeInvited
)

type Service struct {
	store     Store
	mailer    Mailer
	watcher   Watcher
	clientURL string
	logger    *slog.Logger
}

func NewService(s Store, mailer Mailer, watcher Watcher, clientURL string, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		mailer:    mailer,
		watcher:   watcher,
		clientURL: strings.TrimRight(clientURL, "/"),
		logger:    logger,
	}
}

// AddByEmail links userID with the account registered under email, or
// mails an invitation when there is none.
func (s *Service) AddByEmail(ctx context.Context, userID, email string) (Outcome, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	current, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get current user: %w", err)
	}
	if current == nil {
		return 0, ErrUserNotFound
	}
	if strings.EqualFold(current.Email, email) {
		return 0, ErrSelfAdd
	}

	other, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("get user by email: %w", err)
	}
	if other == nil {
		inviter := current.FullName
		if inviter == "" {
			inviter = current.Email
		}
		if err := s.mailer.SendInvite(ctx, email, s.InviteLink(userID), inviter); err != nil {
			return 0, fmt.Errorf("send invite: %w", err)
		}
		s.logger.Info("Invite sent", "user_id", userID, "email", email)
		return OutcomeInvited, nil
	}

	if err := s.store.AddMutualContacts(ctx, userID, other.ID); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return 0, ErrAlreadyContact
		}
		return 0, fmt.Errorf("add contacts: %w", err)
	}

	s.logger.Info("Contact added mutually", "user_id", userID, "contact_id", other.ID)
	s.notify(ctx, userID, other.ID)
	return OutcomeAdded, nil
}

// List returns the users userID has as contacts.
func (s *Service) List(ctx context.Context, userID string) ([]models.User, error) {
	current, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	if current == nil {
		return nil, ErrUserNotFound
	}
	return s.store.GetContacts(ctx, userID)
}

// Remove unlinks both users and deletes every message between them.
func (s *Service) Remove(ctx context.Context, userID, contactID string) (int64, error) {
	deleted, err := s.store.RemoveContactPair(ctx, userID, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("remove contact: %w", err)
	}

	s.notify(ctx, userID, contactID)
	return deleted, nil
}

// InviteLink is the signup URL that makes the invitee a contact of userID.
func (s *Service) InviteLink(userID string) string {
	return s.clientURL + "/signup?" + url.Values{"inviteFrom": {userID}}.Encode()
}

func (s *Service) notify(ctx context.Context, userIDs ...string) {
	if s.watcher != nil {
		s.watcher.ContactsChanged(ctx, userIDs...)
	}
}
