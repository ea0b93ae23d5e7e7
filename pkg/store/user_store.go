package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

// ErrAlreadyExists is returned when a unique row is inserted twice.
var ErrAlreadyExists = errors.New("already exists")

const userColumns = `id, email, full_name, profile_pic, created_at`

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.logger.Info("Creating user", "email", user.Email, "name", user.FullName)

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO users (id, email, full_name, profile_pic, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.DB.ExecContext(ctx, query,
		user.ID, user.Email, user.FullName, user.ProfilePic, user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", user.Email, ErrAlreadyExists)
	}
	if err != nil {
		s.logger.Error("Failed to create user", "error", err, "email", user.Email)
		return fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User created successfully", "user_id", user.ID, "email", user.Email)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	s.logger.Debug("Getting user by ID", "user_id", userID)

	if _, err := uuid.Parse(userID); err != nil {
		// Not a valid id, so there can be no such user.
		return nil, nil
	}

	user, err := s.scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		s.logger.Error("Failed to get user by ID", "error", err, "user_id", userID)
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.logger.Debug("Getting user by email", "email", email)

	user, err := s.scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		s.logger.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return user, nil
}

// scanUser returns nil, nil when the row does not exist.
func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.ProfilePic, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// GetContact returns the userID -> contactID relationship, or nil when absent.
func (s *Store) GetContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	s.logger.Debug("Getting contact", "user_id", userID, "contact_id", contactID)

	query := `
		SELECT user_id, contact_id, is_friend, message_count, created_at
		FROM contacts WHERE user_id = $1 AND contact_id = $2`

	var (
		contact models.Contact
		count   sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx, query, userID, contactID).Scan(
		&contact.UserID, &contact.ContactUserID, &contact.IsFriend, &count, &contact.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get contact", "error", err, "user_id", userID, "contact_id", contactID)
		return nil, fmt.Errorf("get contact: %w", err)
	}
	if count.Valid {
		n := int(count.Int64)
		contact.MessageCount = &n
	}
	return &contact, nil
}

// GetContacts returns the users userID lists as contacts, in the order they
// were added.
func (s *Store) GetContacts(ctx context.Context, userID string) ([]models.User, error) {
	s.logger.Debug("Getting contacts", "user_id", userID)

	query := `
		SELECT u.id, u.email, u.full_name, u.profile_pic, u.created_at
		FROM contacts c
		JOIN users u ON c.contact_id = u.id
		WHERE c.user_id = $1
		ORDER BY c.created_at, u.id`

	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		s.logger.Error("Failed to get contacts", "error", err, "user_id", userID)
		return nil, fmt.Errorf("get contacts: %w", err)
	}
	defer rows.Close()

	contacts := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.FullName, &user.ProfilePic, &user.CreatedAt); err != nil {
			s.logger.Error("Failed to scan contact row", "error", err, "user_id", userID)
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}

	s.logger.Debug("Contacts retrieved", "user_id", userID, "contact_count", len(contacts))
	return contacts, nil
}

// GetContactIDs lists the ids userID has as contacts.
func (s *Store) GetContactIDs(ctx context.Context, userID string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT contact_id FROM contacts WHERE user_id = $1 ORDER BY created_at`, userID)
}

// GetContactOwners lists the users who have userID in their contact list.
func (s *Store) GetContactOwners(ctx context.Context, userID string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT user_id FROM contacts WHERE contact_id = $1`, userID)
}

func (s *Store) queryIDs(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		s.logger.Error("Failed to query contact ids", "error", err, "user_id", userID)
		return nil, fmt.Errorf("query contact ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan contact id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddMutualContacts links userID and contactID in both directions. It fails
// with ErrAlreadyExists when userID already lists contactID; a pre-existing
// reverse row is kept as it is.
func (s *Store) AddMutualContacts(ctx context.Context, userID, contactID string) error {
	s.logger.Info("Adding mutual contacts", "user_id", userID, "contact_id", contactID)

	insert := `
		INSERT INTO contacts (user_id, contact_id, is_friend, message_count)
		VALUES ($1, $2, FALSE, 0)
		ON CONFLICT (user_id, contact_id) DO NOTHING`

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insert, userID, contactID)
		if err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadyExists
		}
		if _, err := tx.ExecContext(ctx, insert, contactID, userID); err != nil {
			return fmt.Errorf("insert reverse contact: %w", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrAlreadyExists) {
		s.logger.Error("Failed to add mutual contacts",
			"error", err, "user_id", userID, "contact_id", contactID)
	}
	return err
}

// RemoveContactPair deletes both directions of the relationship and every
// message exchanged between the two users in one transaction. It returns
// ErrNotFound when userID does not list contactID.
func (s *Store) RemoveContactPair(ctx context.Context, userID, contactID string) (int64, error) {
	s.logger.Info("Removing contact pair", "user_id", userID, "contact_id", contactID)

	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM contacts WHERE user_id = $1 AND contact_id = $2`, userID, contactID)
		if err != nil {
			return fmt.Errorf("delete contact: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM contacts WHERE user_id = $1 AND contact_id = $2`, contactID, userID); err != nil {
			return fmt.Errorf("delete reverse contact: %w", err)
		}

		deleted, err = deleteConversation(ctx, tx, userID, contactID)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("Failed to remove contact pair",
				"error", err, "user_id", userID, "contact_id", contactID)
		}
		return 0, err
	}

	s.logger.Info("Contact pair removed",
		"user_id", userID, "contact_id", contactID, "deleted_messages", deleted)
	return deleted, nil
}

// PromoteToFriends marks both directions as friends and clears their
// counters in a single statement. A missing reverse row is not an error.
func (s *Store) PromoteToFriends(ctx context.Context, userID, contactID string) error {
	s.logger.Info("Promoting contacts to friends", "user_id", userID, "contact_id", contactID)

	query := `
		UPDATE contacts
		SET is_friend = TRUE, message_count = NULL
		WHERE (user_id = $1 AND contact_id = $2)
		   OR (user_id = $2 AND contact_id = $1)`

	if _, err := s.DB.ExecContext(ctx, query, userID, contactID); err != nil {
		s.logger.Error("Failed to promote contacts",
			"error", err, "user_id", userID, "contact_id", contactID)
		return fmt.Errorf("promote contacts: %w", err)
	}
	return nil
}

// IncrementMessageCount bumps the unanswered counter of userID -> contactID
// while it is below limit. ok is false when the cap was already reached or
// the pair is no longer eligible (missing row or already friends).
func (s *Store) IncrementMessageCount(ctx context.Context, userID, contactID string, limit int) (count int, ok bool, err error) {
	query := `
		UPDATE contacts
		SET message_count = COALESCE(message_count, 0) + 1
		WHERE user_id = $1 AND contact_id = $2
		  AND NOT is_friend
		  AND COALESCE(message_count, 0) < $3
		RETURNING message_count`

	err = s.DB.QueryRowContext(ctx, query, userID, contactID, limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		s.logger.Error("Failed to increment message count",
			"error", err, "user_id", userID, "contact_id", contactID)
		return 0, false, fmt.Errorf("increment message count: %w", err)
	}

	s.logger.Debug("Message count incremented",
		"user_id", userID, "contact_id", contactID, "message_count", count)
	return count, true, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
