package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

const messageColumns = `id, sender_id, receiver_id, text, image, tone, created_at`

// SaveMessage inserts msg, filling in its id and creation time.
func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.logger.Info("Saving message",
		"sender_id", msg.SenderID, "receiver_id", msg.ReceiverID,
		"has_text", msg.HasText(), "has_image", msg.Image != "")

	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var tone sql.NullString
	if msg.Tone != nil {
		tone = sql.NullString{String: string(*msg.Tone), Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, query,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.Image, tone, msg.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to save message",
			"error", err, "sender_id", msg.SenderID, "receiver_id", msg.ReceiverID)
		return fmt.Errorf("save message: %w", err)
	}

	s.logger.Info("Message saved successfully", "message_id", msg.ID)
	return nil
}

func (s *Store) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	s.logger.Debug("Getting message", "message_id", messageID)

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get message", "error", err, "message_id", messageID)
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

// GetConversation returns every message exchanged between the two users,
// oldest first.
func (s *Store) GetConversation(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	s.logger.Debug("Getting conversation", "user_id", userID, "other_id", otherID)

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at, id`

	rows, err := s.DB.QueryContext(ctx, query, userID, otherID)
	if err != nil {
		s.logger.Error("Failed to query conversation",
			"error", err, "user_id", userID, "other_id", otherID)
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			s.logger.Error("Failed to scan message row", "error", err, "user_id", userID)
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}

	s.logger.Debug("Retrieved conversation",
		"user_id", userID, "other_id", otherID, "message_count", len(messages))
	return messages, nil
}

// HasSentMessage reports whether senderID ever sent a message to receiverID.
func (s *Store) HasSentMessage(ctx context.Context, senderID, receiverID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE sender_id = $1 AND receiver_id = $2)`,
		senderID, receiverID).Scan(&exists)
	if err != nil {
		s.logger.Error("Failed to check sent messages",
			"error", err, "sender_id", senderID, "receiver_id", receiverID)
		return false, fmt.Errorf("has sent message: %w", err)
	}
	return exists, nil
}

// UpdateMessageTone stores tone on a message that has none yet. It reports
// false when the message is gone or was already classified.
func (s *Store) UpdateMessageTone(ctx context.Context, messageID string, tone models.Tone) (bool, error) {
	s.logger.Debug("Updating message tone", "message_id", messageID, "tone", tone)

	res, err := s.DB.ExecContext(ctx,
		`UPDATE messages SET tone = $2 WHERE id = $1 AND tone IS NULL`, messageID, string(tone))
	if err != nil {
		s.logger.Error("Failed to update message tone", "error", err, "message_id", messageID)
		return false, fmt.Errorf("update message tone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update message tone: %w", err)
	}
	return n > 0, nil
}

func deleteConversation(ctx context.Context, tx *sql.Tx, userID, otherID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)`, userID, otherID)
	if err != nil {
		return 0, fmt.Errorf("delete conversation: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (models.Message, error) {
	var (
		msg  models.Message
		tone sql.NullString
	)
	if err := row.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &msg.Image, &tone, &msg.CreatedAt); err != nil {
		return models.Message{}, err
	}
	if tone.Valid {
		t := models.Tone(tone.String)
		msg.Tone = &t
	}
	return msg, nil
}
