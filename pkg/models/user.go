package models

import (
	"time"
)

type User struct {
	ID         string    `json:"_id" db:"id"`
	Email      string    `json:"email" db:"email"`
	FullName   string    `json:"fullName" db:"full_name"`
	ProfilePic string    `json:"profilePic" db:"profile_pic"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Contact is the directed relationship from UserID to ContactUserID.
// MessageCount is nil once the pair has been promoted to friends.
type Contact struct {
	UserID        string    `json:"-" db:"user_id"`
	ContactUserID string    `json:"contactUserId" db:"contact_id"`
	IsFriend      bool      `json:"isFriend" db:"is_friend"`
	MessageCount  *int      `json:"messageCount,omitempty" db:"message_count"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// Count returns the unanswered-message counter, treating nil as zero.
func (c Contact) Count() int {
	if c.MessageCount == nil {
		return 0
	}
	return *c.MessageCount
}

type AddContactRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type StatusResponse struct {
	Message string `json:"message"`
}
