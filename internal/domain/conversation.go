package domain

import (
	"time"

	"github.com/google/uuid"
)

const ConversationKindPrivate = "private"

// Conversation is the messaging container provisioned for a pair.
// For kind=private exactly one non-left conversation exists per
// unordered user pair.
type Conversation struct {
	ID             uuid.UUID `json:"id"`
	Kind           string    `json:"kind"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	// Joined fields for conversation listings
	OtherUserID          uuid.UUID `json:"other_user_id,omitzero"`
	OtherUserUsername    string    `json:"other_username,omitempty"`
	OtherUserDisplayName string    `json:"other_display_name,omitempty"`
}

type ConversationParticipant struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	UserID         uuid.UUID  `json:"user_id"`
	JoinedAt       time.Time  `json:"joined_at"`
	LeftAt         *time.Time `json:"left_at,omitempty"`
}
