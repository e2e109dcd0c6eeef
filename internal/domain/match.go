package domain

import (
	"time"

	"github.com/google/uuid"
)

// Match confirms mutual interest between two users. Stored once per
// unordered pair with User1ID < User2ID (canonical order).
type Match struct {
	ID        uuid.UUID `json:"id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	MatchedAt time.Time `json:"matched_at"`
	// Joined fields for match listings
	OtherUserID          uuid.UUID `json:"other_user_id,omitzero"`
	OtherUserUsername    string    `json:"other_username,omitempty"`
	OtherUserDisplayName string    `json:"other_display_name,omitempty"`
}

// Other returns the counterpart of userID in the pair.
func (m *Match) Other(userID uuid.UUID) uuid.UUID {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}
