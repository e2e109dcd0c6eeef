package domain

import (
	"time"

	"github.com/google/uuid"
)

// PresenceRecord is advisory, TTL-decayed state. It lives in the
// ephemeral store only and may be lost on restart.
type PresenceRecord struct {
	UserID               uuid.UUID  `json:"user_id"`
	Online               bool       `json:"online"`
	LastSeenAt           *time.Time `json:"last_seen_at,omitempty"`
	TypingConversationID *uuid.UUID `json:"typing_conversation_id,omitempty"`
}
