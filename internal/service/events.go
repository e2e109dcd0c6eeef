package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
)

// Event subjects emitted by the core. Fan-out mechanics belong to the
// broadcast transport; publishing never fails the mutation behind it.
const (
	EventInteractionRecorded = "spark.interaction.recorded"
	EventMatchCreated        = "spark.match.created"
	EventConversationCreated = "spark.conversation.created"
	EventPresenceChanged     = "spark.presence.changed"
	EventTypingChanged       = "spark.typing.changed"
)

// EventPublisher is implemented by the NATS publisher and by a no-op
// when no broker is configured.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any)
}

type InteractionRecordedEvent struct {
	ActorID  uuid.UUID              `json:"actor_id"`
	TargetID uuid.UUID              `json:"target_id"`
	Kind     domain.InteractionKind `json:"kind"`
	At       time.Time              `json:"at"`
}

type MatchCreatedEvent struct {
	MatchID   uuid.UUID `json:"match_id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	MatchedAt time.Time `json:"matched_at"`
}

type ConversationCreatedEvent struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	Participants   []uuid.UUID `json:"participants"`
	CreatedAt      time.Time   `json:"created_at"`
}

type PresenceChangedEvent struct {
	UserID uuid.UUID `json:"user_id"`
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

type TypingChangedEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Typing         bool      `json:"typing"`
	At             time.Time `json:"at"`
}
