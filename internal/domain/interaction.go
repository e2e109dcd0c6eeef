package domain

import (
	"time"

	"github.com/google/uuid"
)

// InteractionKind is the direction-holder's current stance on the target.
type InteractionKind string

const (
	InteractionLike    InteractionKind = "like"
	InteractionDislike InteractionKind = "dislike"
)

func (k InteractionKind) Valid() bool {
	return k == InteractionLike || k == InteractionDislike
}

// Opposite returns the other kind (like <-> dislike).
func (k InteractionKind) Opposite() InteractionKind {
	if k == InteractionLike {
		return InteractionDislike
	}
	return InteractionLike
}

// InteractionEdge is a directed like/dislike from actor to target.
// At most one edge exists per (actor, target); recording the opposite
// kind replaces the previous edge.
type InteractionEdge struct {
	ActorID   uuid.UUID       `json:"actor_id"`
	TargetID  uuid.UUID       `json:"target_id"`
	Kind      InteractionKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}
