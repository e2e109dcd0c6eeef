package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
)

// ErrTransient marks storage conflicts worth one retry (serialization
// failures, deadlocks, lost insert races). Implementations wrap the
// underlying error with it.
var ErrTransient = errors.New("transient storage conflict")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// ListCandidates returns active users the given user has not yet
	// acted on, excluding the user themself. The discovery source query.
	ListCandidates(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.PublicProfile, error)
	TouchLastActive(ctx context.Context, id uuid.UUID) error
}

type InteractionRepository interface {
	// Get returns the current edge for the directed pair, or nil.
	Get(ctx context.Context, actorID, targetID uuid.UUID) (*domain.InteractionEdge, error)
	// Upsert replaces any opposite-kind edge with the given one and
	// reports whether a reciprocal edge of the same kind exists
	// (target -> actor). Callers are expected to have rejected
	// same-kind duplicates beforehand via Get.
	Upsert(ctx context.Context, edge *domain.InteractionEdge) (reciprocal bool, err error)
	Delete(ctx context.Context, actorID, targetID uuid.UUID) (deleted bool, err error)
}

type MatchRepository interface {
	// Resolve creates the match for the pair exactly once. It runs in a
	// serializable transaction holding the canonical pair lock,
	// re-checks existence and the two like edges under the lock, and
	// provisions the conversation in the same transaction.
	Resolve(ctx context.Context, userA, userB uuid.UUID) (*domain.Match, *domain.Conversation, bool, error)
	GetByPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Match, error)
	DeleteByPair(ctx context.Context, userA, userB uuid.UUID) (deleted bool, err error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Match, error)
}

type ConversationRepository interface {
	// FindOrCreate returns the single non-left private conversation for
	// the pair, creating it (with both participants) under the canonical
	// pair lock when absent.
	FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	// IsParticipant consults the durable participant table (never the
	// cache); the channel authorization gate depends on it.
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	Participants(ctx context.Context, conversationID uuid.UUID) ([]domain.ConversationParticipant, error)
}
