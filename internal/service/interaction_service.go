package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/repository"
	"github.com/vedran77/spark/pkg/logger"
	"go.uber.org/zap"
)

// InteractionService is the interaction store: the only writer of
// like/dislike edges. A like that completes a reciprocal pair hands off
// to the match resolver before returning.
type InteractionService struct {
	interactionRepo repository.InteractionRepository
	userRepo        repository.UserRepository
	matches         *MatchService
	cache           Cache
	publisher       EventPublisher
}

func NewInteractionService(
	interactionRepo repository.InteractionRepository,
	userRepo repository.UserRepository,
	matches *MatchService,
	cache Cache,
	publisher EventPublisher,
) *InteractionService {
	return &InteractionService{
		interactionRepo: interactionRepo,
		userRepo:        userRepo,
		matches:         matches,
		cache:           cache,
		publisher:       publisher,
	}
}

// RecordResult reports what a recorded interaction produced. Match and
// Conversation are set only when this action completed a mutual like.
type RecordResult struct {
	Edge         *domain.InteractionEdge `json:"edge"`
	Match        *domain.Match           `json:"match,omitempty"`
	Conversation *domain.Conversation    `json:"conversation,omitempty"`
}

// Record writes a directed like/dislike edge.
//   - acting on yourself is rejected;
//   - repeating the same kind is rejected (callers surface "already
//     liked/disliked");
//   - the opposite kind overwrites the previous edge;
//   - a dislike over an existing match dissolves the match but leaves
//     the conversation for history;
//   - a like whose reverse edge already exists triggers match
//     resolution before returning.
func (s *InteractionService) Record(ctx context.Context, actorID, targetID uuid.UUID, kind domain.InteractionKind) (*RecordResult, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if actorID == targetID {
		return nil, ErrSelfAction
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("looking up target: %w", err)
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	if !target.Active {
		return nil, ErrUserInactive
	}

	existing, err := s.interactionRepo.Get(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Kind == kind {
		return nil, ErrDuplicateAction
	}

	edge := &domain.InteractionEdge{
		ActorID:   actorID,
		TargetID:  targetID,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	reciprocal, err := s.interactionRepo.Upsert(ctx, edge)
	if err != nil {
		return nil, fmt.Errorf("recording interaction: %w", err)
	}

	// A dislike supersedes a matched like: the match goes, the
	// conversation stays. A failed dissolve fails the whole call; the
	// dislike edge must never coexist with a live match.
	if kind == domain.InteractionDislike {
		if _, err := s.matches.Dissolve(ctx, actorID, targetID); err != nil {
			logger.Error("dissolving match after dislike",
				zap.String("pair", domain.PairKey(actorID, targetID)), zap.Error(err))
			return nil, fmt.Errorf("dissolving match after dislike: %w", err)
		}
	}

	s.invalidatePair(ctx, actorID, targetID)
	s.publisher.Publish(ctx, EventInteractionRecorded, InteractionRecordedEvent{
		ActorID:  actorID,
		TargetID: targetID,
		Kind:     kind,
		At:       edge.CreatedAt,
	})

	result := &RecordResult{Edge: edge}

	if kind == domain.InteractionLike && reciprocal {
		match, conv, _, err := s.matches.Resolve(ctx, actorID, targetID)
		if err != nil {
			return nil, err
		}
		if match != nil {
			result.Match = match
			result.Conversation = conv
		}
	}

	return result, nil
}

// Remove deletes the actor's current edge toward the target (un-like /
// un-dislike). An existing match is left alone here: dissolving it is
// the dislike path's behavior, explicit unmatching is an admin
// operation outside this core.
func (s *InteractionService) Remove(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return ErrSelfAction
	}

	deleted, err := s.interactionRepo.Delete(ctx, actorID, targetID)
	if err != nil {
		return fmt.Errorf("removing interaction: %w", err)
	}
	if !deleted {
		return ErrInteractionNotFound
	}

	s.invalidatePair(ctx, actorID, targetID)
	return nil
}

func (s *InteractionService) invalidatePair(ctx context.Context, actorID, targetID uuid.UUID) {
	// Both sides: one action can change both users' candidate and
	// match lists.
	for _, uid := range []uuid.UUID{actorID, targetID} {
		if err := s.cache.InvalidateUser(ctx, uid); err != nil {
			logger.Warn("cache invalidation failed", zap.String("user", uid.String()), zap.Error(err))
		}
	}
}
