package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/repository"
	"github.com/vedran77/spark/pkg/logger"
	"go.uber.org/zap"
)

// ConversationService is the conversation provisioner. Every path that
// needs the private conversation for a pair (match resolution,
// match-less introductions, direct API calls) funnels through the same
// find-or-create routine, so at most one non-left private conversation
// exists per pair.
type ConversationService struct {
	convRepo  repository.ConversationRepository
	userRepo  repository.UserRepository
	cache     Cache
	publisher EventPublisher
	notifier  Notifier
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	cache Cache,
	publisher EventPublisher,
) *ConversationService {
	return &ConversationService{
		convRepo:  convRepo,
		userRepo:  userRepo,
		cache:     cache,
		publisher: publisher,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ConversationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// GetOrCreate finds or creates the private conversation between the two
// users. Returns the conversation and whether this call created it.
func (s *ConversationService) GetOrCreate(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, bool, error) {
	if userID == otherUserID {
		return nil, false, ErrSelfAction
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, false, err
	}
	if other == nil {
		return nil, false, ErrUserNotFound
	}
	if !other.Active {
		return nil, false, ErrUserInactive
	}

	conv, created, err := s.convRepo.FindOrCreate(ctx, userID, otherUserID)
	if errors.Is(err, repository.ErrTransient) {
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(retryBackoff):
		}
		conv, created, err = s.convRepo.FindOrCreate(ctx, userID, otherUserID)
	}
	if errors.Is(err, repository.ErrTransient) {
		return nil, false, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if err != nil {
		return nil, false, fmt.Errorf("provisioning conversation: %w", err)
	}

	if err := s.checkParticipantInvariant(ctx, conv.ID); err != nil {
		return nil, false, err
	}

	conv.OtherUserID = otherUserID
	conv.OtherUserUsername = other.Username
	conv.OtherUserDisplayName = other.DisplayName

	if created {
		for _, uid := range []uuid.UUID{userID, otherUserID} {
			if err := s.cache.InvalidateUser(ctx, uid); err != nil {
				logger.Warn("cache invalidation failed", zap.String("user", uid.String()), zap.Error(err))
			}
		}
		s.publisher.Publish(ctx, EventConversationCreated, ConversationCreatedEvent{
			ConversationID: conv.ID,
			Participants:   []uuid.UUID{userID, otherUserID},
			CreatedAt:      conv.CreatedAt,
		})
		if s.notifier != nil {
			s.notifier.NotifyConversation(conv, []uuid.UUID{userID, otherUserID})
		}
	}

	return conv, created, nil
}

// ListConversations returns the user's non-left conversations.
func (s *ConversationService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	convs, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// CheckAccess reports whether the user is a non-left participant of the
// conversation, reading the durable participant table. The channel
// authorization gate depends on this, so it never consults the cache.
func (s *ConversationService) CheckAccess(ctx context.Context, conversationID, userID uuid.UUID) error {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}

	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

// checkParticipantInvariant verifies a private conversation carries
// exactly two participants. Failing it means the pair-lock discipline
// was bypassed somewhere; log loudly and refuse rather than patch up.
func (s *ConversationService) checkParticipantInvariant(ctx context.Context, conversationID uuid.UUID) error {
	parts, err := s.convRepo.Participants(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(parts) != 2 {
		logger.Error("private conversation with wrong participant count",
			zap.String("conversation", conversationID.String()),
			zap.Int("participants", len(parts)))
		return fmt.Errorf("%w: conversation %s has %d participants", ErrInvariantViolation, conversationID, len(parts))
	}
	return nil
}
