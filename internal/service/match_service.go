package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/repository"
	"github.com/vedran77/spark/pkg/logger"
	"go.uber.org/zap"
)

const matchPageSize = 25

// retryBackoff is the pause before the single automatic retry after a
// transient storage conflict.
const retryBackoff = 75 * time.Millisecond

// Notifier broadcasts real-time events to connected clients.
type Notifier interface {
	NotifyMatch(match *domain.Match, conv *domain.Conversation)
	NotifyConversation(conv *domain.Conversation, userIDs []uuid.UUID)
	NotifyPresence(userID uuid.UUID, online bool)
	NotifyTyping(conversationID, userID uuid.UUID, typing bool)
}

// MatchService is the match resolver: it owns the promotion of a mutual
// like into a durable match, and the cached match-list view.
type MatchService struct {
	matchRepo repository.MatchRepository
	cache     Cache
	publisher EventPublisher
	notifier  Notifier
}

func NewMatchService(matchRepo repository.MatchRepository, cache Cache, publisher EventPublisher) *MatchService {
	return &MatchService{
		matchRepo: matchRepo,
		cache:     cache,
		publisher: publisher,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MatchService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Resolve promotes the pair into a match exactly once. The repository
// runs the canonical-lock transaction; this layer retries once on a
// transient conflict and fans out events on creation. A transient
// failure after the retry is surfaced, never swallowed: match creation
// must not be silently skipped.
func (s *MatchService) Resolve(ctx context.Context, userA, userB uuid.UUID) (*domain.Match, *domain.Conversation, bool, error) {
	match, conv, created, err := s.matchRepo.Resolve(ctx, userA, userB)
	if errors.Is(err, repository.ErrTransient) {
		logger.Warn("match resolve conflict, retrying",
			zap.String("pair", domain.PairKey(userA, userB)), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, nil, false, ctx.Err()
		case <-time.After(retryBackoff):
		}
		match, conv, created, err = s.matchRepo.Resolve(ctx, userA, userB)
	}
	if errors.Is(err, repository.ErrTransient) {
		return nil, nil, false, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("resolving match: %w", err)
	}

	if created {
		s.invalidatePair(ctx, match.User1ID, match.User2ID)

		s.publisher.Publish(ctx, EventMatchCreated, MatchCreatedEvent{
			MatchID:   match.ID,
			User1ID:   match.User1ID,
			User2ID:   match.User2ID,
			MatchedAt: match.MatchedAt,
		})
		s.publisher.Publish(ctx, EventConversationCreated, ConversationCreatedEvent{
			ConversationID: conv.ID,
			Participants:   []uuid.UUID{match.User1ID, match.User2ID},
			CreatedAt:      conv.CreatedAt,
		})

		if s.notifier != nil {
			s.notifier.NotifyMatch(match, conv)
		}
	}

	return match, conv, created, nil
}

// GetStatus reports whether the pair is matched.
func (s *MatchService) GetStatus(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Match, error) {
	if userID == otherUserID {
		return nil, ErrSelfAction
	}
	return s.matchRepo.GetByPair(ctx, userID, otherUserID)
}

// ListMatches serves the match-list view through the read cache.
func (s *MatchService) ListMatches(ctx context.Context, userID uuid.UUID, page int) ([]domain.Match, error) {
	if page < 0 {
		page = 0
	}
	pageKey := strconv.Itoa(page)

	if data, ok, err := s.cache.Get(ctx, userID, ViewMatches, pageKey); err != nil {
		logger.Warn("match cache read failed", zap.Error(err))
	} else if ok {
		var matches []domain.Match
		if err := json.Unmarshal(data, &matches); err == nil {
			return matches, nil
		}
	}

	matches, err := s.matchRepo.ListByUser(ctx, userID, page*matchPageSize, matchPageSize)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []domain.Match{}
	}

	if data, err := json.Marshal(matches); err == nil {
		if err := s.cache.Set(ctx, userID, ViewMatches, pageKey, data); err != nil {
			logger.Warn("match cache write failed", zap.Error(err))
		}
	}
	return matches, nil
}

// Dissolve removes the match for a pair, if any. Used when a dislike
// supersedes a matched like; the conversation is deliberately left in
// place for history.
func (s *MatchService) Dissolve(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	deleted, err := s.matchRepo.DeleteByPair(ctx, userA, userB)
	if err != nil {
		return false, err
	}
	if deleted {
		logger.Info("match dissolved", zap.String("pair", domain.PairKey(userA, userB)))
		s.invalidatePair(ctx, userA, userB)
	}
	return deleted, nil
}

func (s *MatchService) invalidatePair(ctx context.Context, userA, userB uuid.UUID) {
	for _, uid := range []uuid.UUID{userA, userB} {
		if err := s.cache.InvalidateUser(ctx, uid); err != nil {
			logger.Warn("cache invalidation failed", zap.String("user", uid.String()), zap.Error(err))
		}
	}
}
