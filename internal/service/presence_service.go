package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/repository"
	"github.com/vedran77/spark/pkg/logger"
	"go.uber.org/zap"
)

// PresenceStore is a TTL key-value store. Implemented by the Redis
// store and by an in-process map for tests and single-instance runs.
type PresenceStore interface {
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
}

// PresenceService tracks advisory online/typing state. Online is the
// presence of a heartbeat key; no heartbeat within the TTL means
// offline, no explicit sign-off required. None of it touches the
// durable store except an opportunistic last-active timestamp.
type PresenceService struct {
	store     PresenceStore
	convs     *ConversationService
	userRepo  repository.UserRepository
	publisher EventPublisher
	notifier  Notifier

	heartbeatTTL time.Duration
	typingTTL    time.Duration
}

func NewPresenceService(
	store PresenceStore,
	convs *ConversationService,
	userRepo repository.UserRepository,
	publisher EventPublisher,
	heartbeatTTL, typingTTL time.Duration,
) *PresenceService {
	return &PresenceService{
		store:        store,
		convs:        convs,
		userRepo:     userRepo,
		publisher:    publisher,
		heartbeatTTL: heartbeatTTL,
		typingTTL:    typingTTL,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *PresenceService) SetNotifier(n Notifier) {
	s.notifier = n
}

func presenceKey(userID uuid.UUID) string { return "spark:presence:" + userID.String() }
func lastSeenKey(userID uuid.UUID) string { return "spark:lastseen:" + userID.String() }
func typingKey(userID uuid.UUID) string   { return "spark:typing:" + userID.String() }

// Heartbeat marks the user online for one TTL window and refreshes the
// last-seen marker. The durable last-active timestamp is touched
// opportunistically; a failure there never fails the heartbeat.
func (s *PresenceService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()

	_, wasOnline, err := s.store.Get(ctx, presenceKey(userID))
	if err != nil {
		return err
	}

	if err := s.store.SetTTL(ctx, presenceKey(userID), now.Format(time.RFC3339), s.heartbeatTTL); err != nil {
		return err
	}
	if err := s.store.Set(ctx, lastSeenKey(userID), now.Format(time.RFC3339)); err != nil {
		return err
	}

	if err := s.userRepo.TouchLastActive(ctx, userID); err != nil {
		logger.Warn("touch last_active failed", zap.String("user", userID.String()), zap.Error(err))
	}

	if !wasOnline {
		s.publisher.Publish(ctx, EventPresenceChanged, PresenceChangedEvent{
			UserID: userID, Online: true, At: now,
		})
		if s.notifier != nil {
			s.notifier.NotifyPresence(userID, true)
		}
	}
	return nil
}

// Disconnect drops the heartbeat key immediately (used when the realtime
// connection closes; plain TTL expiry covers everything else).
func (s *PresenceService) Disconnect(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Del(ctx, presenceKey(userID)); err != nil {
		return err
	}
	s.publisher.Publish(ctx, EventPresenceChanged, PresenceChangedEvent{
		UserID: userID, Online: false, At: time.Now(),
	})
	if s.notifier != nil {
		s.notifier.NotifyPresence(userID, false)
	}
	return nil
}

// Get reports the user's advisory presence. A user with an expired
// heartbeat is offline no matter how recent their durable activity is.
func (s *PresenceService) Get(ctx context.Context, userID uuid.UUID) (*domain.PresenceRecord, error) {
	rec := &domain.PresenceRecord{UserID: userID}

	_, online, err := s.store.Get(ctx, presenceKey(userID))
	if err != nil {
		return nil, err
	}
	rec.Online = online

	if val, ok, err := s.store.Get(ctx, lastSeenKey(userID)); err != nil {
		return nil, err
	} else if ok {
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			rec.LastSeenAt = &t
		}
	}

	if val, ok, err := s.store.Get(ctx, typingKey(userID)); err != nil {
		return nil, err
	} else if ok {
		if convID, err := uuid.Parse(val); err == nil {
			rec.TypingConversationID = &convID
		}
	}

	return rec, nil
}

// TypingIn reports which of the given users are currently typing in the
// conversation. Backs the conversation view's typing indicator.
func (s *PresenceService) TypingIn(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	var typing []uuid.UUID
	for _, uid := range userIDs {
		val, ok, err := s.store.Get(ctx, typingKey(uid))
		if err != nil {
			return nil, err
		}
		if ok && val == conversationID.String() {
			typing = append(typing, uid)
		}
	}
	return typing, nil
}

// SetTyping marks the user typing in one conversation (at most one at a
// time), auto-reverting after the typing TTL unless refreshed. The
// caller must be a participant of the conversation.
func (s *PresenceService) SetTyping(ctx context.Context, userID, conversationID uuid.UUID, typing bool) error {
	if err := s.convs.CheckAccess(ctx, conversationID, userID); err != nil {
		return err
	}

	if typing {
		if err := s.store.SetTTL(ctx, typingKey(userID), conversationID.String(), s.typingTTL); err != nil {
			return err
		}
	} else {
		// Only clear if the user is typing in this conversation; a
		// stale stop for another conversation is a no-op.
		val, ok, err := s.store.Get(ctx, typingKey(userID))
		if err != nil {
			return err
		}
		if !ok || val != conversationID.String() {
			return nil
		}
		if err := s.store.Del(ctx, typingKey(userID)); err != nil {
			return err
		}
	}

	s.publisher.Publish(ctx, EventTypingChanged, TypingChangedEvent{
		ConversationID: conversationID, UserID: userID, Typing: typing, At: time.Now(),
	})
	if s.notifier != nil {
		s.notifier.NotifyTyping(conversationID, userID, typing)
	}
	return nil
}
