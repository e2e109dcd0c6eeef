package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/repository"
)

// Channel name grammar for the real-time layer.
const (
	conversationChannelPrefix = "private-conversation."
	userChannelPrefix         = "private-user."

	// PresenceLobbyChannel is the shared channel presence and typing
	// transitions are fanned out on.
	PresenceLobbyChannel = "presence-lobby"
)

// ConversationChannel builds the channel name for a conversation.
func ConversationChannel(conversationID uuid.UUID) string {
	return conversationChannelPrefix + conversationID.String()
}

// UserChannel builds the per-user notification channel name.
func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

// ChannelGrant is the signed authorization the transport layer accepts
// on subscribe. Identity is attached for presence channels only.
type ChannelGrant struct {
	Token       string                `json:"token"`
	ChannelName string                `json:"channel_name"`
	ExpiresAt   time.Time             `json:"expires_at"`
	Identity    *domain.PublicProfile `json:"identity,omitempty"`
}

// ChannelAuthService gates subscriptions to private real-time channels.
// Authorization reads the durable participant table, never the cache:
// a stale cache entry must not grant channel access.
type ChannelAuthService struct {
	convs    *ConversationService
	userRepo repository.UserRepository
	secret   []byte
	grantTTL time.Duration
}

func NewChannelAuthService(convs *ConversationService, userRepo repository.UserRepository, jwtSecret string, grantTTL time.Duration) *ChannelAuthService {
	return &ChannelAuthService{
		convs:    convs,
		userRepo: userRepo,
		secret:   []byte(jwtSecret),
		grantTTL: grantTTL,
	}
}

// Authorize classifies the channel by name and checks the caller's
// right to it. Unknown patterns and missing conversations are
// distinguished from plain denial so clients can react differently.
func (s *ChannelAuthService) Authorize(ctx context.Context, userID uuid.UUID, channelName, connectionID string) (*ChannelGrant, error) {
	var identity *domain.PublicProfile

	switch {
	case strings.HasPrefix(channelName, conversationChannelPrefix):
		convID, err := uuid.Parse(strings.TrimPrefix(channelName, conversationChannelPrefix))
		if err != nil {
			return nil, ErrUnknownChannel
		}
		if err := s.convs.CheckAccess(ctx, convID, userID); err != nil {
			if errors.Is(err, ErrNotParticipant) {
				return nil, ErrForbidden
			}
			return nil, err
		}

	case strings.HasPrefix(channelName, userChannelPrefix):
		ownerID, err := uuid.Parse(strings.TrimPrefix(channelName, userChannelPrefix))
		if err != nil {
			return nil, ErrUnknownChannel
		}
		if ownerID != userID {
			return nil, ErrForbidden
		}

	case channelName == PresenceLobbyChannel:
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		pub := user.Public()
		identity = &pub

	default:
		return nil, ErrUnknownChannel
	}

	expiresAt := time.Now().Add(s.grantTTL)
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"chan": channelName,
		"cid":  connectionID,
		"iat":  time.Now().Unix(),
		"exp":  expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &ChannelGrant{
		Token:       token,
		ChannelName: channelName,
		ExpiresAt:   expiresAt,
		Identity:    identity,
	}, nil
}

// VerifyGrant checks a grant presented on subscribe and returns the
// user it was issued to. The grant must match the channel it is being
// used for.
func (s *ChannelAuthService) VerifyGrant(token, channelName string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrForbidden
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrForbidden
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrForbidden
	}
	if ch, _ := claims["chan"].(string); ch != channelName {
		return uuid.Nil, ErrForbidden
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, ErrForbidden
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrForbidden
	}
	return userID, nil
}
