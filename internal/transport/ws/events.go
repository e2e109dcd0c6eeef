package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeChannelSubscribe   = "channel.subscribe"
	EventTypeChannelUnsubscribe = "channel.unsubscribe"
	EventTypeTypingStart        = "typing.start"
	EventTypeTypingStop         = "typing.stop"
	EventTypePing               = "ping"
)

// Event types - Server → Client
const (
	EventTypeSubscribed      = "channel.subscribed"
	EventTypeMatchNew        = "match.new"
	EventTypeConversationNew = "conversation.new"
	EventTypeTyping          = "typing"
	EventTypePresence        = "presence"
	EventTypePong            = "pong"
	EventTypeError           = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

// SubscribePayload carries the grant issued by POST /realtime/auth.
// Subscriptions without a valid grant for the named channel are refused.
type SubscribePayload struct {
	Channel string `json:"channel"`
	Grant   string `json:"grant"`
}

type UnsubscribePayload struct {
	Channel string `json:"channel"`
}

type TypingSignalPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

// --- Server → Client payloads ---

type SubscribedPayload struct {
	Channel string `json:"channel"`
}

type MatchNewPayload struct {
	Match        *domain.Match        `json:"match"`
	Conversation *domain.Conversation `json:"conversation"`
}

type ConversationNewPayload struct {
	Conversation *domain.Conversation `json:"conversation"`
}

type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Typing         bool      `json:"typing"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType, channel string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Channel:   channel,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
