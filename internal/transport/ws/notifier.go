package ws

import (
	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/service"
	"github.com/vedran77/spark/pkg/logger"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// NotifyMatch pushes match.new to both users' private channels. Each
// side only sees the event on its own channel, so neither learns about
// the other's subscriptions.
func (n *HubNotifier) NotifyMatch(match *domain.Match, conv *domain.Conversation) {
	for _, userID := range []uuid.UUID{match.User1ID, match.User2ID} {
		channel := service.UserChannel(userID)
		evt, err := NewEvent(EventTypeMatchNew, channel, MatchNewPayload{
			Match:        match,
			Conversation: conv,
		})
		if err != nil {
			logger.Errorf("ws notifier: marshal error: %v", err)
			return
		}
		n.hub.BroadcastToChannel(channel, evt, nil)
	}
}

// NotifyConversation pushes conversation.new to each participant's
// private channel. Covers match-less introductions; matched pairs get
// the conversation embedded in match.new instead.
func (n *HubNotifier) NotifyConversation(conv *domain.Conversation, userIDs []uuid.UUID) {
	for _, userID := range userIDs {
		channel := service.UserChannel(userID)
		evt, err := NewEvent(EventTypeConversationNew, channel, ConversationNewPayload{Conversation: conv})
		if err != nil {
			logger.Errorf("ws notifier: marshal error: %v", err)
			return
		}
		n.hub.BroadcastToChannel(channel, evt, nil)
	}
}

// NotifyPresence fans an online/offline transition out to the lobby.
func (n *HubNotifier) NotifyPresence(userID uuid.UUID, online bool) {
	status := "offline"
	if online {
		status = "online"
	}
	evt, err := NewEvent(EventTypePresence, service.PresenceLobbyChannel, PresencePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		logger.Errorf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChannel(service.PresenceLobbyChannel, evt, &userID)
}

// NotifyTyping pushes a typing transition to the conversation channel,
// excluding the typist.
func (n *HubNotifier) NotifyTyping(conversationID, userID uuid.UUID, typing bool) {
	channel := service.ConversationChannel(conversationID)
	evt, err := NewEvent(EventTypeTyping, channel, TypingPayload{
		ConversationID: conversationID,
		UserID:         userID,
		Typing:         typing,
	})
	if err != nil {
		logger.Errorf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChannel(channel, evt, &userID)
}
