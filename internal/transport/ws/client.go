package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/service"
	"github.com/vedran77/spark/pkg/logger"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a single WebSocket connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   uuid.UUID
	auth     *service.ChannelAuthService
	presence *service.PresenceService

	// subscribedChannels tracks which channels this client listens to.
	// Every entry was admitted with a verified grant.
	subscribedChannels map[string]struct{}
	mu                 sync.RWMutex

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, auth *service.ChannelAuthService, presence *service.PresenceService) *Client {
	return &Client{
		hub:                hub,
		conn:               conn,
		userID:             userID,
		auth:               auth,
		presence:           presence,
		subscribedChannels: make(map[string]struct{}),
		send:               make(chan []byte, sendBufSize),
		done:               make(chan struct{}),
	}
}

// signalClose tells the write pump to shut down. Only the hub calls
// this. The send channel is left open so the read pump's non-blocking
// sends stay safe after the hub has dropped the client.
func (c *Client) signalClose() {
	c.closeOnce.Do(func() { close(c.done) })
}

// IsSubscribed checks if this client is subscribed to a channel.
func (c *Client) IsSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscribedChannels[channel]
	return ok
}

func (c *Client) subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribedChannels[channel] = struct{}{}
}

func (c *Client) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribedChannels, channel)
}

// ReadPump reads messages from the WebSocket and routes them to the Hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.presence.Disconnect(context.Background(), c.userID); err != nil {
			logger.Errorf("ws: presence disconnect for %s: %v", c.userID, err)
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				logger.Infof("ws: client %s disconnected", c.userID)
			} else {
				logger.Errorf("ws: read error from %s: %v", c.userID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				logger.Errorf("ws: write error to %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Errorf("ws: ping error to %s: %v", c.userID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeChannelSubscribe:
		var p SubscribePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.Channel == "" {
			c.sendError("INVALID_PAYLOAD", "invalid channel.subscribe payload")
			return
		}
		grantee, err := c.auth.VerifyGrant(p.Grant, p.Channel)
		if err != nil || grantee != c.userID {
			c.sendError("FORBIDDEN", "grant missing, expired or issued for another channel")
			return
		}
		c.subscribe(p.Channel)
		c.sendEvent(EventTypeSubscribed, p.Channel, SubscribedPayload{Channel: p.Channel})
		logger.Infof("ws: %s subscribed to %s", c.userID, p.Channel)

	case EventTypeChannelUnsubscribe:
		var p UnsubscribePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.Channel == "" {
			c.sendError("INVALID_PAYLOAD", "invalid channel.unsubscribe payload")
			return
		}
		c.unsubscribe(p.Channel)

	case EventTypeTypingStart, EventTypeTypingStop:
		var p TypingSignalPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "conversation_id required for typing events")
			return
		}
		typing := event.Type == EventTypeTypingStart
		if err := c.presence.SetTyping(context.Background(), c.userID, p.ConversationID, typing); err != nil {
			c.sendError("FORBIDDEN", "cannot signal typing in this conversation")
			return
		}

	case EventTypePing:
		// Heartbeats keep the presence record alive server-side.
		if err := c.presence.Heartbeat(context.Background(), c.userID); err != nil {
			logger.Errorf("ws: heartbeat for %s: %v", c.userID, err)
		}
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendEvent(eventType, channel string, payload any) {
	evt, err := NewEvent(eventType, channel, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(EventTypeError, "", ErrorPayload{Code: code, Message: message})
}
