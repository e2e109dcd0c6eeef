package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/vedran77/spark/pkg/logger"
)

// Hub manages all active WebSocket clients and routes events to
// channel subscribers. Channel names follow the authorization gate's
// grammar: private-conversation.<id>, private-user.<id>, presence-lobby.
type Hub struct {
	// clients is the set of live connections. A user with several
	// devices holds several entries; each is registered and torn down
	// independently.
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
}

type broadcastMsg struct {
	channel   string
	data      []byte
	excludeID *uuid.UUID // optional: skip this user (e.g. sender)
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
//
// The hub never closes a client's send channel: the client's pump
// goroutines keep non-blocking sends on it after the hub drops the
// client. Shutdown is signalled through signalClose only.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			logger.Infof("ws hub: user %s connected (%d conns)", client.userID, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.signalClose()
				logger.Infof("ws hub: user %s disconnected (%d conns)", client.userID, len(h.clients))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				// Skip excluded user
				if msg.excludeID != nil && client.userID == *msg.excludeID {
					continue
				}
				// Only send to clients subscribed to this channel
				if !client.IsSubscribed(msg.channel) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer with a full buffer: drop the
					// connection, the write pump exits via done.
					delete(h.clients, client)
					client.signalClose()
					logger.Warnf("ws hub: dropped slow client %s", client.userID)
				}
			}
		}
	}
}

// BroadcastToChannel sends an event to all subscribers of a channel.
func (h *Hub) BroadcastToChannel(channel string, event *Event, excludeUserID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("ws hub: marshal error: %v", err)
		return
	}
	h.broadcast <- &broadcastMsg{
		channel:   channel,
		data:      data,
		excludeID: excludeUserID,
	}
}
