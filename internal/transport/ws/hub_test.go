package ws

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitClosed(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client shutdown")
	}
}

func recvData(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestSlowClientDroppedWithoutClosingSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := NewClient(hub, nil, uuid.New(), nil, nil)
	hub.register <- c
	c.subscribe("presence-lobby")

	for i := 0; i < sendBufSize; i++ {
		c.send <- []byte("backlog")
	}
	hub.BroadcastToChannel("presence-lobby", &Event{Type: EventTypePresence}, nil)
	waitClosed(t, c.done)

	// The read pump keeps using the send channel after the hub has
	// dropped the client; these must stay safe no-ops.
	c.sendPong()
	c.sendError("FORBIDDEN", "late frame")
}

func TestUserMayHoldMultipleConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	userID := uuid.New()
	channel := "private-user." + userID.String()

	phone := NewClient(hub, nil, userID, nil, nil)
	laptop := NewClient(hub, nil, userID, nil, nil)
	hub.register <- phone
	hub.register <- laptop
	phone.subscribe(channel)
	laptop.subscribe(channel)

	hub.BroadcastToChannel(channel, &Event{Type: EventTypeConversationNew}, nil)
	recvData(t, phone.send)
	recvData(t, laptop.send)

	// Tearing down one device leaves the other live.
	hub.unregister <- phone
	waitClosed(t, phone.done)

	hub.BroadcastToChannel(channel, &Event{Type: EventTypeConversationNew}, nil)
	recvData(t, laptop.send)
	select {
	case <-laptop.done:
		t.Fatal("unregistering one connection must not close the other")
	default:
	}
}

func TestBroadcastSkipsExcludedUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	typist := NewClient(hub, nil, uuid.New(), nil, nil)
	other := NewClient(hub, nil, uuid.New(), nil, nil)
	hub.register <- typist
	hub.register <- other
	channel := "private-conversation." + uuid.NewString()
	typist.subscribe(channel)
	other.subscribe(channel)

	hub.BroadcastToChannel(channel, &Event{Type: EventTypeTyping}, &typist.userID)
	recvData(t, other.send)
	select {
	case <-typist.send:
		t.Fatal("excluded user must not receive the broadcast")
	case <-time.After(100 * time.Millisecond):
	}
}
