package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newChannelAuthFixture() (*ChannelAuthService, *ConversationService, *fakeUserRepo) {
	users := newFakeUserRepo()
	convs := NewConversationService(newFakeConversationRepo(), users, newFakeCache(), &fakePublisher{})
	gate := NewChannelAuthService(convs, users, "test-secret", 2*time.Minute)
	return gate, convs, users
}

func TestAuthorizeUnknownChannelGrammar(t *testing.T) {
	gate, _, users := newChannelAuthFixture()
	u := users.add(true)
	ctx := context.Background()

	for _, name := range []string{
		"public-lobby",
		"private-conversation.not-a-uuid",
		"private-user.",
		"presence-lobby-2",
		"",
	} {
		if _, err := gate.Authorize(ctx, u.ID, name, "conn-1"); !errors.Is(err, ErrUnknownChannel) {
			t.Fatalf("channel %q: expected ErrUnknownChannel, got %v", name, err)
		}
	}
}

func TestAuthorizeConversationChannel(t *testing.T) {
	gate, convs, users := newChannelAuthFixture()
	a := users.add(true)
	b := users.add(true)
	outsider := users.add(true)
	ctx := context.Background()

	conv, _, err := convs.GetOrCreate(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	grant, err := gate.Authorize(ctx, a.ID, ConversationChannel(conv.ID), "conn-1")
	if err != nil {
		t.Fatalf("participant grant: %v", err)
	}
	if grant.Token == "" || grant.ChannelName != ConversationChannel(conv.ID) {
		t.Fatalf("malformed grant: %+v", grant)
	}

	// Non-participant of an existing conversation: denied, not hidden.
	if _, err := gate.Authorize(ctx, outsider.ID, ConversationChannel(conv.ID), "conn-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Missing conversation: not found, so clients don't retry auth.
	if _, err := gate.Authorize(ctx, a.ID, ConversationChannel(uuid.New()), "conn-3"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestAuthorizeUserChannelIsOwnerOnly(t *testing.T) {
	gate, _, users := newChannelAuthFixture()
	a := users.add(true)
	b := users.add(true)
	ctx := context.Background()

	if _, err := gate.Authorize(ctx, a.ID, UserChannel(a.ID), "conn-1"); err != nil {
		t.Fatalf("own channel: %v", err)
	}
	if _, err := gate.Authorize(ctx, a.ID, UserChannel(b.ID), "conn-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another user's channel, got %v", err)
	}
}

func TestAuthorizePresenceAttachesIdentity(t *testing.T) {
	gate, _, users := newChannelAuthFixture()
	u := users.add(true)

	grant, err := gate.Authorize(context.Background(), u.ID, PresenceLobbyChannel, "conn-1")
	if err != nil {
		t.Fatalf("presence grant: %v", err)
	}
	if grant.Identity == nil || grant.Identity.ID != u.ID {
		t.Fatalf("expected identity on presence grant, got %+v", grant.Identity)
	}
	if grant.Identity.Username != u.Username {
		t.Fatalf("identity mismatch: %+v", grant.Identity)
	}
}

func TestVerifyGrantRoundTrip(t *testing.T) {
	gate, _, users := newChannelAuthFixture()
	u := users.add(true)
	channel := UserChannel(u.ID)

	grant, err := gate.Authorize(context.Background(), u.ID, channel, "conn-1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	got, err := gate.VerifyGrant(grant.Token, channel)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != u.ID {
		t.Fatalf("expected grantee %s, got %s", u.ID, got)
	}

	// A grant is bound to its channel.
	if _, err := gate.VerifyGrant(grant.Token, PresenceLobbyChannel); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for channel mismatch, got %v", err)
	}

	// Tampered tokens fail the signature check.
	if _, err := gate.VerifyGrant(grant.Token+"x", channel); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for tampered token, got %v", err)
	}
}

func TestVerifyGrantRejectsForeignSigner(t *testing.T) {
	gate, _, users := newChannelAuthFixture()
	u := users.add(true)
	channel := UserChannel(u.ID)

	grant, err := gate.Authorize(context.Background(), u.ID, channel, "conn-1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	otherGate := NewChannelAuthService(nil, nil, "different-secret", time.Minute)
	if _, err := otherGate.VerifyGrant(grant.Token, channel); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden under a different secret, got %v", err)
	}
}
