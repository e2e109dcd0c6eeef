package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/repository/memstore"
)

type presenceFixture struct {
	svc       *PresenceService
	convs     *ConversationService
	users     *fakeUserRepo
	publisher *fakePublisher
	notifier  *fakeNotifier
	now       time.Time
}

func newPresenceFixture(heartbeatTTL, typingTTL time.Duration) *presenceFixture {
	f := &presenceFixture{
		users:     newFakeUserRepo(),
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		now:       time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	store := memstore.NewPresenceWithClock(func() time.Time { return f.now })
	f.convs = NewConversationService(newFakeConversationRepo(), f.users, newFakeCache(), f.publisher)
	f.svc = NewPresenceService(store, f.convs, f.users, f.publisher, heartbeatTTL, typingTTL)
	f.svc.SetNotifier(f.notifier)
	return f
}

func (f *presenceFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestHeartbeatMarksOnlineUntilTTL(t *testing.T) {
	f := newPresenceFixture(90*time.Second, 15*time.Second)
	u := f.users.add(true)
	ctx := context.Background()

	if err := f.svc.Heartbeat(ctx, u.ID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	rec, err := f.svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rec.Online {
		t.Fatal("expected online after heartbeat")
	}
	if rec.LastSeenAt == nil {
		t.Fatal("expected last seen recorded")
	}

	f.advance(91 * time.Second)
	rec, err = f.svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if rec.Online {
		t.Fatal("expected offline after TTL with no heartbeat")
	}
	if rec.LastSeenAt == nil {
		t.Fatal("last seen must outlive the heartbeat window")
	}
}

func TestHeartbeatPublishesOnlyOnTransition(t *testing.T) {
	f := newPresenceFixture(90*time.Second, 15*time.Second)
	u := f.users.add(true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.svc.Heartbeat(ctx, u.ID); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
		f.advance(10 * time.Second)
	}
	if got := f.publisher.count(EventPresenceChanged); got != 1 {
		t.Fatalf("expected 1 transition event for continuous heartbeats, got %d", got)
	}

	// Let presence lapse; the next heartbeat is a fresh transition.
	f.advance(2 * time.Minute)
	if err := f.svc.Heartbeat(ctx, u.ID); err != nil {
		t.Fatalf("heartbeat after lapse: %v", err)
	}
	if got := f.publisher.count(EventPresenceChanged); got != 2 {
		t.Fatalf("expected 2 transition events, got %d", got)
	}
}

func TestDisconnectIsImmediatelyOffline(t *testing.T) {
	f := newPresenceFixture(90*time.Second, 15*time.Second)
	u := f.users.add(true)
	ctx := context.Background()

	if err := f.svc.Heartbeat(ctx, u.ID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if err := f.svc.Disconnect(ctx, u.ID); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	rec, err := f.svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Online {
		t.Fatal("expected offline right after disconnect")
	}
	if len(f.notifier.online) != 2 || f.notifier.online[1] != false {
		t.Fatalf("expected online then offline notifications, got %v", f.notifier.online)
	}
}

func TestTypingAutoRevertsAfterTTL(t *testing.T) {
	f := newPresenceFixture(90*time.Second, 15*time.Second)
	a := f.users.add(true)
	b := f.users.add(true)
	ctx := context.Background()

	conv, _, err := f.convs.GetOrCreate(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	if err := f.svc.SetTyping(ctx, a.ID, conv.ID, true); err != nil {
		t.Fatalf("set typing: %v", err)
	}
	rec, _ := f.svc.Get(ctx, a.ID)
	if rec.TypingConversationID == nil || *rec.TypingConversationID != conv.ID {
		t.Fatal("expected typing state set")
	}

	f.advance(16 * time.Second)
	rec, _ = f.svc.Get(ctx, a.ID)
	if rec.TypingConversationID != nil {
		t.Fatal("expected typing state reverted after TTL")
	}
}

func TestTypingHoldsOneConversationAtATime(t *testing.T) {
	f := newPresenceFixture(90*time.Second, 15*time.Second)
	a := f.users.add(true)
	b := f.users.add(true)
	c := f.users.add(true)
	ctx := context.Background()

	convAB, _, err := f.convs.GetOrCreate(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("conversation ab: %v", err)
	}
	convAC, _, err := f.convs.GetOrCreate(ctx, a.ID, c.ID)
	if err != nil {
		t.Fatalf("conversation ac: %v", err)
	}

	if err := f.svc.SetTyping(ctx, a.ID, convAB.ID, true); err != nil {
		t.Fatalf("typing ab: %v", err)
	}
	if err := f.svc.SetTyping(ctx, a.ID, convAC.ID, true); err != nil {
		t.Fatalf("typing ac: %v", err)
	}

	rec, _ := f.svc.Get(ctx, a.ID)
	if rec.TypingConversationID == nil || *rec.TypingConversationID != convAC.ID {
		t.Fatal("expected newest conversation to replace the previous typing target")
	}

	// A stale stop for the superseded conversation must not clear the
	// current one.
	if err := f.svc.SetTyping(ctx, a.ID, convAB.ID, false); err != nil {
		t.Fatalf("stale stop: %v", err)
	}
	rec, _ = f.svc.Get(ctx, a.ID)
	if rec.TypingConversationID == nil || *rec.TypingConversationID != convAC.ID {
		t.Fatal("stale stop must be a no-op")
	}

	if err := f.svc.SetTyping(ctx, a.ID, convAC.ID, false); err != nil {
		t.Fatalf("stop: %v", err)
	}
	rec, _ = f.svc.Get(ctx, a.ID)
	if rec.TypingConversationID != nil {
		t.Fatal("expected typing cleared")
	}
}

func TestTypingInFiltersByConversation(t *testing.T) {
	f := newPresenceFixture(90*time.Second, 15*time.Second)
	a := f.users.add(true)
	b := f.users.add(true)
	ctx := context.Background()

	conv, _, err := f.convs.GetOrCreate(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	if err := f.svc.SetTyping(ctx, a.ID, conv.ID, true); err != nil {
		t.Fatalf("set typing: %v", err)
	}

	typing, err := f.svc.TypingIn(ctx, conv.ID, []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("typing in: %v", err)
	}
	if len(typing) != 1 || typing[0] != a.ID {
		t.Fatalf("expected only the typist, got %v", typing)
	}

	f.advance(16 * time.Second)
	typing, err = f.svc.TypingIn(ctx, conv.ID, []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("typing in after TTL: %v", err)
	}
	if len(typing) != 0 {
		t.Fatalf("expected nobody typing after TTL, got %v", typing)
	}
}

func TestTypingRequiresParticipation(t *testing.T) {
	f := newPresenceFixture(90*time.Second, 15*time.Second)
	a := f.users.add(true)
	b := f.users.add(true)
	outsider := f.users.add(true)
	ctx := context.Background()

	conv, _, err := f.convs.GetOrCreate(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	err = f.svc.SetTyping(ctx, outsider.ID, conv.ID, true)
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	err = f.svc.SetTyping(ctx, a.ID, uuid.New(), true)
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}
