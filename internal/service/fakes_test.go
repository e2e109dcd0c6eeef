package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/repository"
)

// --- users ---

type fakeUserRepo struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*domain.User
	candidates []domain.PublicProfile
	listCalls  int
	touched    int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) add(active bool) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	u := &domain.User{
		ID:          id,
		Email:       id.String() + "@example.com",
		Username:    "u_" + id.String()[:8],
		DisplayName: "User " + id.String()[:8],
		Active:      active,
	}
	r.users[id] = u
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ListCandidates(_ context.Context, _ uuid.UUID, offset, limit int) ([]domain.PublicProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if offset >= len(r.candidates) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.candidates) {
		end = len(r.candidates)
	}
	return r.candidates[offset:end], nil
}

func (r *fakeUserRepo) TouchLastActive(_ context.Context, _ uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched++
	return nil
}

// --- interactions ---

type fakeInteractionRepo struct {
	mu    sync.Mutex
	edges map[string]*domain.InteractionEdge
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{edges: make(map[string]*domain.InteractionEdge)}
}

func edgeKey(actorID, targetID uuid.UUID) string {
	return actorID.String() + "|" + targetID.String()
}

func (r *fakeInteractionRepo) Get(_ context.Context, actorID, targetID uuid.UUID) (*domain.InteractionEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edges[edgeKey(actorID, targetID)], nil
}

func (r *fakeInteractionRepo) Upsert(_ context.Context, edge *domain.InteractionEdge) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[edgeKey(edge.ActorID, edge.TargetID)] = edge
	rev, ok := r.edges[edgeKey(edge.TargetID, edge.ActorID)]
	return ok && rev.Kind == edge.Kind, nil
}

func (r *fakeInteractionRepo) Delete(_ context.Context, actorID, targetID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := edgeKey(actorID, targetID)
	_, ok := r.edges[key]
	delete(r.edges, key)
	return ok, nil
}

func (r *fakeInteractionRepo) bothLike(a, b uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ab, okAB := r.edges[edgeKey(a, b)]
	ba, okBA := r.edges[edgeKey(b, a)]
	return okAB && okBA && ab.Kind == domain.InteractionLike && ba.Kind == domain.InteractionLike
}

// --- conversations ---

type fakeConversationRepo struct {
	mu            sync.Mutex
	byPair        map[string]*domain.Conversation
	byID          map[uuid.UUID]*domain.Conversation
	parts         map[uuid.UUID][]domain.ConversationParticipant
	transientLeft int
	findCalls     int
	// breakInvariant creates conversations with a single participant.
	breakInvariant bool
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byPair: make(map[string]*domain.Conversation),
		byID:   make(map[uuid.UUID]*domain.Conversation),
		parts:  make(map[uuid.UUID][]domain.ConversationParticipant),
	}
}

func (r *fakeConversationRepo) FindOrCreate(_ context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.transientLeft > 0 {
		r.transientLeft--
		return nil, false, fmt.Errorf("%w: scripted conflict", repository.ErrTransient)
	}
	return r.findOrCreateLocked(userA, userB)
}

func (r *fakeConversationRepo) findOrCreateLocked(userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	key := domain.PairKey(userA, userB)
	if conv, ok := r.byPair[key]; ok {
		c := *conv
		return &c, false, nil
	}
	now := time.Now()
	conv := &domain.Conversation{
		ID:             uuid.New(),
		Kind:           domain.ConversationKindPrivate,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	r.byPair[key] = conv
	r.byID[conv.ID] = conv
	participants := []domain.ConversationParticipant{
		{ConversationID: conv.ID, UserID: userA, JoinedAt: now},
		{ConversationID: conv.ID, UserID: userB, JoinedAt: now},
	}
	if r.breakInvariant {
		participants = participants[:1]
	}
	r.parts[conv.ID] = participants
	c := *conv
	return &c, true, nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.byID[id]; ok {
		c := *conv
		return &c, nil
	}
	return nil, nil
}

func (r *fakeConversationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for id, participants := range r.parts {
		for _, p := range participants {
			if p.UserID == userID && p.LeftAt == nil {
				out = append(out, *r.byID[id])
			}
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) IsParticipant(_ context.Context, conversationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.parts[conversationID] {
		if p.UserID == userID && p.LeftAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeConversationRepo) Participants(_ context.Context, conversationID uuid.UUID) ([]domain.ConversationParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parts[conversationID], nil
}

// --- matches ---

// fakeMatchRepo mirrors the storage contract: Resolve holds one lock for
// the whole check-then-create sequence, so concurrent resolutions of the
// same pair yield exactly one created match. When an interaction repo is
// attached, Resolve verifies both like edges under the lock.
type fakeMatchRepo struct {
	mu            sync.Mutex
	matches       map[string]*domain.Match
	convs         *fakeConversationRepo
	interactions  *fakeInteractionRepo
	transientLeft int
	resolveCalls  int
	listCalls     int
	deleteErr     error
}

func newFakeMatchRepo(convs *fakeConversationRepo) *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[string]*domain.Match), convs: convs}
}

func (r *fakeMatchRepo) Resolve(_ context.Context, userA, userB uuid.UUID) (*domain.Match, *domain.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveCalls++
	if r.transientLeft > 0 {
		r.transientLeft--
		return nil, nil, false, fmt.Errorf("%w: scripted conflict", repository.ErrTransient)
	}

	u1, u2 := domain.OrderPair(userA, userB)
	key := domain.PairKey(userA, userB)

	if m, ok := r.matches[key]; ok {
		conv, _, err := r.convs.findOrCreateLocked(u1, u2)
		if err != nil {
			return nil, nil, false, err
		}
		match := *m
		return &match, conv, false, nil
	}

	if r.interactions != nil && !r.interactions.bothLike(userA, userB) {
		return nil, nil, false, nil
	}

	m := &domain.Match{
		ID:        uuid.New(),
		User1ID:   u1,
		User2ID:   u2,
		MatchedAt: time.Now(),
	}
	r.matches[key] = m
	conv, _, err := r.convs.findOrCreateLocked(u1, u2)
	if err != nil {
		return nil, nil, false, err
	}
	match := *m
	return &match, conv, true, nil
}

func (r *fakeMatchRepo) GetByPair(_ context.Context, userA, userB uuid.UUID) (*domain.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[domain.PairKey(userA, userB)]; ok {
		match := *m
		return &match, nil
	}
	return nil, nil
}

func (r *fakeMatchRepo) DeleteByPair(_ context.Context, userA, userB uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	key := domain.PairKey(userA, userB)
	_, ok := r.matches[key]
	delete(r.matches, key)
	return ok, nil
}

func (r *fakeMatchRepo) ListByUser(_ context.Context, userID uuid.UUID, offset, limit int) ([]domain.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []domain.Match
	for _, m := range r.matches {
		if m.User1ID == userID || m.User2ID == userID {
			out = append(out, *m)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

// --- cache ---

type fakeCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated map[uuid.UUID]int
	setCalls    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte), invalidated: make(map[uuid.UUID]int)}
}

func cacheKey(userID uuid.UUID, view, page string) string {
	return userID.String() + "|" + view + "|" + page
}

func (c *fakeCache) Get(_ context.Context, userID uuid.UUID, view, page string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[cacheKey(userID, view, page)]
	return data, ok, nil
}

func (c *fakeCache) Set(_ context.Context, userID uuid.UUID, view, page string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	c.data[cacheKey(userID, view, page)] = value
	return nil
}

func (c *fakeCache) InvalidateUser(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated[userID]++
	prefix := userID.String() + "|"
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
	return nil
}

// --- events ---

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(_ context.Context, subject string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
}

func (p *fakePublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

// --- notifier ---

type fakeNotifier struct {
	mu            sync.Mutex
	matches       int
	conversations int
	online        []bool
	typing        []bool
}

func (n *fakeNotifier) NotifyMatch(_ *domain.Match, _ *domain.Conversation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.matches++
}

func (n *fakeNotifier) NotifyConversation(_ *domain.Conversation, _ []uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conversations++
}

func (n *fakeNotifier) NotifyPresence(_ uuid.UUID, online bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.online = append(n.online, online)
}

func (n *fakeNotifier) NotifyTyping(_, _ uuid.UUID, typing bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.typing = append(n.typing, typing)
}
