package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/spark/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the
// find-or-create routine can run inside the match resolution
// transaction or standalone.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// FindOrCreate returns the single non-left private conversation for the
// pair, creating it when absent. Runs in its own transaction under the
// canonical pair lock; when called during match resolution the same
// routine runs inside the resolver's transaction instead, so both paths
// serialize on the same lock.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, false, wrapTransient(err)
	}
	defer tx.Rollback(ctx)

	if err := acquirePairLock(ctx, tx, userA, userB); err != nil {
		return nil, false, wrapTransient(err)
	}

	conv, created, err := findOrCreateConversation(ctx, tx, userA, userB)
	if err != nil {
		return nil, false, wrapTransient(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, wrapTransient(err)
	}
	return conv, created, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, kind, created_at, last_activity_at
		FROM conversations
		WHERE id = $1`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID, &conv.Kind, &conv.CreatedAt, &conv.LastActivityAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &conv, err
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	query := `
		SELECT c.id, c.kind, c.created_at, c.last_activity_at,
			u.id AS other_user_id, u.username, u.display_name
		FROM conversations c
		JOIN conversation_participants me ON me.conversation_id = c.id
			AND me.user_id = $1 AND me.left_at IS NULL
		JOIN conversation_participants other ON other.conversation_id = c.id
			AND other.user_id != $1
		JOIN users u ON u.id = other.user_id
		ORDER BY c.last_activity_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.Kind, &conv.CreatedAt, &conv.LastActivityAt,
			&conv.OtherUserID, &conv.OtherUserUsername, &conv.OtherUserDisplayName,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2 AND left_at IS NULL
		)`,
		conversationID, userID,
	).Scan(&ok)
	return ok, err
}

func (r *ConversationRepo) Participants(ctx context.Context, conversationID uuid.UUID) ([]domain.ConversationParticipant, error) {
	query := `
		SELECT conversation_id, user_id, joined_at, left_at
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []domain.ConversationParticipant
	for rows.Next() {
		var p domain.ConversationParticipant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// acquirePairLock takes the transaction-scoped advisory lock for the
// canonical pair key. A dedicated lock works even when no match or
// conversation row exists yet, which a FOR UPDATE read cannot cover.
func acquirePairLock(ctx context.Context, q querier, userA, userB uuid.UUID) error {
	_, err := q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		domain.PairKey(userA, userB),
	)
	return err
}

func findOrCreateConversation(ctx context.Context, q querier, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	query := `
		SELECT c.id, c.kind, c.created_at, c.last_activity_at
		FROM conversations c
		JOIN conversation_participants p1 ON p1.conversation_id = c.id
			AND p1.user_id = $1 AND p1.left_at IS NULL
		JOIN conversation_participants p2 ON p2.conversation_id = c.id
			AND p2.user_id = $2 AND p2.left_at IS NULL
		WHERE c.kind = $3`

	u1, u2 := domain.OrderPair(userA, userB)

	var conv domain.Conversation
	err := q.QueryRow(ctx, query, u1, u2, domain.ConversationKindPrivate).Scan(
		&conv.ID, &conv.Kind, &conv.CreatedAt, &conv.LastActivityAt,
	)
	if err == nil {
		return &conv, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	now := time.Now()
	conv = domain.Conversation{
		ID:             uuid.New(),
		Kind:           domain.ConversationKindPrivate,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if _, err := q.Exec(ctx,
		`INSERT INTO conversations (id, kind, created_at, last_activity_at) VALUES ($1, $2, $3, $4)`,
		conv.ID, conv.Kind, conv.CreatedAt, conv.LastActivityAt,
	); err != nil {
		return nil, false, err
	}
	for _, uid := range []uuid.UUID{u1, u2} {
		if _, err := q.Exec(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id, joined_at) VALUES ($1, $2, $3)`,
			conv.ID, uid, now,
		); err != nil {
			return nil, false, err
		}
	}
	return &conv, true, nil
}
