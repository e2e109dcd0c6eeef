package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/spark/internal/domain"
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// Resolve promotes a mutual like into a match exactly once. The whole
// sequence runs in one serializable transaction:
//
//  1. take the advisory lock on the canonical pair key, so two requests
//     racing from opposite sides of the pair serialize here;
//  2. re-check for an existing match — the winner of the race created
//     it, the loser returns it unchanged;
//  3. re-verify both like edges are still present — a concurrent
//     dislike may have withdrawn one side;
//  4. insert the match and provision the conversation before commit.
//
// Returns (match, conversation, created). A nil match means the pair is
// no longer mutual.
func (r *MatchRepo) Resolve(ctx context.Context, userA, userB uuid.UUID) (*domain.Match, *domain.Conversation, bool, error) {
	u1, u2 := domain.OrderPair(userA, userB)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, nil, false, wrapTransient(err)
	}
	defer tx.Rollback(ctx)

	if err := acquirePairLock(ctx, tx, u1, u2); err != nil {
		return nil, nil, false, wrapTransient(err)
	}

	existing, err := getMatchByPair(ctx, tx, u1, u2)
	if err != nil {
		return nil, nil, false, wrapTransient(err)
	}
	if existing != nil {
		conv, _, err := findOrCreateConversation(ctx, tx, u1, u2)
		if err != nil {
			return nil, nil, false, wrapTransient(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, nil, false, wrapTransient(err)
		}
		return existing, conv, false, nil
	}

	var likes int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM interactions
		WHERE kind = $3
			AND ((actor_id = $1 AND target_id = $2) OR (actor_id = $2 AND target_id = $1))`,
		u1, u2, domain.InteractionLike,
	).Scan(&likes)
	if err != nil {
		return nil, nil, false, wrapTransient(err)
	}
	if likes != 2 {
		return nil, nil, false, nil
	}

	match := &domain.Match{
		ID:        uuid.New(),
		User1ID:   u1,
		User2ID:   u2,
		MatchedAt: time.Now(),
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO matches (id, user1_id, user2_id, matched_at) VALUES ($1, $2, $3, $4)`,
		match.ID, match.User1ID, match.User2ID, match.MatchedAt,
	); err != nil {
		return nil, nil, false, wrapTransient(err)
	}

	conv, _, err := findOrCreateConversation(ctx, tx, u1, u2)
	if err != nil {
		return nil, nil, false, wrapTransient(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, false, wrapTransient(err)
	}
	return match, conv, true, nil
}

func (r *MatchRepo) GetByPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Match, error) {
	u1, u2 := domain.OrderPair(userA, userB)
	return getMatchByPair(ctx, r.pool, u1, u2)
}

func (r *MatchRepo) DeleteByPair(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	u1, u2 := domain.OrderPair(userA, userB)
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM matches WHERE user1_id = $1 AND user2_id = $2`,
		u1, u2,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MatchRepo) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Match, error) {
	query := `
		SELECT m.id, m.user1_id, m.user2_id, m.matched_at,
			CASE WHEN m.user1_id = $1 THEN m.user2_id ELSE m.user1_id END AS other_user_id,
			CASE WHEN m.user1_id = $1 THEN u2.username ELSE u1.username END AS other_username,
			CASE WHEN m.user1_id = $1 THEN u2.display_name ELSE u1.display_name END AS other_display_name
		FROM matches m
		JOIN users u1 ON m.user1_id = u1.id
		JOIN users u2 ON m.user2_id = u2.id
		WHERE m.user1_id = $1 OR m.user2_id = $1
		ORDER BY m.matched_at DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(
			&m.ID, &m.User1ID, &m.User2ID, &m.MatchedAt,
			&m.OtherUserID, &m.OtherUserUsername, &m.OtherUserDisplayName,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func getMatchByPair(ctx context.Context, q querier, u1, u2 uuid.UUID) (*domain.Match, error) {
	var m domain.Match
	err := q.QueryRow(ctx,
		`SELECT id, user1_id, user2_id, matched_at FROM matches WHERE user1_id = $1 AND user2_id = $2`,
		u1, u2,
	).Scan(&m.ID, &m.User1ID, &m.User2ID, &m.MatchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &m, err
}
