package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/spark/internal/domain"
)

type InteractionRepo struct {
	pool *pgxpool.Pool
}

func NewInteractionRepo(pool *pgxpool.Pool) *InteractionRepo {
	return &InteractionRepo{pool: pool}
}

func (r *InteractionRepo) Get(ctx context.Context, actorID, targetID uuid.UUID) (*domain.InteractionEdge, error) {
	query := `
		SELECT actor_id, target_id, kind, created_at
		FROM interactions
		WHERE actor_id = $1 AND target_id = $2`
	var edge domain.InteractionEdge
	err := r.pool.QueryRow(ctx, query, actorID, targetID).Scan(
		&edge.ActorID, &edge.TargetID, &edge.Kind, &edge.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &edge, err
}

// Upsert writes the edge, replacing an opposite-kind edge for the same
// directed pair, and reports whether the reverse edge of the same kind
// already exists. The primary key on (actor_id, target_id) keeps the
// "one current kind per directed pair" invariant even if two writes race.
func (r *InteractionRepo) Upsert(ctx context.Context, edge *domain.InteractionEdge) (bool, error) {
	query := `
		INSERT INTO interactions (actor_id, target_id, kind, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor_id, target_id)
		DO UPDATE SET kind = EXCLUDED.kind, created_at = EXCLUDED.created_at`
	if _, err := r.pool.Exec(ctx, query, edge.ActorID, edge.TargetID, edge.Kind, edge.CreatedAt); err != nil {
		return false, wrapTransient(err)
	}

	var reciprocal bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM interactions WHERE actor_id = $1 AND target_id = $2 AND kind = $3)`,
		edge.TargetID, edge.ActorID, edge.Kind,
	).Scan(&reciprocal)
	return reciprocal, err
}

func (r *InteractionRepo) Delete(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM interactions WHERE actor_id = $1 AND target_id = $2`,
		actorID, targetID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
