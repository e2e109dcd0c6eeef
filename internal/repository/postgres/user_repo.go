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

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, display_name, password_hash, bio, avatar_url, birth_date, active, last_active_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.Username, user.DisplayName,
		user.PasswordHash, user.Bio, user.AvatarURL, user.BirthDate,
		user.Active, user.LastActiveAt, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.scanUser(ctx, selectUser+" WHERE id = $1", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, selectUser+" WHERE email = $1", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, selectUser+" WHERE username = $1", username)
}

// ListCandidates is the discovery source query: active users minus the
// requester, minus anyone they already acted on, minus existing matches.
func (r *UserRepo) ListCandidates(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.PublicProfile, error) {
	query := `
		SELECT u.id, u.username, u.display_name, u.avatar_url
		FROM users u
		WHERE u.active
			AND u.id != $1
			AND NOT EXISTS (
				SELECT 1 FROM interactions i
				WHERE i.actor_id = $1 AND i.target_id = u.id
			)
			AND NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE (m.user1_id = $1 AND m.user2_id = u.id)
					OR (m.user1_id = u.id AND m.user2_id = $1)
			)
		ORDER BY u.last_active_at DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.PublicProfile
	for rows.Next() {
		var p domain.PublicProfile
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *UserRepo) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

const selectUser = `SELECT id, email, username, display_name, password_hash, bio, avatar_url, birth_date, active, last_active_at, created_at, updated_at FROM users`

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.DisplayName,
		&u.PasswordHash, &u.Bio, &u.AvatarURL, &u.BirthDate,
		&u.Active, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &u, err
}
