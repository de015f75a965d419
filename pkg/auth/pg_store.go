package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vivhq/viv/pkg/pg"
)

// PGStore is a PostgreSQL-backed UserStorage.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx,
		`SELECT id, email, is_verified, created_at, verified_at FROM users WHERE id = $1`, id)
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx,
		`SELECT id, email, is_verified, created_at, verified_at FROM users WHERE email = $1`, email)
}

func (s *PGStore) getUser(ctx context.Context, query, arg string) (*User, error) {
	var (
		user       User
		verifiedAt *time.Time
	)

	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.IsVerified, &user.CreatedAt, &verifiedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.VerifiedAt = verifiedAt
	return &user, nil
}

func (s *PGStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, is_verified, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.IsVerified, user.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PGStore) MarkUserVerified(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET is_verified = TRUE, verified_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

var _ UserStorage = (*PGStore)(nil)
