package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/limpio-app/limpio/internal/shared"
)

// Repository provides account persistence.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	Create(ctx context.Context, email, name, passwordHash string) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed account repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.scanOne(ctx, `
		SELECT id, email, name, password_hash, is_active, created_at
		FROM accounts WHERE email = $1
	`, email)
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	return r.scanOne(ctx, `
		SELECT id, email, name, password_hash, is_active, created_at
		FROM accounts WHERE id = $1
	`, id)
}

func (r *repository) Create(ctx context.Context, email, name, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, name, password_hash, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id
	`, email, name, passwordHash).Scan(&id)
	return id, err
}

func (r *repository) scanOne(ctx context.Context, query string, arg any) (*Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
