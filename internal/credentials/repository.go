package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoCredential indicates the account has no stored grant for the provider.
var ErrNoCredential = errors.New("no stored credential")

// Repository persists encrypted OAuth credentials, one row per account and provider.
type Repository interface {
	Get(ctx context.Context, accountID int64, provider string) (*Credential, error)
	Upsert(ctx context.Context, c Credential) error
	UpdateTokens(ctx context.Context, accountID int64, provider, accessToken, refreshToken, tokenType string, expiry time.Time) error
	Delete(ctx context.Context, accountID int64, provider string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed credential repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const credentialColumns = `id, account_id, provider, access_token, refresh_token, token_type, scope, expiry, created_at, updated_at`

func (r *repository) Get(ctx context.Context, accountID int64, provider string) (*Credential, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM oauth_credentials WHERE account_id = $1 AND provider = $2
	`, credentialColumns), accountID, provider)

	var c Credential
	err := row.Scan(&c.ID, &c.AccountID, &c.Provider, &c.AccessToken, &c.RefreshToken,
		&c.TokenType, &c.Scope, &c.Expiry, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}

func (r *repository) Upsert(ctx context.Context, c Credential) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oauth_credentials (account_id, provider, access_token, refresh_token, token_type, scope, expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (account_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expiry = EXCLUDED.expiry,
			updated_at = NOW()
	`, c.AccountID, c.Provider, c.AccessToken, c.RefreshToken, c.TokenType, c.Scope, c.Expiry)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (r *repository) UpdateTokens(ctx context.Context, accountID int64, provider, accessToken, refreshToken, tokenType string, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE oauth_credentials
		SET access_token = $3, refresh_token = $4, token_type = $5, expiry = $6, updated_at = NOW()
		WHERE account_id = $1 AND provider = $2
	`, accountID, provider, accessToken, refreshToken, tokenType, expiry)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoCredential
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, accountID int64, provider string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM oauth_credentials WHERE account_id = $1 AND provider = $2
	`, accountID, provider)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoCredential
	}
	return nil
}
