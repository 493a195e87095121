package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Vault stores OAuth grants encrypted at rest and hands out token
// sources that transparently refresh and persist rotated tokens.
type Vault struct {
	logger      *slog.Logger
	repo        Repository
	cipher      *Cipher
	oauth       *oauth2.Config
	revokeHooks []func(ctx context.Context, accountID int64) error
}

// NewVault constructs a Vault.
func NewVault(logger *slog.Logger, repo Repository, cipher *Cipher, oauth *oauth2.Config) *Vault {
	return &Vault{logger: logger, repo: repo, cipher: cipher, oauth: oauth}
}

// OAuthConfig exposes the provider config for building consent URLs.
func (v *Vault) OAuthConfig() *oauth2.Config {
	return v.oauth
}

// Save encrypts and stores a freshly exchanged token for the account.
func (v *Vault) Save(ctx context.Context, accountID int64, provider string, token *oauth2.Token) error {
	access, err := v.cipher.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh := ""
	if token.RefreshToken != "" {
		refresh, err = v.cipher.Encrypt([]byte(token.RefreshToken))
		if err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}
	scope, _ := token.Extra("scope").(string)
	return v.repo.Upsert(ctx, Credential{
		AccountID:    accountID,
		Provider:     provider,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    token.TokenType,
		Scope:        scope,
		Expiry:       token.Expiry,
	})
}

// Status reports whether the account has a grant and when it expires.
func (v *Vault) Status(ctx context.Context, accountID int64, provider string) (*Credential, error) {
	return v.repo.Get(ctx, accountID, provider)
}

// OnRevoke registers cleanup to run after a grant is dropped, e.g.
// deleting the account's calendar sync records.
func (v *Vault) OnRevoke(fn func(ctx context.Context, accountID int64) error) {
	v.revokeHooks = append(v.revokeHooks, fn)
}

// Revoke drops the stored grant and runs the registered cleanup hooks.
// Returns ErrNoCredential when nothing was stored.
func (v *Vault) Revoke(ctx context.Context, accountID int64, provider string) error {
	if err := v.repo.Delete(ctx, accountID, provider); err != nil {
		return err
	}
	for _, fn := range v.revokeHooks {
		if err := fn(ctx, accountID); err != nil {
			v.logger.Error("revoke cleanup",
				slog.Int64("account_id", accountID),
				slog.Any("error", err))
		}
	}
	return nil
}

// TokenSource returns an oauth2.TokenSource for the account. Refreshed
// tokens are re-encrypted and written back so the next process start
// picks up the rotation.
func (v *Vault) TokenSource(ctx context.Context, accountID int64, provider string) (oauth2.TokenSource, error) {
	cred, err := v.repo.Get(ctx, accountID, provider)
	if err != nil {
		return nil, err
	}

	access, err := v.cipher.Decrypt(cred.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken: string(access),
		TokenType:   cred.TokenType,
		Expiry:      cred.Expiry,
	}
	if cred.RefreshToken != "" {
		refresh, err := v.cipher.Decrypt(cred.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
		tok.RefreshToken = string(refresh)
	}

	return &persistingSource{
		vault:     v,
		accountID: accountID,
		provider:  provider,
		inner:     v.oauth.TokenSource(ctx, tok),
		last:      tok,
	}, nil
}

// persistingSource wraps the provider token source and writes every
// rotation back through the vault.
type persistingSource struct {
	vault     *Vault
	accountID int64
	provider  string

	mu    sync.Mutex
	inner oauth2.TokenSource
	last  *oauth2.Token
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.inner.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last.AccessToken {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.vault.persistRotation(ctx, p.accountID, p.provider, tok); err != nil {
			// The token itself is still valid, keep going with it.
			p.vault.logger.Error("persist rotated token",
				slog.Int64("account_id", p.accountID),
				slog.Any("error", err))
		}
		p.last = tok
	}
	return tok, nil
}

func (v *Vault) persistRotation(ctx context.Context, accountID int64, provider string, tok *oauth2.Token) error {
	access, err := v.cipher.Encrypt([]byte(tok.AccessToken))
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh := ""
	if tok.RefreshToken != "" {
		refresh, err = v.cipher.Encrypt([]byte(tok.RefreshToken))
		if err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}
	return v.repo.UpdateTokens(ctx, accountID, provider, access, refresh, tok.TokenType, tok.Expiry)
}
