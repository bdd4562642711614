package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository handles user credential database operations.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves the stored credential for a user.
func (r *CredentialRepository) Get(ctx context.Context, userID string) (*Credential, error) {
	query := `
		SELECT user_id, display_name, access_token, refresh_token, token_expires_at
		FROM users
		WHERE user_id = $1
	`
	var cred Credential
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cred.UserID,
		&cred.DisplayName,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	return &cred, nil
}

// Upsert stores a credential, fully replacing any existing row for the
// same user.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *Credential) error {
	query := `
		INSERT INTO users (user_id, display_name, access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at
	`
	_, err := r.pool.Exec(ctx, query,
		cred.UserID,
		cred.DisplayName,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}
	return nil
}

// UpdateToken stores a refreshed access token and expiry. The update is
// conditional on the access token the caller read, so two racing
// refreshes cannot interleave a stale write. The refresh token is left
// untouched. Returns ErrNotFound when no row matched.
func (r *CredentialRepository) UpdateToken(ctx context.Context, userID, prevAccessToken, accessToken, expiresAt string) error {
	query := `
		UPDATE users
		SET access_token = $3, token_expires_at = $4
		WHERE user_id = $1 AND access_token = $2
	`
	result, err := r.pool.Exec(ctx, query, userID, prevAccessToken, accessToken, expiresAt)
	if err != nil {
		return fmt.Errorf("updating token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
