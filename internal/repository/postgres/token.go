package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenStore struct {
	pool *pgxpool.Pool
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

func (s *TokenStore) Revoke(ctx context.Context, jti, userID uuid.UUID, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_blacklist (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		jti, userID, expiresAt)
	if err != nil {
		return wrapWrite("revoke token", err)
	}
	return nil
}

func (s *TokenStore) IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	var revoked bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM token_blacklist WHERE jti = $1 AND expires_at > now()
		)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (s *TokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
