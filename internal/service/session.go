package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/auth"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"go.uber.org/zap"
)

// SessionConfig holds the signing secrets and lifetimes of both token kinds.
type SessionConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// TokenPair is what signup, login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SessionService issues token pairs and rotates refresh tokens. A refresh
// token is single use: refreshing revokes it and hands out a new pair.
//
// Revocations are written to Redis and Postgres. Redis answers the common
// case; Postgres keeps them when Redis is down or flushed.
type SessionService struct {
	tokens repository.TokenRepository
	users  repository.UserRepository
	cache  cache.Cache
	cfg    SessionConfig
	now    func() time.Time
	logger *zap.Logger
}

func NewSessionService(tokens repository.TokenRepository, users repository.UserRepository, c cache.Cache, cfg SessionConfig, logger *zap.Logger) *SessionService {
	if c == nil {
		c = cache.Noop{}
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	return &SessionService{tokens: tokens, users: users, cache: c, cfg: cfg, now: time.Now, logger: logger}
}

func revokedKey(jti uuid.UUID) string {
	return "auth:refresh:revoked:" + jti.String()
}

// Issue signs a fresh access and refresh token for user.
func (s *SessionService) Issue(user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.TenantID, user.Email, user.Role, s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, err := auth.GenerateRefreshToken(user.ID, user.TenantID, user.Email, user.Role, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(s.cfg.AccessTTL).UTC(),
	}, nil
}

func (s *SessionService) parse(refreshToken string) (*auth.Claims, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("refresh token required")
	}
	claims, err := auth.ParseRefreshToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired refresh token")
	}
	return claims, nil
}

func (s *SessionService) isRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	var marker bool
	hit, err := s.cache.Get(ctx, revokedKey(jti), &marker)
	if err != nil {
		s.logger.Warn("revocation cache read failed", zap.String("jti", jti.String()), zap.Error(err))
	}
	if hit && marker {
		return true, nil
	}
	revoked, err := s.tokens.IsRevoked(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}

func (s *SessionService) revoke(ctx context.Context, claims *auth.Claims) error {
	jti := claims.TokenID()
	expires := claims.ExpiresAt.Time
	if ttl := expires.Sub(s.now()); ttl > 0 {
		if err := s.cache.Set(ctx, revokedKey(jti), true, ttl); err != nil {
			s.logger.Warn("revocation cache write failed", zap.String("jti", jti.String()), zap.Error(err))
		}
	}
	if err := s.tokens.Revoke(ctx, jti, claims.UserID, expires); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// Refresh trades a valid, unrevoked refresh token for a new pair. The user
// must still exist and be active.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	revoked, err := s.isRevoked(ctx, claims.TokenID())
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		s.logger.Warn("revoked refresh token presented",
			zap.String("user_id", claims.UserID.String()),
			zap.String("jti", claims.ID),
		)
		return nil, nil, apperr.Unauthorized("refresh token has been revoked")
	}

	user, err := s.users.GetByID(ctx, claims.TenantID, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive() {
		return nil, nil, apperr.Unauthorized("user session is no longer valid")
	}

	if err := s.revoke(ctx, claims); err != nil {
		return nil, nil, err
	}
	pair, err := s.Issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout revokes refreshToken. It must belong to the caller.
func (s *SessionService) Logout(ctx context.Context, tenantID, userID uuid.UUID, refreshToken string) error {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return err
	}
	if claims.TenantID != tenantID || claims.UserID != userID {
		return apperr.Forbidden("refresh token belongs to another user")
	}
	return s.revoke(ctx, claims)
}

// PurgeExpired drops revocation rows whose tokens have expired anyway.
func (s *SessionService) PurgeExpired(ctx context.Context) error {
	n, err := s.tokens.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("purged revoked tokens", zap.Int64("rows", n))
	}
	return nil
}

// RunPurge calls PurgeExpired every interval until ctx is done.
func (s *SessionService) RunPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PurgeExpired(ctx); err != nil {
				s.logger.Warn("token purge failed", zap.Error(err))
			}
		}
	}
}
