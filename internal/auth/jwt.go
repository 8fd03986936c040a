package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "slotbook"

// Token types. An access token authenticates API calls; a refresh token is
// only accepted by the refresh and logout endpoints.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the payload inside every JWT token.
//
// Role is the user's legacy coarse role. It is only consulted by access
// policies that still carry a legacy override; fine-grained permissions are
// always resolved server-side and never travel in the token.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Type     string    `json:"typ"`
	jwt.RegisteredClaims
}

// TokenID returns the jti of a refresh token, or uuid.Nil when it has none.
func (c *Claims) TokenID() uuid.UUID {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// GenerateToken creates an HS256-signed access token for a user, valid for ttl.
func GenerateToken(userID, tenantID uuid.UUID, email, role, secret string, ttl time.Duration) (string, error) {
	claims := newClaims(userID, tenantID, email, role, TypeAccess, ttl)
	return sign(claims, secret)
}

// GenerateRefreshToken creates a refresh token carrying a fresh jti, so it
// can be revoked on its own. It returns the claims along with the token.
func GenerateRefreshToken(userID, tenantID uuid.UUID, email, role, secret string, ttl time.Duration) (string, *Claims, error) {
	claims := newClaims(userID, tenantID, email, role, TypeRefresh, ttl)
	claims.ID = uuid.NewString()
	signed, err := sign(claims, secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func newClaims(userID, tenantID uuid.UUID, email, role, typ string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		UserID:   userID,
		TenantID: tenantID,
		Email:    email,
		Role:     role,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
}

func sign(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an access token and extracts the claims.
//
// It verifies the signature, the expiry and the issuer, and rejects any
// signing method other than HMAC so a token signed with "none" or an
// asymmetric key is never accepted. A refresh token is rejected even when
// both are signed with the same secret.
func ParseToken(tokenString, secret string) (*Claims, error) {
	return parse(tokenString, secret, TypeAccess)
}

// ParseRefreshToken validates a refresh token. It additionally requires a
// jti; revocation is keyed on it.
func ParseRefreshToken(tokenString, secret string) (*Claims, error) {
	claims, err := parse(tokenString, secret, TypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.TokenID() == uuid.Nil {
		return nil, fmt.Errorf("refresh token is missing its id")
	}
	return claims, nil
}

func parse(tokenString, secret, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == uuid.Nil || claims.TenantID == uuid.Nil {
		return nil, fmt.Errorf("token is missing user or tenant")
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("expected %s token, got %q", typ, claims.Type)
	}

	return claims, nil
}
