package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
)

// ErrInvalidToken is returned for every token that fails validation,
// whatever the underlying cause.
var ErrInvalidToken = errors.New("invalid token")

// Identity is what a session token asserts about its bearer.
type Identity struct {
	UserID string
	Role   domain.Role
	Email  string
}

// Claims describes JWT payload.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	Email  string      `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the asserted identity.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role, Email: c.Email}
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager from the immutable auth configuration.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	ttl := cfg.AccessTokenTTL()
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue builds and signs a JWT for the identity.
func (tm *TokenManager) Issue(id Identity) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		UserID: id.UserID,
		Role:   id.Role,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// Validate verifies signature, issuer and expiry and returns the claims.
// Any failure wraps ErrInvalidToken.
func (tm *TokenManager) Validate(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role", ErrInvalidToken)
	}
	return claims, nil
}
