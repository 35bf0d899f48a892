package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

const claimsKey = "auth_claims"

// Gate validates bearer tokens and enforces a required role set per route.
// It holds no state besides the token manager and never reads storage.
type Gate struct {
	tokens *TokenManager
	logger *zap.Logger
}

// NewGate constructs the gate.
func NewGate(tokens *TokenManager, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, logger: logger}
}

// Check decides a request given its Authorization header value.
func (g *Gate) Check(authHeader string, required ...domain.Role) (*Claims, error) {
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := g.tokens.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	if err := Authorize(claims.Role, required); err != nil {
		return nil, err
	}
	return claims, nil
}

// Require returns middleware admitting callers whose role is in required.
// An empty set admits any authenticated caller.
func (g *Gate) Require(required ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := g.Check(c.Get(fiber.HeaderAuthorization), required...)
		if err != nil {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				g.logger.Info("access denied",
					zap.String("path", c.Path()),
					zap.String("code", domainErr.Code))
			}
			return err
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFromContext retrieves the validated claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
