package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

func callerFrom(c *fiber.Ctx) (auth.Identity, error) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return auth.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return claims.Identity(), nil
}

func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func pathUUID(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidationError(name+" must be a UUID", map[string]any{name: raw})
	}
	return id.String(), nil
}

func parsePage(c *fiber.Ctx) (service.Page, error) {
	var q dto.PageQuery
	if err := c.QueryParser(&q); err != nil {
		return service.Page{}, apperrors.NewValidationError("invalid query", nil)
	}
	if err := dto.Validate(&q); err != nil {
		return service.Page{}, err
	}
	return service.Page{Number: q.Page, Size: q.PageSize}, nil
}
