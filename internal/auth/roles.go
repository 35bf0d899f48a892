package auth

import (
	"github.com/spec-kit/triage-service/internal/domain"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// Role sets used by the routes.
var (
	AnyAuthenticated []domain.Role
	UsersOnly        = []domain.Role{domain.RoleUser}
	AdminsOnly       = []domain.Role{domain.RoleAdmin}
	Staff            = []domain.Role{domain.RoleAdmin, domain.RoleModerator}
	AllRoles         = []domain.Role{domain.RoleUser, domain.RoleModerator, domain.RoleAdmin}
)

// Authorize allows role when required is empty or contains it.
func Authorize(role domain.Role, required []domain.Role) error {
	if len(required) == 0 {
		return nil
	}
	for _, r := range required {
		if r == role {
			return nil
		}
	}
	return apperrors.NewForbidden("insufficient role")
}
