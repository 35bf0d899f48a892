package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// UserService exposes the user directory to staff.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns users newest first.
func (s *UserService) List(ctx context.Context, caller auth.Identity, page Page) ([]domain.User, error) {
	if err := auth.Authorize(caller.Role, auth.Staff); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, page.Limit(), page.Offset())
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list users: %w", err))
	}
	return users, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, caller auth.Identity, id string) (*domain.User, error) {
	if err := auth.Authorize(caller.Role, auth.Staff); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("get user: %w", err))
	}
	return user, nil
}
