package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

const invalidCredentialsMessage = "invalid credentials"

var errCredentialNotEstablished = errors.New("credential not established")

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        *domain.User
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users       repository.UserRepository
	uow         repository.UnitOfWork
	credentials *CredentialService
	tokens      *auth.TokenManager
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	UnitOfWork  repository.UnitOfWork
	Credentials *CredentialService
	Tokens      *auth.TokenManager
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		uow:         deps.UnitOfWork,
		credentials: deps.Credentials,
		tokens:      deps.Tokens,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a USER and its password credential in one transaction.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	email = NormalizeEmail(email)

	cred, err := s.credentials.Derive(ctx, domain.CredentialTypePassword, password)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("derive credential: %w", err))
	}

	var user *domain.User
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		u := &domain.User{Email: email, Role: domain.RoleUser}
		if err := repos.Users.Create(ctx, u); err != nil {
			return err
		}
		if !s.credentials.Persist(ctx, repos.Credentials, u.ID, cred) {
			return errCredentialNotEstablished
		}
		user = u
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperrors.NewConflict("email already registered", nil)
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("sign up: %w", err))
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	s.publish(ctx, events.New(events.EventUserSignedUp, user.ID,
		events.Actor{UserID: user.ID, Role: user.Role},
		events.UserSignedUpPayload{Email: user.Email}))
	return user, nil
}

// SignIn verifies the password and issues a session token. Unknown email
// and wrong password fail with the same error.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInternalError(fmt.Errorf("lookup user: %w", err))
		}
		s.credentials.Burn(ctx, password)
		s.logger.Info("sign-in rejected")
		return nil, apperrors.NewUnauthorized(invalidCredentialsMessage)
	}

	if !s.credentials.Verify(ctx, user.ID, domain.CredentialTypePassword, password) {
		s.logger.Info("sign-in rejected")
		return nil, apperrors.NewUnauthorized(invalidCredentialsMessage)
	}

	token, exp, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Role: user.Role, Email: user.Email})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &Session{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp, User: user}, nil
}

// Me resolves the caller's own user record.
func (s *AuthService) Me(ctx context.Context, caller auth.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": caller.UserID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publication failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
