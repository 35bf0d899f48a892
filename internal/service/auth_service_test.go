package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/repository/memstore"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

type failingCredentials struct{ err error }

func (f failingCredentials) Create(context.Context, *domain.Credential) error { return f.err }

func (f failingCredentials) FindLatest(context.Context, string, string) (*domain.Credential, error) {
	return nil, pgx.ErrNoRows
}

type credentialFailingUOW struct{ store *memstore.Store }

func (u credentialFailingUOW) WithinTx(ctx context.Context, fn func(context.Context, repository.Repositories) error) error {
	return u.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		repos.Credentials = failingCredentials{err: errors.New("disk full")}
		return fn(ctx, repos)
	})
}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.SignUp(ctx, "  User1@Example.com ", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Role != domain.RoleUser || user.Email != "user1@example.com" {
		t.Errorf("SignUp() user = %+v", user)
	}

	session, err := env.auth.SignIn(ctx, "user1@example.com", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if session.TokenType != "Bearer" || session.ExpiresAt.IsZero() {
		t.Errorf("SignIn() session = %+v", session)
	}

	claims, err := env.tokens.Validate(session.AccessToken)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Role != domain.RoleUser || claims.UserID != user.ID || claims.Subject != user.ID || claims.Email != user.Email {
		t.Errorf("claims = %+v", claims)
	}

	if len(env.published) != 1 || env.published[0].Type != events.EventUserSignedUp {
		t.Errorf("published = %+v, want one user.signed_up", env.published)
	}
}

func TestAuthService_SignUpDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.auth.SignUp(ctx, "dup@example.com", "Str0ng!Pass"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	_, err := env.auth.SignUp(ctx, "DUP@example.com", "Str0ng!Pass")
	if !apperrors.HasStatus(err, http.StatusConflict) {
		t.Errorf("SignUp() duplicate error = %v, want 409", err)
	}
}

func TestAuthService_SignUpRollsBackWithoutCredential(t *testing.T) {
	env := newTestEnvWithUOW(t, func(s *memstore.Store) repository.UnitOfWork {
		return credentialFailingUOW{store: s}
	})
	ctx := context.Background()

	_, err := env.auth.SignUp(ctx, "orphan@example.com", "Str0ng!Pass")
	if !apperrors.HasStatus(err, http.StatusInternalServerError) {
		t.Fatalf("SignUp() error = %v, want 500", err)
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) && de.Message != "internal server error" {
		t.Errorf("SignUp() leaked message %q", de.Message)
	}
	if _, err := env.repos.Users.GetByEmail(ctx, "orphan@example.com"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("user row survived failed sign-up: %v", err)
	}
	if len(env.published) != 0 {
		t.Errorf("events published for failed sign-up: %+v", env.published)
	}
}

func TestAuthService_SignInFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "known@example.com", domain.RoleUser, "Str0ng!Pass")
	env.addUser(t, "nocred@example.com", domain.RoleUser, "")

	cases := []struct{ email, password string }{
		{"unknown@example.com", "Str0ng!Pass"},
		{"known@example.com", "wrong-Passw0rd!"},
		{"nocred@example.com", "Str0ng!Pass"},
	}

	var messages []string
	for _, c := range cases {
		_, err := env.auth.SignIn(ctx, c.email, c.password)
		var de *apperrors.DomainError
		if !errors.As(err, &de) {
			t.Fatalf("SignIn(%s) error = %v, want DomainError", c.email, err)
		}
		if de.HTTPStatus != http.StatusUnauthorized {
			t.Errorf("SignIn(%s) status = %d, want 401", c.email, de.HTTPStatus)
		}
		messages = append(messages, de.Code+"|"+de.Message)
	}
	for _, m := range messages[1:] {
		if m != messages[0] {
			t.Errorf("sign-in failures differ: %q vs %q", m, messages[0])
		}
	}
}

func TestAuthService_Me(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addUser(t, "me@example.com", domain.RoleModerator, "")

	user, err := env.auth.Me(ctx, id)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if user.Email != "me@example.com" || user.Role != domain.RoleModerator {
		t.Errorf("Me() = %+v", user)
	}

	_, err = env.auth.Me(ctx, auth.Identity{UserID: "gone", Role: domain.RoleUser})
	if !apperrors.HasStatus(err, http.StatusNotFound) {
		t.Errorf("Me(gone) error = %v, want 404", err)
	}
}
