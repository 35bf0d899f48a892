package service

import (
	"context"
	"testing"

	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/repository/memstore"
)

var testHashParams = auth.HashParams{N: 1024, R: 8, P: 1, KeyLen: 64, SaltLen: 16}

type testEnv struct {
	store       *memstore.Store
	repos       repository.Repositories
	dispatcher  events.Dispatcher
	tokens      *auth.TokenManager
	credentials *CredentialService
	auth        *AuthService
	tickets     *TicketService
	users       *UserService
	published   []events.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithUOW(t, nil)
}

func newTestEnvWithUOW(t *testing.T, wrap func(*memstore.Store) repository.UnitOfWork) *testEnv {
	t.Helper()

	store := memstore.New()
	repos := store.Repositories()
	var uow repository.UnitOfWork = store
	if wrap != nil {
		uow = wrap(store)
	}

	env := &testEnv{
		store:      store,
		repos:      repos,
		dispatcher: events.NewInMemoryDispatcher(nil),
		tokens: auth.NewTokenManager(config.AuthConfig{
			JWTSecret:             "test-secret",
			JWTIssuer:             "triage-test",
			AccessTokenTTLMinutes: 5,
		}),
	}
	for _, et := range []events.EventType{
		events.EventUserSignedUp,
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
	} {
		env.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			env.published = append(env.published, e)
			return nil
		})
	}

	env.credentials = NewCredentialService(auth.NewHasher(testHashParams, 4), repos.Credentials, nil)
	env.auth = NewAuthService(AuthDependencies{
		UserRepo:    repos.Users,
		UnitOfWork:  uow,
		Credentials: env.credentials,
		Tokens:      env.tokens,
		Dispatcher:  env.dispatcher,
	})
	env.tickets = NewTicketService(TicketDependencies{TicketRepo: repos.Tickets, Dispatcher: env.dispatcher})
	env.users = NewUserService(repos.Users)
	return env
}

// addUser creates a user with the given role and password directly in storage.
func (e *testEnv) addUser(t *testing.T, email string, role domain.Role, password string) auth.Identity {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{Email: email, Role: role}
	if err := e.repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	if password != "" && !e.credentials.Create(ctx, user.ID, domain.CredentialTypePassword, password) {
		t.Fatalf("create credential for %s failed", email)
	}
	return auth.Identity{UserID: user.ID, Role: role, Email: email}
}

func strPtr(s string) *string { return &s }
