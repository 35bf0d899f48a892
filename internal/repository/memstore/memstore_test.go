package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
)

func TestUsers_DuplicateEmail(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	if err := repos.Users.Create(ctx, &domain.User{Email: "a@example.com", Role: domain.RoleUser}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repos.Users.Create(ctx, &domain.User{Email: "a@example.com", Role: domain.RoleUser})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicate", err)
	}
}

func TestCredentials_FindLatestSkipsExpired(t *testing.T) {
	store := New()
	repos := store.Repositories()
	ctx := context.Background()

	user := &domain.User{Email: "c@example.com", Role: domain.RoleUser}
	if err := repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("Create user: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	creds := []*domain.Credential{
		{UserID: user.ID, Type: domain.CredentialTypePassword, Key: "old"},
		{UserID: user.ID, Type: domain.CredentialTypePassword, Key: "current"},
		{UserID: user.ID, Type: domain.CredentialTypePassword, Key: "expired", ExpiredAt: &past},
	}
	for _, c := range creds {
		if err := repos.Credentials.Create(ctx, c); err != nil {
			t.Fatalf("Create credential: %v", err)
		}
	}

	got, err := repos.Credentials.FindLatest(ctx, user.ID, domain.CredentialTypePassword)
	if err != nil {
		t.Fatalf("FindLatest() error = %v", err)
	}
	if got.Key != "current" {
		t.Errorf("FindLatest().Key = %q, want current", got.Key)
	}

	if _, err := repos.Credentials.FindLatest(ctx, "nobody", domain.CredentialTypePassword); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("FindLatest(unknown) error = %v, want ErrNoRows", err)
	}
}

func TestTickets_ListScopedOrderedProjected(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	mod := "mod-1"
	notes := "secret"

	for i, title := range []string{"first", "second", "third"} {
		tk := &domain.Ticket{Title: title, Description: "d", OwnerID: "owner-1", InternalNotes: &notes}
		if i != 1 {
			tk.AssignedToID = &mod
		}
		if err := repos.Tickets.Create(ctx, tk); err != nil {
			t.Fatalf("Create ticket: %v", err)
		}
	}

	got, err := repos.Tickets.List(ctx, repository.TicketFilter{
		AssignedToID: &mod,
		Fields:       domain.NewTicketFields(domain.TicketFieldID, domain.TicketFieldTitle),
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(got))
	}
	if got[0].Title != "third" || got[1].Title != "first" {
		t.Errorf("List() order = %q, %q; want newest first", got[0].Title, got[1].Title)
	}
	if got[0].InternalNotes != nil || got[0].OwnerID != "" {
		t.Errorf("List() leaked unprojected fields: %+v", got[0])
	}

	paged, _ := repos.Tickets.List(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
	if len(paged) != 1 || paged[0].Title != "second" {
		t.Errorf("paged List() = %+v", paged)
	}
}

func TestTickets_UpdateMissing(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	if err := repos.Tickets.UpdateStatus(ctx, "missing", domain.TicketStatusClosed); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("UpdateStatus() error = %v, want ErrNoRows", err)
	}
	if err := repos.Tickets.Assign(ctx, "missing", "mod"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("Assign() error = %v, want ErrNoRows", err)
	}
}

func TestWithinTx_RollsBack(t *testing.T) {
	store := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, &domain.User{Email: "tx@example.com", Role: domain.RoleUser}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	if _, err := store.Repositories().Users.GetByEmail(ctx, "tx@example.com"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("user survived rollback, err = %v", err)
	}

	err = store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Users.Create(ctx, &domain.User{Email: "tx@example.com", Role: domain.RoleUser})
	})
	if err != nil {
		t.Fatalf("WithinTx() commit error = %v", err)
	}
	if _, err := store.Repositories().Users.GetByEmail(ctx, "tx@example.com"); err != nil {
		t.Errorf("committed user missing: %v", err)
	}
}

func TestWithinTx_RollbackKeepsOutsideWrites(t *testing.T) {
	store := New()
	ctx := context.Background()
	boom := errors.New("boom")

	outside := &domain.Ticket{Title: "outside", Description: "d", OwnerID: "owner-1"}
	done := make(chan error, 1)

	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, &domain.User{Email: "tx@example.com", Role: domain.RoleUser}); err != nil {
			return err
		}
		go func() {
			done <- store.Repositories().Tickets.Create(context.Background(), outside)
		}()
		select {
		case err := <-done:
			t.Errorf("outside write finished during the transaction: %v", err)
		case <-time.After(20 * time.Millisecond):
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("outside Create() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("outside write still blocked after rollback")
	}

	repos := store.Repositories()
	if _, err := repos.Tickets.GetByID(ctx, outside.ID); err != nil {
		t.Errorf("outside ticket lost after rollback: %v", err)
	}
	if _, err := repos.Users.GetByEmail(ctx, "tx@example.com"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("rolled back user still present, err = %v", err)
	}
}

func TestTickets_ListNegativeOffset(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	if err := repos.Tickets.Create(ctx, &domain.Ticket{Title: "t", Description: "d", OwnerID: "o"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := repos.Tickets.List(ctx, repository.TicketFilter{Limit: 10, Offset: -5})
	if err != nil || len(got) != 1 {
		t.Errorf("List(negative offset) = %d tickets, err %v; want 1", len(got), err)
	}
}
