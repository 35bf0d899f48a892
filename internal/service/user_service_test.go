package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/spec-kit/triage-service/internal/domain"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

func TestUserService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, "admin@example.com", domain.RoleAdmin, "")
	mod := env.addUser(t, "mod@example.com", domain.RoleModerator, "")
	user := env.addUser(t, "user@example.com", domain.RoleUser, "")

	list, err := env.users.List(ctx, mod, Page{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 || list[0].Email != "user@example.com" {
		t.Errorf("List() = %+v, want newest first", list)
	}

	got, err := env.users.Get(ctx, admin, user.UserID)
	if err != nil || got.Email != "user@example.com" {
		t.Errorf("Get() = %+v, %v", got, err)
	}

	if _, err := env.users.List(ctx, user, Page{}); !apperrors.HasStatus(err, http.StatusForbidden) {
		t.Errorf("List(user) error = %v, want 403", err)
	}
	if _, err := env.users.Get(ctx, admin, "missing"); !apperrors.HasStatus(err, http.StatusNotFound) {
		t.Errorf("Get(missing) error = %v, want 404", err)
	}
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		in         Page
		limit, off int
	}{
		{Page{}, 20, 0},
		{Page{Number: 3, Size: 10}, 10, 20},
		{Page{Number: -1, Size: 1000}, 100, 0},
		{Page{Number: 92233720368547760, Size: 100}, 100, (MaxPageNumber - 1) * 100},
	}
	for _, tt := range tests {
		if tt.in.Limit() != tt.limit || tt.in.Offset() != tt.off {
			t.Errorf("%+v: limit=%d offset=%d, want %d %d", tt.in, tt.in.Limit(), tt.in.Offset(), tt.limit, tt.off)
		}
	}
}
