package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/domain"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

func newGateApp(t *testing.T, gate *Gate) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	whoami := func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendString(claims.UserID)
	}
	app.Get("/any", gate.Require(AnyAuthenticated...), whoami)
	app.Get("/admin", gate.Require(AdminsOnly...), whoami)
	app.Get("/staff", gate.Require(Staff...), whoami)
	return app
}

func TestGate_Require(t *testing.T) {
	tm := NewTokenManager(testAuthConfig())
	gate := NewGate(tm, nil)
	app := newGateApp(t, gate)

	issue := func(role domain.Role) string {
		token, _, err := tm.Issue(Identity{UserID: "id-" + string(role), Role: role, Email: "x@example.com"})
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		return "Bearer " + token
	}

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{"no header", "/any", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "/any", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty bearer", "/any", "Bearer ", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "/any", "Bearer abc.def.ghi", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"any role admitted", "/any", issue(domain.RoleUser), http.StatusOK, "id-USER"},
		{"lowercase scheme", "/any", "bearer " + issue(domain.RoleUser)[len("Bearer "):], http.StatusOK, "id-USER"},
		{"user on admin route", "/admin", issue(domain.RoleUser), http.StatusForbidden, "FORBIDDEN"},
		{"moderator on admin route", "/admin", issue(domain.RoleModerator), http.StatusForbidden, "FORBIDDEN"},
		{"admin on admin route", "/admin", issue(domain.RoleAdmin), http.StatusOK, "id-ADMIN"},
		{"moderator on staff route", "/staff", issue(domain.RoleModerator), http.StatusOK, "id-MODERATOR"},
		{"user on staff route", "/staff", issue(domain.RoleUser), http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	if err := Authorize(domain.RoleUser, nil); err != nil {
		t.Errorf("empty role set should admit any role, got %v", err)
	}
	if err := Authorize(domain.RoleAdmin, UsersOnly); !apperrors.HasStatus(err, http.StatusForbidden) {
		t.Errorf("admin on user-only set: got %v, want 403", err)
	}
	for _, role := range AllRoles {
		if err := Authorize(role, AllRoles); err != nil {
			t.Errorf("Authorize(%s, AllRoles) = %v", role, err)
		}
	}
}
