package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/config"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], window, nil
}

func newLimitedApp(limiter *Limiter) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Post("/auth/sign-in", limiter.Middleware("sign-in"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	app.Post("/auth/sign-up", limiter.Middleware("sign-up"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusCreated)
	})
	return app
}

func TestLimiter_BlocksAfterMax(t *testing.T) {
	counter := &fakeCounter{}
	limiter := NewLimiter(counter, config.RateLimitConfig{AuthMax: 2, AuthWindowSeconds: 30}, nil)
	app := newLimitedApp(limiter)

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, code := range want {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != code {
			t.Errorf("request %d status = %d, want %d", i, resp.StatusCode, code)
		}
		if code == http.StatusTooManyRequests && resp.Header.Get("Retry-After") != "30" {
			t.Errorf("Retry-After = %q, want 30", resp.Header.Get("Retry-After"))
		}
	}

	// other routes keep their own window
	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/auth/sign-up", nil))
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("sign-up status = %d, want 201", resp.StatusCode)
	}
}

func TestLimiter_FailsOpen(t *testing.T) {
	counter := &fakeCounter{err: errors.New("connection refused")}
	limiter := NewLimiter(counter, config.RateLimitConfig{AuthMax: 1, AuthWindowSeconds: 30}, nil)
	app := newLimitedApp(limiter)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i, resp.StatusCode)
		}
	}
}

func TestLimiter_Disabled(t *testing.T) {
	counter := &fakeCounter{}
	limiter := NewLimiter(counter, config.RateLimitConfig{AuthMax: 0, AuthWindowSeconds: 30}, nil)
	app := newLimitedApp(limiter)

	for i := 0; i < 5; i++ {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, resp.StatusCode)
		}
	}
	if len(counter.counts) != 0 {
		t.Errorf("disabled limiter touched the counter: %v", counter.counts)
	}
}
