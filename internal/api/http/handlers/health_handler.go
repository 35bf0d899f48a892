package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/observability"
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named Pinger checked by readiness probes.
type Dependency struct {
	Name     string
	Pinger   Pinger
	Required bool
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	deps        []Dependency
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, metrics *observability.Metrics, deps ...Dependency) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, deps: deps, metrics: metrics}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking required dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	depStatus, ready := h.check(c.UserContext())
	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// Admin GET /admin/health reports dependencies and request counters.
func (h *HealthHandler) Admin(c *fiber.Ctx) error {
	depStatus, ready := h.check(c.UserContext())
	status := "ok"
	if !ready {
		status = "degraded"
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":       status,
		"service":      h.serviceName,
		"version":      h.version,
		"dependencies": depStatus,
		"metrics":      h.metrics.Snapshot(),
	}})
}

func (h *HealthHandler) check(parent context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	depStatus := make(map[string]string, len(h.deps))
	ready := true
	for _, dep := range h.deps {
		if err := dep.Pinger.Ping(ctx); err != nil {
			depStatus[dep.Name] = err.Error()
			if dep.Required {
				ready = false
			}
			continue
		}
		depStatus[dep.Name] = "ok"
	}
	return depStatus, ready
}
