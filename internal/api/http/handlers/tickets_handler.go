package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/policy"
	"github.com/spec-kit/triage-service/internal/service"
)

// TicketsHandler manages ticket endpoints for every role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		return err
	}

	ticket, err := h.service.Create(c.UserContext(), caller, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return respondTicket(c.Status(http.StatusCreated), caller, ticket)
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	view, err := policy.TicketView(caller)
	if err != nil {
		return err
	}

	tickets, err := h.service.List(c.UserContext(), caller, page)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, dto.NewTicketResponse(t, view.Fields))
	}
	normalized := page.Normalize()
	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{"page": normalized.Number, "page_size": normalized.Size},
	})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return respondTicket(c, caller, ticket)
}

// Assign PATCH /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	ticket, err := h.service.Assign(c.UserContext(), caller, id, req.AssignedToID)
	if err != nil {
		return err
	}
	return respondTicket(c, caller, ticket)
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	ticket, err := h.service.UpdateStatus(c.UserContext(), caller, id, req.Status)
	if err != nil {
		return err
	}
	return respondTicket(c, caller, ticket)
}

func respondTicket(c *fiber.Ctx, caller auth.Identity, ticket *domain.Ticket) error {
	view, err := policy.TicketView(caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(*ticket, view.Fields)})
}
