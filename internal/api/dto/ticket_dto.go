package dto

import (
	"strings"

	"github.com/spec-kit/triage-service/internal/domain"
)

// CreateTicketRequest payload. Unknown fields such as owner_id are ignored.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
}

// Normalize trims free text so whitespace-only values fail validation.
func (r *CreateTicketRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssignedToID string `json:"assigned_to_id" validate:"required,uuid"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required,oneof=IN_PROGRESS CLOSED"`
}

// TicketResponse is a ticket reduced to the fields the caller may see.
// Visible nullable fields are present with a null value.
type TicketResponse map[string]any

// NewTicketResponse renders t through fields.
func NewTicketResponse(t domain.Ticket, fields domain.TicketFields) TicketResponse {
	out := TicketResponse{}
	for _, f := range fields.List() {
		switch f {
		case domain.TicketFieldID:
			out["id"] = t.ID
		case domain.TicketFieldTitle:
			out["title"] = t.Title
		case domain.TicketFieldDescription:
			out["description"] = t.Description
		case domain.TicketFieldStatus:
			out["status"] = t.Status
		case domain.TicketFieldOwnerID:
			out["owner_id"] = t.OwnerID
		case domain.TicketFieldAssignedToID:
			out["assigned_to_id"] = t.AssignedToID
		case domain.TicketFieldInternalNotes:
			out["internal_notes"] = t.InternalNotes
		case domain.TicketFieldCreatedAt:
			out["created_at"] = t.CreatedAt
		}
	}
	return out
}
