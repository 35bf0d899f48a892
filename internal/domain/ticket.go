package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Settable reports whether the status may be set through a status update.
// OPEN is only ever assigned at creation.
func (s TicketStatus) Settable() bool {
	return s == TicketStatusInProgress || s == TicketStatusClosed
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	Status        TicketStatus
	OwnerID       string
	AssignedToID  *string
	InternalNotes *string
	CreatedAt     time.Time
}

// TicketField identifies a projectable ticket attribute.
type TicketField uint16

const (
	TicketFieldID TicketField = 1 << iota
	TicketFieldTitle
	TicketFieldDescription
	TicketFieldStatus
	TicketFieldOwnerID
	TicketFieldAssignedToID
	TicketFieldInternalNotes
	TicketFieldCreatedAt
)

// AllTicketFields lists every field in column order.
var AllTicketFields = []TicketField{
	TicketFieldID,
	TicketFieldTitle,
	TicketFieldDescription,
	TicketFieldStatus,
	TicketFieldOwnerID,
	TicketFieldAssignedToID,
	TicketFieldInternalNotes,
	TicketFieldCreatedAt,
}

// TicketFields is a set of TicketField values.
type TicketFields TicketField

// NewTicketFields builds a set from the given fields.
func NewTicketFields(fields ...TicketField) TicketFields {
	var set TicketFields
	for _, f := range fields {
		set |= TicketFields(f)
	}
	return set
}

// Has reports whether f is part of the set.
func (s TicketFields) Has(f TicketField) bool {
	return s&TicketFields(f) != 0
}

// With returns a copy of the set extended by fields.
func (s TicketFields) With(fields ...TicketField) TicketFields {
	return s | NewTicketFields(fields...)
}

// List returns the members of the set in column order.
func (s TicketFields) List() []TicketField {
	out := make([]TicketField, 0, len(AllTicketFields))
	for _, f := range AllTicketFields {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Project returns a copy of t holding only the fields in the set.
func (s TicketFields) Project(t Ticket) Ticket {
	out := Ticket{}
	if s.Has(TicketFieldID) {
		out.ID = t.ID
	}
	if s.Has(TicketFieldTitle) {
		out.Title = t.Title
	}
	if s.Has(TicketFieldDescription) {
		out.Description = t.Description
	}
	if s.Has(TicketFieldStatus) {
		out.Status = t.Status
	}
	if s.Has(TicketFieldOwnerID) {
		out.OwnerID = t.OwnerID
	}
	if s.Has(TicketFieldAssignedToID) {
		out.AssignedToID = t.AssignedToID
	}
	if s.Has(TicketFieldInternalNotes) {
		out.InternalNotes = t.InternalNotes
	}
	if s.Has(TicketFieldCreatedAt) {
		out.CreatedAt = t.CreatedAt
	}
	return out
}
