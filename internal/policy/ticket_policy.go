package policy

import (
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// ScopeKind names the relation a caller must have to a ticket to see it.
type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	ScopeOwned
	ScopeAssigned
	ScopeAll
)

// RowScope restricts visible tickets.
type RowScope struct {
	Kind   ScopeKind
	UserID string
}

// Includes reports whether t is inside the scope.
func (s RowScope) Includes(t *domain.Ticket) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeOwned:
		return t.OwnerID == s.UserID
	case ScopeAssigned:
		return t.AssignedToID != nil && *t.AssignedToID == s.UserID
	default:
		return false
	}
}

// View is the row scope and field projection granted to a caller.
type View struct {
	Scope  RowScope
	Fields domain.TicketFields
}

var (
	userFields = domain.NewTicketFields(
		domain.TicketFieldID,
		domain.TicketFieldTitle,
		domain.TicketFieldDescription,
		domain.TicketFieldStatus,
	)
	moderatorFields = userFields.With(domain.TicketFieldOwnerID, domain.TicketFieldAssignedToID)
	adminFields     = moderatorFields.With(domain.TicketFieldInternalNotes)
)

// TicketView returns the view for caller.
func TicketView(caller auth.Identity) (View, error) {
	switch caller.Role {
	case domain.RoleUser:
		return View{Scope: RowScope{Kind: ScopeOwned, UserID: caller.UserID}, Fields: userFields}, nil
	case domain.RoleModerator:
		return View{Scope: RowScope{Kind: ScopeAssigned, UserID: caller.UserID}, Fields: moderatorFields}, nil
	case domain.RoleAdmin:
		return View{Scope: RowScope{Kind: ScopeAll}, Fields: adminFields}, nil
	default:
		return View{}, apperrors.NewForbidden("unknown role")
	}
}

// CanRead allows reading t when it is inside the caller's row scope.
func CanRead(caller auth.Identity, t *domain.Ticket) error {
	view, err := TicketView(caller)
	if err != nil {
		return err
	}
	if view.Scope.Includes(t) {
		return nil
	}
	switch caller.Role {
	case domain.RoleUser:
		return apperrors.NewForbidden("you can only access your own tickets")
	default:
		return apperrors.NewForbidden("ticket is not assigned to you")
	}
}

// CanCreate allows only end users to file tickets.
func CanCreate(caller auth.Identity) error {
	switch caller.Role {
	case domain.RoleUser:
		return nil
	case domain.RoleModerator, domain.RoleAdmin:
		return apperrors.NewForbidden("only users can create tickets")
	default:
		return apperrors.NewForbidden("unknown role")
	}
}

// CanAssign allows only admins to assign tickets. The assignee's role is not checked.
func CanAssign(caller auth.Identity) error {
	switch caller.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleUser, domain.RoleModerator:
		return apperrors.NewForbidden("only admins can assign tickets")
	default:
		return apperrors.NewForbidden("unknown role")
	}
}

// CanUpdateStatus allows admins on any ticket and moderators on tickets
// assigned to them. Only IN_PROGRESS and CLOSED are accepted.
func CanUpdateStatus(caller auth.Identity, t *domain.Ticket, status domain.TicketStatus) error {
	if !status.Settable() {
		return apperrors.NewValidationError("status must be IN_PROGRESS or CLOSED", map[string]any{"status": status})
	}
	switch caller.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleModerator:
		if t.AssignedToID != nil && *t.AssignedToID == caller.UserID {
			return nil
		}
		return apperrors.NewForbidden("ticket is not assigned to you")
	case domain.RoleUser:
		return apperrors.NewForbidden("users cannot change ticket status")
	default:
		return apperrors.NewForbidden("unknown role")
	}
}
