package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/policy"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// TicketService applies the role policy to ticket reads and writes. Every
// ticket it returns is projected through the caller's view.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload. There is no owner
// field: the owner is always the caller.
type TicketCreateInput struct {
	Title       string
	Description string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create files a ticket owned by the caller.
func (s *TicketService) Create(ctx context.Context, caller auth.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	if err := policy.CanCreate(caller); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		OwnerID:     caller.UserID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("create ticket: %w", err))
	}

	s.publish(ctx, events.New(events.EventTicketCreated, ticket.ID, actorOf(caller),
		events.TicketCreatedPayload{Title: ticket.Title, OwnerID: ticket.OwnerID}))
	return s.reload(ctx, caller, ticket.ID)
}

// Get returns one ticket. Missing ids are 404; tickets outside the
// caller's scope are 403.
func (s *TicketService) Get(ctx context.Context, caller auth.Identity, id string) (*domain.Ticket, error) {
	view, err := policy.TicketView(caller)
	if err != nil {
		return nil, err
	}
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanRead(caller, ticket); err != nil {
		return nil, err
	}
	projected := view.Fields.Project(*ticket)
	return &projected, nil
}

// List returns the caller's visible tickets, newest first.
func (s *TicketService) List(ctx context.Context, caller auth.Identity, page Page) ([]domain.Ticket, error) {
	view, err := policy.TicketView(caller)
	if err != nil {
		return nil, err
	}

	filter := repository.TicketFilter{
		Fields: view.Fields,
		Limit:  page.Limit(),
		Offset: page.Offset(),
	}
	switch view.Scope.Kind {
	case policy.ScopeOwned:
		filter.OwnerID = &view.Scope.UserID
	case policy.ScopeAssigned:
		filter.AssignedToID = &view.Scope.UserID
	case policy.ScopeAll:
	default:
		return nil, apperrors.NewForbidden("no ticket scope for role")
	}

	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list tickets: %w", err))
	}
	return tickets, nil
}

// Assign sets the ticket's assignee. The assignee's role is not checked.
func (s *TicketService) Assign(ctx context.Context, caller auth.Identity, id, assigneeID string) (*domain.Ticket, error) {
	if err := policy.CanAssign(caller); err != nil {
		return nil, err
	}
	before, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.tickets.Assign(ctx, id, assigneeID); err != nil {
		return nil, s.mapWriteError(id, err)
	}

	s.logger.Info("ticket assigned", zap.String("ticket_id", id), zap.String("assigned_to_id", assigneeID))
	s.publish(ctx, events.New(events.EventTicketAssigned, id, actorOf(caller),
		events.TicketAssignedPayload{PreviousAssigneeID: before.AssignedToID, AssignedToID: assigneeID}))
	return s.reload(ctx, caller, id)
}

// UpdateStatus moves a ticket to IN_PROGRESS or CLOSED.
func (s *TicketService) UpdateStatus(ctx context.Context, caller auth.Identity, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanUpdateStatus(caller, ticket, status); err != nil {
		return nil, err
	}

	if err := s.tickets.UpdateStatus(ctx, id, status); err != nil {
		return nil, s.mapWriteError(id, err)
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", id),
		zap.String("old_status", string(ticket.Status)),
		zap.String("new_status", string(status)))
	s.publish(ctx, events.New(events.EventTicketStatusChanged, id, actorOf(caller),
		events.TicketStatusChangedPayload{OldStatus: ticket.Status, NewStatus: status}))
	return s.reload(ctx, caller, id)
}

func (s *TicketService) fetch(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("get ticket: %w", err))
	}
	return ticket, nil
}

// reload re-reads the row after a write and projects it for the caller.
func (s *TicketService) reload(ctx context.Context, caller auth.Identity, id string) (*domain.Ticket, error) {
	view, err := policy.TicketView(caller)
	if err != nil {
		return nil, err
	}
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	projected := view.Fields.Project(*ticket)
	return &projected, nil
}

func (s *TicketService) mapWriteError(id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(fmt.Errorf("update ticket: %w", err))
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publication failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func actorOf(caller auth.Identity) events.Actor {
	return events.Actor{UserID: caller.UserID, Role: caller.Role}
}
