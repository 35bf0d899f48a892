package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/domain"
)

// TicketFilter scopes and projects a ticket listing. Nil scope fields are
// not applied; a zero Fields set selects every column.
type TicketFilter struct {
	OwnerID      *string
	AssignedToID *string
	Fields       domain.TicketFields
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
	Assign(ctx context.Context, id, assigneeID string) error
	DeleteAll(ctx context.Context) error
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

var ticketColumns = map[domain.TicketField]string{
	domain.TicketFieldID:            "id",
	domain.TicketFieldTitle:         "title",
	domain.TicketFieldDescription:   "description",
	domain.TicketFieldStatus:        "status",
	domain.TicketFieldOwnerID:       "owner_id",
	domain.TicketFieldAssignedToID:  "assigned_to_id",
	domain.TicketFieldInternalNotes: "internal_notes",
	domain.TicketFieldCreatedAt:     "created_at",
}

func allTicketFields() domain.TicketFields {
	return domain.NewTicketFields(domain.AllTicketFields...)
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, owner_id, assigned_to_id, internal_notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	return r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.OwnerID,
		ticket.AssignedToID,
		ticket.InternalNotes,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	fields := allTicketFields()
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE id=$1", selectList(fields))

	var ticket domain.Ticket
	if err := r.db.QueryRow(ctx, query, id).Scan(scanTargets(&ticket, fields)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	fields := filter.Fields
	if fields == 0 {
		fields = allTicketFields()
	}
	query, args := buildTicketListQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(scanTargets(&ticket, fields)...); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE tickets SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Assign(ctx context.Context, id, assigneeID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE tickets SET assigned_to_id=$1 WHERE id=$2`, assigneeID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tickets`)
	return err
}

func buildTicketListQuery(filter TicketFilter) (string, []any) {
	fields := filter.Fields
	if fields == 0 {
		fields = allTicketFields()
	}

	var clauses []string
	args := []any{}
	idx := 1

	if filter.OwnerID != nil {
		clauses = append(clauses, fmt.Sprintf("owner_id = $%d", idx))
		args = append(args, *filter.OwnerID)
		idx++
	}
	if filter.AssignedToID != nil {
		clauses = append(clauses, fmt.Sprintf("assigned_to_id = $%d", idx))
		args = append(args, *filter.AssignedToID)
		idx++
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList(fields))
	sb.WriteString(" FROM tickets")
	if len(clauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC")

	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", idx))
		args = append(args, filter.Limit)
		idx++
	}
	if filter.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", idx))
		args = append(args, filter.Offset)
	}
	return sb.String(), args
}

func selectList(fields domain.TicketFields) string {
	cols := make([]string, 0, len(domain.AllTicketFields))
	for _, f := range fields.List() {
		cols = append(cols, ticketColumns[f])
	}
	return strings.Join(cols, ", ")
}

func scanTargets(t *domain.Ticket, fields domain.TicketFields) []any {
	targets := make([]any, 0, len(domain.AllTicketFields))
	for _, f := range fields.List() {
		switch f {
		case domain.TicketFieldID:
			targets = append(targets, &t.ID)
		case domain.TicketFieldTitle:
			targets = append(targets, &t.Title)
		case domain.TicketFieldDescription:
			targets = append(targets, &t.Description)
		case domain.TicketFieldStatus:
			targets = append(targets, &t.Status)
		case domain.TicketFieldOwnerID:
			targets = append(targets, &t.OwnerID)
		case domain.TicketFieldAssignedToID:
			targets = append(targets, &t.AssignedToID)
		case domain.TicketFieldInternalNotes:
			targets = append(targets, &t.InternalNotes)
		case domain.TicketFieldCreatedAt:
			targets = append(targets, &t.CreatedAt)
		}
	}
	return targets
}
