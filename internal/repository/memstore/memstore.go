// Package memstore is an in-memory implementation of the repository
// contracts. It backs the service when no POSTGRES_DSN is configured and
// serves as the fixture store in tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
)

type state struct {
	users       map[string]domain.User
	credentials []domain.Credential
	tickets     map[string]domain.Ticket
}

func (s state) clone() state {
	out := state{
		users:       make(map[string]domain.User, len(s.users)),
		credentials: append([]domain.Credential(nil), s.credentials...),
		tickets:     make(map[string]domain.Ticket, len(s.tickets)),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.tickets {
		out.tickets[k] = v
	}
	return out
}

// Store holds all records behind a single mutex. A transaction holds txMu
// for its whole duration, which excludes every other reader and writer, and
// rolls back by restoring a snapshot.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data state
	now  func() time.Time
	last time.Time
}

var _ repository.UnitOfWork = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		data: state{
			users:   map[string]domain.User{},
			tickets: map[string]domain.Ticket{},
		},
		now: time.Now,
	}
}

// Repositories returns repositories reading and writing this store. They
// wait for any running transaction to finish.
func (s *Store) Repositories() repository.Repositories {
	return s.bind(false)
}

func (s *Store) bind(tx bool) repository.Repositories {
	b := binding{s: s, tx: tx}
	return repository.Repositories{
		Users:       userRepo{b},
		Credentials: credentialRepo{b},
		Tickets:     ticketRepo{b},
	}
}

// binding ties a repository to the store and records whether it runs
// inside WithinTx, where the transaction lock is already held.
type binding struct {
	s  *Store
	tx bool
}

func (b binding) lock() func() {
	if !b.tx {
		b.s.txMu.Lock()
	}
	b.s.mu.Lock()
	return func() {
		b.s.mu.Unlock()
		if !b.tx {
			b.s.txMu.Unlock()
		}
	}
}

// WithinTx implements repository.UnitOfWork.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx, s.bind(true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// stamp returns a strictly increasing creation time. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

type userRepo struct{ binding }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	defer r.lock()()

	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.stamp()
	r.s.data.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	defer r.lock()()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	defer r.lock()()

	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	unlock := r.lock()
	users := make([]domain.User, 0, len(r.s.data.users))
	for _, u := range r.s.data.users {
		users = append(users, u)
	}
	unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return page(users, limit, offset), nil
}

func (r userRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	defer r.lock()()

	u, ok := r.s.data.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Role = role
	r.s.data.users[id] = u
	return nil
}

type credentialRepo struct{ binding }

func (r credentialRepo) Create(_ context.Context, cred *domain.Credential) error {
	defer r.lock()()

	if _, ok := r.s.data.users[cred.UserID]; !ok {
		return pgx.ErrNoRows
	}
	cred.ID = uuid.NewString()
	cred.CreatedAt = r.s.stamp()
	r.s.data.credentials = append(r.s.data.credentials, *cred)
	return nil
}

func (r credentialRepo) FindLatest(_ context.Context, userID, credType string) (*domain.Credential, error) {
	defer r.lock()()

	now := r.s.now()
	var latest *domain.Credential
	for i := range r.s.data.credentials {
		c := r.s.data.credentials[i]
		if c.UserID != userID || c.Type != credType {
			continue
		}
		if c.ExpiredAt != nil && !c.ExpiredAt.After(now) {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = &c
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	return latest, nil
}

type ticketRepo struct{ binding }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	defer r.lock()()

	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = r.s.stamp()
	r.s.data.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	defer r.lock()()

	t, ok := r.s.data.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t = cloneTicket(t)
	return &t, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	fields := filter.Fields
	if fields == 0 {
		fields = domain.NewTicketFields(domain.AllTicketFields...)
	}

	unlock := r.lock()
	matched := make([]domain.Ticket, 0, len(r.s.data.tickets))
	for _, t := range r.s.data.tickets {
		if filter.OwnerID != nil && t.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.AssignedToID != nil && (t.AssignedToID == nil || *t.AssignedToID != *filter.AssignedToID) {
			continue
		}
		matched = append(matched, cloneTicket(t))
	}
	unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	matched = page(matched, filter.Limit, filter.Offset)

	out := make([]domain.Ticket, len(matched))
	for i, t := range matched {
		out[i] = fields.Project(t)
	}
	return out, nil
}

func (r ticketRepo) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) error {
	defer r.lock()()

	t, ok := r.s.data.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status = status
	r.s.data.tickets[id] = t
	return nil
}

func (r ticketRepo) Assign(_ context.Context, id, assigneeID string) error {
	defer r.lock()()

	t, ok := r.s.data.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.AssignedToID = &assigneeID
	r.s.data.tickets[id] = t
	return nil
}

func (r ticketRepo) DeleteAll(context.Context) error {
	defer r.lock()()

	r.s.data.tickets = map[string]domain.Ticket{}
	return nil
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.AssignedToID != nil {
		v := *t.AssignedToID
		t.AssignedToID = &v
	}
	if t.InternalNotes != nil {
		v := *t.InternalNotes
		t.InternalNotes = &v
	}
	return t
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
