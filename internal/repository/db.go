package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("record already exists")

const uniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Users       UserRepository
	Credentials CredentialRepository
	Tickets     TicketRepository
}

// UnitOfWork runs fn with repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is the Postgres implementation of Repositories and UnitOfWork.
type Store struct {
	pool  *pgxpool.Pool
	repos Repositories
}

var _ UnitOfWork = (*Store)(nil)

// NewStore binds repositories to the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repos: newRepositories(pool)}
}

// Repositories returns pool-bound repositories.
func (s *Store) Repositories() Repositories {
	return s.repos
}

// WithinTx implements UnitOfWork.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Users:       NewUserRepository(db),
		Credentials: NewCredentialRepository(db),
		Tickets:     NewTicketRepository(db),
	}
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
