// Package seed loads demo accounts and tickets. Users are upserted by
// email; tickets are replaced wholesale. Everything runs in one transaction.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
)

// SeededTicket reports one inserted ticket.
type SeededTicket struct {
	Key    string
	ID     string
	Status domain.TicketStatus
}

// Result summarizes a seeding run.
type Result struct {
	UserIDs map[string]string
	Tickets []SeededTicket
}

// Seeder applies fixtures.
type Seeder struct {
	uow         repository.UnitOfWork
	credentials *service.CredentialService
	logger      *zap.Logger
}

// NewSeeder constructs a seeder.
func NewSeeder(uow repository.UnitOfWork, credentials *service.CredentialService, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{uow: uow, credentials: credentials, logger: logger}
}

// Run applies f. Nothing is written if any step fails.
func (s *Seeder) Run(ctx context.Context, f *Fixtures) (*Result, error) {
	var result *Result
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		res := &Result{UserIDs: make(map[string]string, len(f.Users))}

		for _, uf := range f.Users {
			id, err := s.ensureUser(ctx, repos, uf)
			if err != nil {
				return err
			}
			res.UserIDs[uf.Key] = id
		}

		if err := repos.Tickets.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clearing tickets: %w", err)
		}
		for _, tf := range f.Tickets {
			ticket := &domain.Ticket{
				Title:       tf.Title,
				Description: tf.Description,
				Status:      tf.Status,
				OwnerID:     res.UserIDs[tf.Owner],
			}
			if ticket.Status == "" {
				ticket.Status = domain.TicketStatusOpen
			}
			if tf.AssignedTo != "" {
				assignee := res.UserIDs[tf.AssignedTo]
				ticket.AssignedToID = &assignee
			}
			if tf.InternalNotes != "" {
				notes := tf.InternalNotes
				ticket.InternalNotes = &notes
			}
			if err := repos.Tickets.Create(ctx, ticket); err != nil {
				return fmt.Errorf("creating ticket %s: %w", tf.Key, err)
			}
			res.Tickets = append(res.Tickets, SeededTicket{Key: tf.Key, ID: ticket.ID, Status: ticket.Status})
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("seeding completed", zap.Int("users", len(result.UserIDs)), zap.Int("tickets", len(result.Tickets)))
	return result, nil
}

func (s *Seeder) ensureUser(ctx context.Context, repos repository.Repositories, uf UserFixture) (string, error) {
	email := service.NormalizeEmail(uf.Email)
	user, err := repos.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		user = &domain.User{Email: email, Role: uf.Role}
		if err := repos.Users.Create(ctx, user); err != nil {
			return "", fmt.Errorf("creating user %s: %w", email, err)
		}
		s.logger.Info("created user", zap.String("email", email), zap.String("role", string(uf.Role)))
	case err != nil:
		return "", fmt.Errorf("looking up user %s: %w", email, err)
	case user.Role != uf.Role:
		if err := repos.Users.UpdateRole(ctx, user.ID, uf.Role); err != nil {
			return "", fmt.Errorf("updating role of %s: %w", email, err)
		}
		s.logger.Info("updated user role", zap.String("email", email), zap.String("role", string(uf.Role)))
	}

	_, err = repos.Credentials.FindLatest(ctx, user.ID, domain.CredentialTypePassword)
	if err == nil {
		return user.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("looking up credential for %s: %w", email, err)
	}

	cred, err := s.credentials.Derive(ctx, domain.CredentialTypePassword, uf.Password)
	if err != nil {
		return "", fmt.Errorf("hashing password for %s: %w", email, err)
	}
	if !s.credentials.Persist(ctx, repos.Credentials, user.ID, cred) {
		return "", fmt.Errorf("credential for %s not established", email)
	}
	s.logger.Info("created password credential", zap.String("email", email))
	return user.ID, nil
}
